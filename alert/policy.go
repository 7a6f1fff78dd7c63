// Package alert decides when the pipeline should request a spoken hazard
// announcement and what it should say. Platform speech queuing is the
// sink's concern; this package only rate-limits and words the requests.
package alert

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/roadwatch/roadwatch/hazard"
	"github.com/roadwatch/roadwatch/objdet"
)

// Strategy selects how the policy compares the current frame against the
// last announcement.
type Strategy int

const (
	// CompareSet announces when the distinct hazard-category set changes,
	// subject to the debounce interval. The default.
	CompareSet Strategy = iota
	// CompareFirst considers only the first (highest-priority) detection.
	// Repeats of the same hazard are suppressed inside the debounce
	// interval and re-announce after it; a changed first hazard announces
	// immediately.
	CompareFirst
)

// DefaultDebounce is the minimum interval between announcements.
const DefaultDebounce = 3 * time.Second

// Config tunes the policy.
type Config struct {
	Debounce time.Duration
	Strategy Strategy
}

var phrases = map[hazard.Category]string{
	hazard.Pedestrian: "Caution, pedestrian ahead",
	hazard.Pothole:    "Pothole ahead, slow down",
	hazard.Hump:       "Speed hump ahead",
	hazard.Animal:     "Caution, animal on the road",
	hazard.RoadWork:   "Road work ahead, drive carefully",
}

const multipleHazards = "Caution, multiple hazards ahead"

// Policy holds the alert debounce state for one session. It is confined to
// the detection loop's goroutine; the stored set and timestamp are updated
// in the same call that decides to speak.
type Policy struct {
	clk      clock.Clock
	debounce time.Duration
	strategy Strategy

	spoken    bool
	lastAt    time.Time
	lastSet   map[hazard.Category]struct{}
	lastFirst hazard.Category
}

// NewPolicy creates a policy with fresh state.
func NewPolicy(cfg Config, clk clock.Clock) *Policy {
	if clk == nil {
		clk = clock.New()
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Policy{clk: clk, debounce: debounce, strategy: cfg.Strategy}
}

// Evaluate returns the message to speak for this frame's detections, if any.
// Detections with unrecognized labels never trigger an announcement.
func (p *Policy) Evaluate(detections []objdet.Detection, table *hazard.Table) (string, bool) {
	if p.strategy == CompareFirst {
		return p.evaluateFirst(detections, table)
	}
	return p.evaluateSet(detections, table)
}

func (p *Policy) evaluateSet(detections []objdet.Detection, table *hazard.Table) (string, bool) {
	current := make(map[hazard.Category]struct{})
	var only hazard.Category
	for _, d := range detections {
		if c := table.Lookup(d.Label()); c != hazard.Unknown {
			current[c] = struct{}{}
			only = c
		}
	}
	if len(current) == 0 {
		return "", false
	}
	if p.spoken && p.clk.Since(p.lastAt) < p.debounce {
		return "", false
	}
	if p.spoken && setsEqual(current, p.lastSet) {
		return "", false
	}

	msg := multipleHazards
	if len(current) == 1 {
		msg = phrases[only]
	}
	p.spoken = true
	p.lastAt = p.clk.Now()
	p.lastSet = current
	return msg, true
}

func (p *Policy) evaluateFirst(detections []objdet.Detection, table *hazard.Table) (string, bool) {
	var first hazard.Category
	for _, d := range detections {
		if c := table.Lookup(d.Label()); c != hazard.Unknown {
			first = c
			break
		}
	}
	if first == hazard.Unknown {
		return "", false
	}
	if p.spoken && first == p.lastFirst && p.clk.Since(p.lastAt) < p.debounce {
		return "", false
	}
	p.spoken = true
	p.lastAt = p.clk.Now()
	p.lastFirst = first
	return phrases[first], true
}

func setsEqual(a, b map[hazard.Category]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for c := range a {
		if _, ok := b[c]; !ok {
			return false
		}
	}
	return true
}
