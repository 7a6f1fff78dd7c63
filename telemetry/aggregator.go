// Package telemetry maintains the session-scoped rolling statistics the
// pipeline publishes: frame rate, processing latency, confidence, hazard
// counts, and the most recent detection batches.
package telemetry

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/roadwatch/roadwatch/hazard"
	"github.com/roadwatch/roadwatch/objdet"
)

const (
	// samples kept in the processing-time window.
	processingWindowSize = 10
	// detection batches kept in the recent buffer.
	recentCapacity = 10
	// below this elapsed session time FPS reports zero instead of dividing
	// by a near-zero duration.
	minSessionElapsed = time.Millisecond
)

// PerformanceSnapshot is an immutable view of session performance, replaced
// wholesale on every update.
type PerformanceSnapshot struct {
	FPS             float64
	AvgProcessingMS float64
	AvgConfidence   float64
	TotalDetections int
	SessionDuration time.Duration
}

// HazardStatsSnapshot holds cumulative per-category detection counts. The
// counters never decrease within a session.
type HazardStatsSnapshot struct {
	Counts map[hazard.Category]int
}

// Batch is one frame's worth of detections with the time it was aggregated.
type Batch struct {
	At         time.Time
	Detections []objdet.Detection
}

// Aggregator accumulates telemetry for one detection session. It is confined
// to the detection loop's goroutine and needs no locking of its own;
// cross-task visibility comes from publishing the snapshots it returns.
type Aggregator struct {
	clk             clock.Clock
	start           time.Time
	frames          int
	window          *rollingWindow
	totalDetections int
	confidenceSum   float64
	counts          map[hazard.Category]int
	recent          []Batch
}

// NewAggregator starts a fresh session at the clock's current time.
func NewAggregator(clk clock.Clock) *Aggregator {
	if clk == nil {
		clk = clock.New()
	}
	counts := make(map[hazard.Category]int, len(hazard.Categories()))
	for _, c := range hazard.Categories() {
		counts[c] = 0
	}
	return &Aggregator{
		clk:    clk,
		start:  clk.Now(),
		window: newRollingWindow(processingWindowSize),
		counts: counts,
		recent: make([]Batch, 0, recentCapacity),
	}
}

// Update folds one processed frame into the session statistics and returns
// fresh snapshots. Detections whose label maps to no recognized category do
// not increment any counter but still count toward totals.
func (a *Aggregator) Update(
	detections []objdet.Detection, table *hazard.Table, processing time.Duration,
) (PerformanceSnapshot, HazardStatsSnapshot) {
	a.frames++
	a.window.Add(float64(processing.Microseconds()) / 1000.0)

	for _, d := range detections {
		a.totalDetections++
		a.confidenceSum += d.Score()
		if c := table.Lookup(d.Label()); c != hazard.Unknown {
			a.counts[c]++
		}
	}

	if len(detections) > 0 {
		batch := Batch{At: a.clk.Now(), Detections: detections}
		a.recent = append([]Batch{batch}, a.recent...)
		if len(a.recent) > recentCapacity {
			a.recent = a.recent[:recentCapacity]
		}
	}

	elapsed := a.clk.Since(a.start)
	fps := 0.0
	if elapsed >= minSessionElapsed {
		fps = float64(a.frames) / elapsed.Seconds()
	}
	avgConf := 0.0
	if a.totalDetections > 0 {
		avgConf = a.confidenceSum / float64(a.totalDetections)
	}

	perf := PerformanceSnapshot{
		FPS:             fps,
		AvgProcessingMS: a.window.Mean(),
		AvgConfidence:   avgConf,
		TotalDetections: a.totalDetections,
		SessionDuration: elapsed,
	}
	counts := make(map[hazard.Category]int, len(a.counts))
	for c, n := range a.counts {
		counts[c] = n
	}
	return perf, HazardStatsSnapshot{Counts: counts}
}

// Recent returns the retained detection batches, most recent first.
func (a *Aggregator) Recent() []Batch {
	out := make([]Batch, len(a.recent))
	copy(out, a.recent)
	return out
}
