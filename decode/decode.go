// Package decode interprets raw inference output tensors as hazard
// detections. Two incompatible model output layouts are supported behind one
// Decoder interface: a pre-filtered triple-tensor layout and a dense
// anchor-grid layout. Which decoder runs is selected by the loaded model's
// configuration, never by shape sniffing.
package decode

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"

	"github.com/roadwatch/roadwatch/hazard"
	"github.com/roadwatch/roadwatch/objdet"
)

// Layout tags a model's output convention.
type Layout string

// The supported output layouts.
const (
	// LayoutFiltered models emit three tensors (boxes, labels, scores)
	// already filtered by the model's own confidence logic.
	LayoutFiltered = Layout("filtered")
	// LayoutDenseGrid models emit one channel-major grid of raw logits over
	// every anchor, e.g. 8400 anchors for a 640x640 input.
	LayoutDenseGrid = Layout("dense_grid")
)

// ModelConfig describes the loaded model as supplied by the asset resolver:
// its native square input size, output layout, and ordered label table.
type ModelConfig struct {
	Name      string
	InputSize int
	Layout    Layout
	Labels    []string
}

// RawOutput is the tagged union of model output layouts.
type RawOutput interface {
	rawOutput()
}

// Filtered holds the triple-tensor layout. Boxes is 4*N values of
// (xMin, yMin, xMax, yMax) in the model's native square space, Labels is N
// class ids, Scores is N confidences.
type Filtered struct {
	Boxes  []float32
	Labels []int64
	Scores []float32
}

func (Filtered) rawOutput() {}

// DenseGrid holds the anchor-grid layout: one channel per row, each of
// anchor-count length. The first five channels are cx, cy, w, h, objectness;
// the rest are per-class logits.
type DenseGrid struct {
	Channels [][]float32
}

func (DenseGrid) rawOutput() {}

// UnknownLabel is the synthetic label given to detections whose class id
// falls outside the model's label table.
const UnknownLabel = "unknown"

// Decoder turns one frame's raw output into detections in model input space,
// already scaled to the requested target size.
type Decoder interface {
	Decode(out RawOutput, confidenceThreshold float64, targetWidth, targetHeight int) ([]objdet.Detection, error)
}

type options struct {
	objectnessGate float64
	minBoxSize     int
}

// Option adjusts decoder tuning defaults.
type Option func(*options)

// WithObjectnessGate overrides the dense-grid objectness pre-filter. Anchors
// below the gate are rejected before class probabilities are computed; this
// is a cost optimization, not a correctness requirement.
func WithObjectnessGate(gate float64) Option {
	return func(o *options) { o.objectnessGate = gate }
}

// WithMinBoxSize overrides the minimum dense-grid box dimension in target
// pixels. Smaller boxes are dropped as noise.
func WithMinBoxSize(px int) Option {
	return func(o *options) { o.minBoxSize = px }
}

// New builds the decoder matching the model's output layout.
func New(cfg ModelConfig, opts ...Option) (Decoder, error) {
	o := options{objectnessGate: 0.03, minBoxSize: 10}
	for _, opt := range opts {
		opt(&o)
	}
	switch cfg.Layout {
	case LayoutFiltered:
		if cfg.InputSize <= 0 {
			return nil, errors.Errorf("model %q has invalid input size %d", cfg.Name, cfg.InputSize)
		}
		return &filteredDecoder{
			nativeSize: cfg.InputSize,
			labels:     cfg.Labels,
			table:      hazard.TableFromLabels(cfg.Labels),
		}, nil
	case LayoutDenseGrid:
		return &denseGridDecoder{labels: cfg.Labels, opts: o}, nil
	default:
		return nil, errors.Errorf("model %q has unsupported output layout %q", cfg.Name, cfg.Layout)
	}
}

// number constrains the tensor payload types we convert from.
type number interface {
	constraints.Integer | constraints.Float
}

// toFloat64s converts any numeric tensor slice into a []float64.
func toFloat64s[T number](in []T) []float64 {
	out := make([]float64, len(in))
	for i := range in {
		out[i] = float64(in[i])
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
