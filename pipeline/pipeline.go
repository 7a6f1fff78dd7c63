// Package pipeline runs the real-time hazard detection loop: it pulls
// captured frames, feeds them through preprocessing, inference, decoding,
// non-max suppression and coordinate mapping, aggregates telemetry, and
// issues debounced spoken alerts. Capture, the neural network runtime,
// overlay rendering and speech synthesis are external collaborators reached
// through the narrow interfaces defined here.
package pipeline

import (
	"context"
	"image"
	"time"

	"github.com/roadwatch/roadwatch/alert"
	"github.com/roadwatch/roadwatch/decode"
	"github.com/roadwatch/roadwatch/frame"
	"github.com/roadwatch/roadwatch/objdet"
)

// FrameSource provides captured screen frames. Open is called once at
// session start and its failure prevents the session from starting; Close
// releases capture resources and must be idempotent.
type FrameSource interface {
	Open(ctx context.Context) error
	// Latest returns the most recent frame, or false when none is
	// available yet. Absence of a frame is not an error.
	Latest(ctx context.Context) (*frame.RawFrame, bool, error)
	Close(ctx context.Context) error
}

// InferenceRuntime runs the loaded model on one input tensor. It is treated
// as an opaque black box returning raw output tensors.
type InferenceRuntime interface {
	Infer(ctx context.Context, t *frame.Tensor) (decode.RawOutput, error)
}

// ModelAssetResolver supplies the configuration of a model selected by name:
// input size, output layout, and label table.
type ModelAssetResolver interface {
	Resolve(name string) (decode.ModelConfig, error)
}

// OverlaySink receives each frame's detections already mapped to display
// coordinates. Calls are fire-and-forget.
type OverlaySink interface {
	Update(detections []objdet.Detection)
}

// AlertSink receives spoken alert requests. Delivery and platform speech
// queuing are the sink's concern.
type AlertSink interface {
	Speak(message string)
}

// Config tunes one detection session.
type Config struct {
	// Model names the model configuration to resolve.
	Model string
	// TargetInterval is the cadence the loop paces itself toward.
	TargetInterval time.Duration
	// MinInterval is the pacing floor so the loop never starves the host
	// scheduler.
	MinInterval time.Duration
	// ConfidenceThreshold is the initial decode threshold; it can be
	// adjusted mid-session and is read at the top of every decode call.
	// Zero selects the 0.5 default; negative values admit every candidate.
	ConfidenceThreshold float64
	// IoUThreshold drives non-max suppression.
	IoUThreshold float64
	// MinDetectionArea drops detections whose display-space bounding box
	// area falls below this many square pixels. Zero disables the filter.
	MinDetectionArea int
	// DisplaySize is the coordinate space detections are published in.
	DisplaySize image.Point
	// Normalization selects the preprocessing numeric range.
	Normalization frame.Normalization
	// Alert tunes announcement debouncing.
	Alert alert.Config
	// DecoderOptions override decoder tuning defaults.
	DecoderOptions []decode.Option
}

const (
	defaultTargetInterval      = 200 * time.Millisecond
	defaultMinInterval         = 15 * time.Millisecond
	defaultConfidenceThreshold = 0.5
	defaultIoUThreshold        = 0.45
)

func (c *Config) applyDefaults() {
	if c.TargetInterval <= 0 {
		c.TargetInterval = defaultTargetInterval
	}
	if c.MinInterval <= 0 {
		c.MinInterval = defaultMinInterval
	}
	if c.ConfidenceThreshold == 0 {
		c.ConfidenceThreshold = defaultConfidenceThreshold
	}
	if c.IoUThreshold <= 0 {
		c.IoUThreshold = defaultIoUThreshold
	}
	if c.DisplaySize.X <= 0 || c.DisplaySize.Y <= 0 {
		c.DisplaySize = image.Pt(1280, 720)
	}
}
