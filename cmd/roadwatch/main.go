// Package main runs the hazard detection pipeline end to end against a
// synthetic frame source and a canned inference runtime, printing overlay
// updates, telemetry snapshots, and spoken alerts to the log.
package main

import (
	"context"
	"image"
	"math"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/roadwatch/roadwatch/decode"
	"github.com/roadwatch/roadwatch/frame"
	"github.com/roadwatch/roadwatch/objdet"
	"github.com/roadwatch/roadwatch/pipeline"
)

var logger = golog.NewDevelopmentLogger("roadwatch")

func main() {
	goutils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	Model      string  `flag:"model,default=roadnet,usage=model configuration to load"`
	IntervalMS int     `flag:"interval,default=200,usage=target tick interval in milliseconds"`
	Confidence float64 `flag:"confidence,default=0.25,usage=initial confidence threshold"`
	DurationS  int     `flag:"duration,default=10,usage=seconds to run before exiting (0 runs until interrupted)"`
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	var argsParsed Arguments
	if err := goutils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	loop, err := pipeline.New(pipeline.Config{
		Model:               argsParsed.Model,
		TargetInterval:      time.Duration(argsParsed.IntervalMS) * time.Millisecond,
		ConfidenceThreshold: argsParsed.Confidence,
		DisplaySize:         image.Pt(1280, 720),
	}, pipeline.Deps{
		Source:  &syntheticSource{width: 640, height: 360},
		Runtime: &cannedRuntime{start: time.Now()},
		Models:  demoModels{},
		Overlay: logOverlay{logger, objdet.NewScoreFilter(0.8)},
		Alerts:  logSpeaker{logger},
	}, logger)
	if err != nil {
		return err
	}

	if err := loop.Start(ctx); err != nil {
		return errors.Wrap(err, "start detection session")
	}

	if argsParsed.DurationS > 0 {
		goutils.SelectContextOrWait(ctx, time.Duration(argsParsed.DurationS)*time.Second)
	} else {
		<-ctx.Done()
	}

	perf := loop.Performance()
	logger.Infow("session summary",
		"fps", perf.FPS,
		"avg_processing_ms", perf.AvgProcessingMS,
		"total_detections", perf.TotalDetections,
		"hazards", loop.HazardStats().Counts)
	return loop.Stop()
}

var demoLabels = []string{"animals", "humps", "pedestrian", "pothole", "roadworks"}

// demoModels resolves the built-in demo model configurations.
type demoModels struct{}

func (demoModels) Resolve(name string) (decode.ModelConfig, error) {
	switch name {
	case "roadnet":
		return decode.ModelConfig{Name: name, InputSize: 640, Layout: decode.LayoutDenseGrid, Labels: demoLabels}, nil
	case "roadnet-lite":
		return decode.ModelConfig{Name: name, InputSize: 320, Layout: decode.LayoutFiltered, Labels: demoLabels}, nil
	default:
		return decode.ModelConfig{}, errors.Errorf("unknown model %q", name)
	}
}

// syntheticSource produces gradient frames with padded rows, standing in for
// a screen capture session.
type syntheticSource struct {
	width  int
	height int
	tick   int
}

func (s *syntheticSource) Open(ctx context.Context) error {
	logger.Infow("synthetic capture opened", "width", s.width, "height", s.height)
	return nil
}

func (s *syntheticSource) Latest(ctx context.Context) (*frame.RawFrame, bool, error) {
	s.tick++
	stride := s.width*4 + 16
	pix := make([]byte, stride*s.height)
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			o := y*stride + x*4
			pix[o] = byte((x + s.tick) % 256)
			pix[o+1] = byte(y % 256)
			pix[o+2] = byte((x + y) % 256)
			pix[o+3] = 255
		}
	}
	return &frame.RawFrame{Width: s.width, Height: s.height, Stride: stride, Pix: pix}, true, nil
}

func (s *syntheticSource) Close(ctx context.Context) error {
	logger.Infow("synthetic capture released")
	return nil
}

// cannedRuntime emits a dense grid with one confident anchor that drifts
// across the frame and cycles through the hazard classes.
type cannedRuntime struct {
	start time.Time
}

func (r *cannedRuntime) Infer(ctx context.Context, t *frame.Tensor) (decode.RawOutput, error) {
	const numAnchors = 16
	channels := make([][]float32, 5+len(demoLabels))
	for i := range channels {
		channels[i] = make([]float32, numAnchors)
	}
	for a := 0; a < numAnchors; a++ {
		channels[4][a] = -8
	}
	elapsed := time.Since(r.start).Seconds()
	class := int(elapsed/4) % len(demoLabels)
	channels[0][0] = float32(0.5 + 0.3*math.Sin(elapsed/2))
	channels[1][0] = 0.6
	channels[2][0] = 0.2
	channels[3][0] = 0.25
	channels[4][0] = 4
	channels[5+class][0] = 3
	return decode.DenseGrid{Channels: channels}, nil
}

type logOverlay struct {
	logger    golog.Logger
	highlight objdet.Postprocessor
}

func (o logOverlay) Update(detections []objdet.Detection) {
	for _, d := range detections {
		o.logger.Debugw("overlay", "label", d.Label(), "score", d.Score(), "box", d.BoundingBox())
	}
	for _, d := range o.highlight(detections) {
		o.logger.Infow("hazard in view", "label", d.Label(), "score", d.Score())
	}
}

type logSpeaker struct {
	logger golog.Logger
}

func (s logSpeaker) Speak(message string) {
	s.logger.Infow("speak", "message", message)
}
