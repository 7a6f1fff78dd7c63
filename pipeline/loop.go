package pipeline

import (
	"context"
	"image"
	"math"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/roadwatch/roadwatch/alert"
	"github.com/roadwatch/roadwatch/decode"
	"github.com/roadwatch/roadwatch/frame"
	"github.com/roadwatch/roadwatch/hazard"
	"github.com/roadwatch/roadwatch/objdet"
	"github.com/roadwatch/roadwatch/telemetry"
)

// ErrAlreadyRunning is returned by Start when a session is in progress.
// Exactly one loop runs per session; a second Start never spawns a second
// concurrent loop.
var ErrAlreadyRunning = errors.New("detection loop already running")

// Deps are the external collaborators the loop drives. Overlay and Alerts
// may be nil.
type Deps struct {
	Source  FrameSource
	Runtime InferenceRuntime
	Models  ModelAssetResolver
	Overlay OverlaySink
	Alerts  AlertSink
	Clock   clock.Clock
}

// Loop owns the detection session lifecycle: Idle -> Running -> Idle. All
// aggregate state is created at Start and discarded at Stop; published
// snapshots are replaced atomically so readers always observe a complete,
// self-consistent value.
type Loop struct {
	logger golog.Logger
	cfg    Config
	deps   Deps
	clk    clock.Clock

	confidenceBits atomic.Uint64

	mu                      sync.Mutex
	running                 bool
	cancel                  context.CancelFunc
	activeBackgroundWorkers sync.WaitGroup
	sourceOpen              bool

	perf       atomic.Pointer[telemetry.PerformanceSnapshot]
	hazards    atomic.Pointer[telemetry.HazardStatsSnapshot]
	recent     atomic.Pointer[[]telemetry.Batch]
	detections atomic.Pointer[[]objdet.Detection]
}

// New creates an idle loop. Start must be called to begin a session.
func New(cfg Config, deps Deps, logger golog.Logger) (*Loop, error) {
	if deps.Source == nil {
		return nil, errors.New("detection loop needs a frame source")
	}
	if deps.Runtime == nil {
		return nil, errors.New("detection loop needs an inference runtime")
	}
	if deps.Models == nil {
		return nil, errors.New("detection loop needs a model resolver")
	}
	cfg.applyDefaults()
	clk := deps.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Loop{logger: logger, cfg: cfg, deps: deps, clk: clk}, nil
}

// session bundles the state built fresh for each Start and discarded at
// Stop. It is confined to the loop goroutine.
type session struct {
	id        uuid.UUID
	inputSize int
	pre       *frame.Preprocessor
	decoder   decode.Decoder
	nms       objdet.Postprocessor
	scale     objdet.Postprocessor
	area      objdet.Postprocessor
	table     *hazard.Table
	agg       *telemetry.Aggregator
	policy    *alert.Policy
	skipped   int
}

func (l *Loop) newSession(modelCfg decode.ModelConfig, decoder decode.Decoder) *session {
	var area objdet.Postprocessor
	if l.cfg.MinDetectionArea > 0 {
		area = objdet.NewAreaFilter(l.cfg.MinDetectionArea)
	}
	return &session{
		id:        uuid.New(),
		inputSize: modelCfg.InputSize,
		pre:       frame.NewPreprocessor(modelCfg.InputSize, l.cfg.Normalization),
		decoder:   decoder,
		nms:       objdet.NewNMSFilter(l.cfg.IoUThreshold),
		scale:     objdet.NewScaler(image.Pt(modelCfg.InputSize, modelCfg.InputSize), l.cfg.DisplaySize),
		area:      area,
		table:     hazard.TableFromLabels(modelCfg.Labels),
		agg:       telemetry.NewAggregator(l.clk),
		policy:    alert.NewPolicy(l.cfg.Alert, l.clk),
	}
}

// Start transitions Idle -> Running. Failure to resolve the model or open
// the frame source is fatal: the error is returned and the session never
// starts. Starting while already Running is rejected.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return ErrAlreadyRunning
	}

	modelCfg, err := l.deps.Models.Resolve(l.cfg.Model)
	if err != nil {
		return errors.Wrapf(err, "resolve model %q", l.cfg.Model)
	}
	decoder, err := decode.New(modelCfg, l.cfg.DecoderOptions...)
	if err != nil {
		return errors.Wrapf(err, "build decoder for model %q", l.cfg.Model)
	}
	if err := l.deps.Source.Open(ctx); err != nil {
		return errors.Wrap(err, "open frame source")
	}
	l.sourceOpen = true

	s := l.newSession(modelCfg, decoder)
	l.SetConfidenceThreshold(l.cfg.ConfidenceThreshold)
	l.perf.Store(&telemetry.PerformanceSnapshot{})
	l.hazards.Store(&telemetry.HazardStatsSnapshot{Counts: map[hazard.Category]int{}})
	l.recent.Store(&[]telemetry.Batch{})
	l.detections.Store(&[]objdet.Detection{})

	cancelCtx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.running = true
	l.activeBackgroundWorkers.Add(1)
	goutils.PanicCapturingGo(func() {
		defer l.activeBackgroundWorkers.Done()
		l.run(cancelCtx, s)
	})
	l.logger.Infow("detection session started",
		"session", s.id, "model", modelCfg.Name, "layout", modelCfg.Layout, "input_size", modelCfg.InputSize)
	return nil
}

// Stop transitions Running -> Idle: it cancels any pending tick, waits for
// the loop goroutine, and releases the frame source exactly once. Calling
// Stop from Idle, or repeatedly, is safe.
func (l *Loop) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.activeBackgroundWorkers.Wait()
	l.running = false
	if l.sourceOpen {
		l.sourceOpen = false
		if err := l.deps.Source.Close(context.Background()); err != nil {
			return errors.Wrap(err, "close frame source")
		}
	}
	return nil
}

// Running reports whether a session is in progress.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// SetConfidenceThreshold adjusts the decode threshold mid-session. The new
// value takes effect at the next tick's decode call.
func (l *Loop) SetConfidenceThreshold(v float64) {
	l.confidenceBits.Store(math.Float64bits(v))
}

// ConfidenceThreshold returns the current decode threshold.
func (l *Loop) ConfidenceThreshold() float64 {
	return math.Float64frombits(l.confidenceBits.Load())
}

// Performance returns the latest performance snapshot.
func (l *Loop) Performance() telemetry.PerformanceSnapshot {
	if p := l.perf.Load(); p != nil {
		return *p
	}
	return telemetry.PerformanceSnapshot{}
}

// HazardStats returns the latest hazard counter snapshot.
func (l *Loop) HazardStats() telemetry.HazardStatsSnapshot {
	if p := l.hazards.Load(); p != nil {
		return *p
	}
	return telemetry.HazardStatsSnapshot{Counts: map[hazard.Category]int{}}
}

// Recent returns the retained recent detection batches, most recent first.
func (l *Loop) Recent() []telemetry.Batch {
	if p := l.recent.Load(); p != nil {
		return *p
	}
	return nil
}

// Detections returns the current frame's detections in display coordinates.
func (l *Loop) Detections() []objdet.Detection {
	if p := l.detections.Load(); p != nil {
		return *p
	}
	return nil
}

func (l *Loop) run(ctx context.Context, s *session) {
	defer l.logger.Infow("detection session ended", "session", s.id, "skipped_ticks", s.skipped)
	for {
		if ctx.Err() != nil {
			return
		}
		start := l.clk.Now()
		l.tick(ctx, s)
		elapsed := l.clk.Since(start)
		delay := l.cfg.TargetInterval - elapsed
		if delay < l.cfg.MinInterval {
			delay = l.cfg.MinInterval
		}
		if !goutils.SelectContextOrWait(ctx, delay) {
			return
		}
	}
}

// tick runs one pipeline pass. Transient failures degrade to a skipped tick
// or an empty detection set; nothing here ends the session.
func (l *Loop) tick(ctx context.Context, s *session) {
	start := l.clk.Now()
	raw, ok, err := l.deps.Source.Latest(ctx)
	if err != nil {
		s.skipped++
		l.logger.Debugw("frame acquisition failed", "session", s.id, "error", err, "skipped_ticks", s.skipped)
		return
	}
	if !ok {
		return
	}

	tensor, err := s.pre.Prepare(raw)
	if err != nil {
		s.skipped++
		l.logger.Warnw("frame preprocessing failed", "session", s.id, "error", err, "skipped_ticks", s.skipped)
		return
	}

	var detections []objdet.Detection
	out, err := l.deps.Runtime.Infer(ctx, tensor)
	if err != nil {
		s.skipped++
		l.logger.Warnw("inference failed, continuing with zero detections",
			"session", s.id, "error", err, "skipped_ticks", s.skipped)
	} else {
		detections, err = s.decoder.Decode(out, l.ConfidenceThreshold(), s.inputSize, s.inputSize)
		if err != nil {
			l.logger.Warnw("malformed model output, dropping frame detections", "session", s.id, "error", err)
			detections = nil
		}
	}
	detections = s.nms(detections)
	display := s.scale(detections)
	if s.area != nil {
		display = s.area(display)
	}

	perf, stats := s.agg.Update(display, s.table, l.clk.Since(start))
	recent := s.agg.Recent()
	l.perf.Store(&perf)
	l.hazards.Store(&stats)
	l.recent.Store(&recent)
	l.detections.Store(&display)

	if l.deps.Overlay != nil {
		l.deps.Overlay.Update(display)
	}
	if msg, speak := s.policy.Evaluate(display, s.table); speak {
		l.logger.Infow("announcing hazard", "session", s.id, "message", msg)
		if l.deps.Alerts != nil {
			l.deps.Alerts.Speak(msg)
		}
	}
}
