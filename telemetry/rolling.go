package telemetry

import "github.com/montanaflynn/stats"

// rollingWindow is a fixed-capacity sample window; the oldest sample is
// evicted once the window is full.
type rollingWindow struct {
	data   []float64
	pos    int
	filled int
}

func newRollingWindow(numSamples int) *rollingWindow {
	return &rollingWindow{data: make([]float64, numSamples)}
}

func (w *rollingWindow) Add(x float64) {
	w.data[w.pos] = x
	w.pos++
	if w.pos >= len(w.data) {
		w.pos = 0
	}
	if w.filled < len(w.data) {
		w.filled++
	}
}

// Mean averages the samples currently held, not the full capacity.
func (w *rollingWindow) Mean() float64 {
	if w.filled == 0 {
		return 0
	}
	contents := make([]float64, 0, w.filled)
	if w.filled < len(w.data) {
		contents = append(contents, w.data[:w.filled]...)
	} else {
		contents = append(contents, w.data...)
	}
	mean, err := stats.Mean(contents)
	if err != nil {
		return 0
	}
	return mean
}
