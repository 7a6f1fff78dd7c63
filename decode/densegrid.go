package decode

import (
	"image"
	"math"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/roadwatch/roadwatch/objdet"
)

// channels preceding the per-class logits: cx, cy, w, h, objectness.
const denseGridHeaderChannels = 5

// denseGridDecoder reads the anchor-grid layout. Every anchor is evaluated
// independently: objectness and class logits go through a sigmoid, the best
// class is selected, and the combined confidence is objectness times the
// best class probability. Box fractions are converted to absolute pixel
// corners in target space.
type denseGridDecoder struct {
	labels []string
	opts   options
}

func (d *denseGridDecoder) Decode(
	out RawOutput, confidenceThreshold float64, targetWidth, targetHeight int,
) ([]objdet.Detection, error) {
	g, ok := out.(DenseGrid)
	if !ok {
		return nil, errors.Errorf("expected dense grid output, got %T", out)
	}
	numChannels := len(g.Channels)
	if numChannels <= denseGridHeaderChannels {
		return nil, errors.Errorf("dense grid output has %d channels, need at least %d",
			numChannels, denseGridHeaderChannels+1)
	}
	numAnchors := len(g.Channels[0])
	for _, ch := range g.Channels {
		if len(ch) != numAnchors {
			return nil, errors.Errorf("dense grid channels have uneven anchor counts: %d vs %d",
				len(ch), numAnchors)
		}
	}
	if numAnchors == 0 {
		return nil, nil
	}
	numClasses := numChannels - denseGridHeaderChannels

	objectness, err := stats.Sigmoid(toFloat64s(g.Channels[4]))
	if err != nil {
		return nil, errors.Wrap(err, "sigmoid over objectness channel")
	}

	w, h := float64(targetWidth), float64(targetHeight)
	detections := make([]objdet.Detection, 0, 8)
	classLogits := make([]float64, numClasses)
	for a := 0; a < numAnchors; a++ {
		if objectness[a] < d.opts.objectnessGate {
			continue
		}
		for k := 0; k < numClasses; k++ {
			classLogits[k] = float64(g.Channels[denseGridHeaderChannels+k][a])
		}
		classProbs, err := stats.Sigmoid(classLogits)
		if err != nil {
			return nil, errors.Wrap(err, "sigmoid over class channels")
		}
		best := floats.MaxIdx(classProbs)
		confidence := objectness[a] * classProbs[best]
		if confidence < confidenceThreshold {
			continue
		}

		cx, cy := float64(g.Channels[0][a]), float64(g.Channels[1][a])
		bw, bh := float64(g.Channels[2][a]), float64(g.Channels[3][a])
		left := clamp((cx-bw/2)*w, 0, w)
		top := clamp((cy-bh/2)*h, 0, h)
		right := clamp((cx+bw/2)*w, 0, w)
		bottom := clamp((cy+bh/2)*h, 0, h)
		if right-left < float64(d.opts.minBoxSize) || bottom-top < float64(d.opts.minBoxSize) {
			continue
		}

		label := UnknownLabel
		if best < len(d.labels) {
			label = d.labels[best]
		}
		rect := image.Rect(
			int(math.Round(left)), int(math.Round(top)),
			int(math.Round(right)), int(math.Round(bottom)))
		detections = append(detections, objdet.NewDetection(rect, confidence, label))
	}
	return detections, nil
}
