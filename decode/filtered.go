package decode

import (
	"image"
	"math"

	"github.com/pkg/errors"

	"github.com/roadwatch/roadwatch/hazard"
	"github.com/roadwatch/roadwatch/objdet"
)

// filteredDecoder reads the triple-tensor layout. The model has already done
// its own confidence filtering, so decoding is a threshold pass plus a
// linear rescale from the model's native square space to the target size.
type filteredDecoder struct {
	nativeSize int
	labels     []string
	table      *hazard.Table
}

func (d *filteredDecoder) Decode(
	out RawOutput, confidenceThreshold float64, targetWidth, targetHeight int,
) ([]objdet.Detection, error) {
	f, ok := out.(Filtered)
	if !ok {
		return nil, errors.Errorf("expected filtered output, got %T", out)
	}
	n := len(f.Scores)
	if len(f.Labels) != n || len(f.Boxes) != 4*n {
		return nil, errors.Errorf(
			"malformed filtered output: %d scores, %d labels, %d box values",
			n, len(f.Labels), len(f.Boxes))
	}
	scaleX := float64(targetWidth) / float64(d.nativeSize)
	scaleY := float64(targetHeight) / float64(d.nativeSize)
	detections := make([]objdet.Detection, 0, n)
	for i := 0; i < n; i++ {
		score := float64(f.Scores[i])
		if score < confidenceThreshold {
			continue
		}
		id := f.Labels[i]
		if id < 0 || int(id) >= len(d.labels) {
			continue
		}
		label := d.labels[id]
		if d.table.Lookup(label) == hazard.Unknown {
			continue
		}
		box := toFloat64s(f.Boxes[4*i : 4*i+4])
		xMin, yMin, xMax, yMax := box[0], box[1], box[2], box[3]
		if xMax <= xMin || yMax <= yMin {
			continue
		}
		rect := image.Rect(
			int(math.Round(clamp(xMin*scaleX, 0, float64(targetWidth)))),
			int(math.Round(clamp(yMin*scaleY, 0, float64(targetHeight)))),
			int(math.Round(clamp(xMax*scaleX, 0, float64(targetWidth)))),
			int(math.Round(clamp(yMax*scaleY, 0, float64(targetHeight)))),
		)
		detections = append(detections, objdet.NewDetection(rect, score, label))
	}
	return detections, nil
}
