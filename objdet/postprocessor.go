package objdet

import "image"

// Postprocessor defines a function that filters/modifies an incoming slice of
// Detections.
type Postprocessor func([]Detection) []Detection

// NewScoreFilter returns a function that filters out detections below a
// certain confidence.
func NewScoreFilter(conf float64) Postprocessor {
	return func(in []Detection) []Detection {
		out := make([]Detection, 0, len(in))
		for _, d := range in {
			if d.Score() >= conf {
				out = append(out, d)
			}
		}
		return out
	}
}

// NewAreaFilter returns a function that filters out detections below a
// certain bounding box area.
func NewAreaFilter(area int) Postprocessor {
	return func(in []Detection) []Detection {
		out := make([]Detection, 0, len(in))
		for _, d := range in {
			if d.BoundingBox().Dx()*d.BoundingBox().Dy() >= area {
				out = append(out, d)
			}
		}
		return out
	}
}

// NewScaler returns a function that linearly rescales detection bounding
// boxes from one coordinate space to another, each axis independently. The
// pipeline never letterboxes, so no aspect-ratio correction is applied.
func NewScaler(from, to image.Point) Postprocessor {
	scaleX := float64(to.X) / float64(from.X)
	scaleY := float64(to.Y) / float64(from.Y)
	return func(in []Detection) []Detection {
		out := make([]Detection, 0, len(in))
		for _, d := range in {
			bb := d.BoundingBox()
			scaled := image.Rect(
				int(float64(bb.Min.X)*scaleX),
				int(float64(bb.Min.Y)*scaleY),
				int(float64(bb.Max.X)*scaleX),
				int(float64(bb.Max.Y)*scaleY),
			)
			out = append(out, NewDetection(scaled, d.Score(), d.Label()))
		}
		return out
	}
}
