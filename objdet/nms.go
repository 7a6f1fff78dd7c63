package objdet

import "sort"

// iouEpsilon keeps the IoU denominator away from zero for degenerate boxes.
const iouEpsilon = 1e-9

// IoU computes the intersection-over-union of two detections' bounding
// boxes: intersection area over total covered area, in [0, 1].
func IoU(a, b Detection) float64 {
	ra, rb := a.BoundingBox(), b.BoundingBox()
	inter := ra.Intersect(*rb)
	interArea := float64(inter.Dx() * inter.Dy())
	areaA := float64(ra.Dx() * ra.Dy())
	areaB := float64(rb.Dx() * rb.Dy())
	return interArea / (areaA + areaB - interArea + iouEpsilon)
}

// NewNMSFilter returns a postprocessor performing greedy non-max
// suppression: detections are taken in descending score order, and every
// remaining detection overlapping a kept one by more than iouThreshold is
// discarded. Ties in score keep their input order. The result is sorted by
// descending score.
func NewNMSFilter(iouThreshold float64) Postprocessor {
	return func(in []Detection) []Detection {
		remaining := make([]Detection, len(in))
		copy(remaining, in)
		sort.SliceStable(remaining, func(i, j int) bool {
			return remaining[i].Score() > remaining[j].Score()
		})
		kept := make([]Detection, 0, len(remaining))
		for len(remaining) > 0 {
			best := remaining[0]
			kept = append(kept, best)
			next := remaining[:0]
			for _, d := range remaining[1:] {
				if IoU(best, d) <= iouThreshold {
					next = append(next, d)
				}
			}
			remaining = next
		}
		return kept
	}
}
