// Package objdet provides the detection primitives shared by the hazard
// pipeline: the Detection type, functional postprocessors, greedy non-max
// suppression, and coordinate-space scaling.
package objdet

import (
	"fmt"
	"image"
)

// Detection returns a bounding box around a detected hazard, along with the
// model's confidence and raw label for it.
type Detection interface {
	// BoundingBox returns the rectangle of the detection in the coordinate
	// space it was declared in.
	BoundingBox() *image.Rectangle
	// Score returns the confidence of the detection, between 0 and 1.
	Score() float64
	// Label returns the raw model label of the detection.
	Label() string
}

// NewDetection creates a simple 2D detection.
func NewDetection(boundingBox image.Rectangle, score float64, label string) Detection {
	return &detection2D{boundingBox, score, label}
}

type detection2D struct {
	boundingBox image.Rectangle
	score       float64
	label       string
}

func (d *detection2D) BoundingBox() *image.Rectangle {
	return &d.boundingBox
}

func (d *detection2D) Score() float64 {
	return d.score
}

func (d *detection2D) Label() string {
	return d.label
}

func (d *detection2D) String() string {
	return fmt.Sprintf("Label: %s, Score: %.2f, Location: %v", d.label, d.score, d.boundingBox)
}
