package objdet

import (
	"image"
	"testing"

	"go.viam.com/test"
)

func TestScoreFilter(t *testing.T) {
	filt := NewScoreFilter(0.5)
	in := []Detection{
		NewDetection(image.Rect(0, 0, 10, 10), 0.4, "pothole"),
		NewDetection(image.Rect(0, 0, 10, 10), 0.5, "pothole"),
		NewDetection(image.Rect(0, 0, 10, 10), 0.6, "pothole"),
	}
	out := filt(in)
	test.That(t, out, test.ShouldHaveLength, 2)
}

func TestAreaFilter(t *testing.T) {
	filt := NewAreaFilter(100)
	in := []Detection{
		NewDetection(image.Rect(0, 0, 5, 5), 0.9, "pothole"),
		NewDetection(image.Rect(0, 0, 10, 10), 0.9, "pothole"),
	}
	out := filt(in)
	test.That(t, out, test.ShouldHaveLength, 1)
	test.That(t, out[0].BoundingBox().Dx(), test.ShouldEqual, 10)
}

func TestScaler(t *testing.T) {
	scale := NewScaler(image.Pt(640, 640), image.Pt(1280, 720))
	in := []Detection{NewDetection(image.Rect(64, 64, 320, 640), 0.8, "pedestrian")}
	out := scale(in)
	test.That(t, out, test.ShouldHaveLength, 1)
	bb := out[0].BoundingBox()
	test.That(t, bb.Min.X, test.ShouldEqual, 128)
	test.That(t, bb.Min.Y, test.ShouldEqual, 72)
	test.That(t, bb.Max.X, test.ShouldEqual, 640)
	test.That(t, bb.Max.Y, test.ShouldEqual, 720)
	// score and label carry through untouched
	test.That(t, out[0].Score(), test.ShouldEqual, 0.8)
	test.That(t, out[0].Label(), test.ShouldEqual, "pedestrian")
}

func TestScalerIdentity(t *testing.T) {
	scale := NewScaler(image.Pt(640, 640), image.Pt(640, 640))
	in := []Detection{NewDetection(image.Rect(1, 2, 3, 4), 0.5, "hump")}
	out := scale(in)
	test.That(t, *out[0].BoundingBox(), test.ShouldResemble, image.Rect(1, 2, 3, 4))
}
