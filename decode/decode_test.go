package decode

import (
	"math"
	"testing"

	"go.viam.com/test"

	"github.com/roadwatch/roadwatch/objdet"
)

var roadLabels = []string{"animals", "humps", "pedestrian", "pothole", "roadworks"}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// denseGridOutput builds a 4-anchor grid where only anchor 1 is active.
func denseGridOutput() DenseGrid {
	const numAnchors = 4
	channels := make([][]float32, denseGridHeaderChannels+len(roadLabels))
	for i := range channels {
		channels[i] = make([]float32, numAnchors)
	}
	for a := 0; a < numAnchors; a++ {
		channels[4][a] = -6 // objectness logit below the pre-gate
		for k := 0; k < len(roadLabels); k++ {
			channels[denseGridHeaderChannels+k][a] = -4
		}
	}
	// anchor 1: confident pedestrian centered on the frame
	channels[0][1] = 0.5 // cx
	channels[1][1] = 0.5 // cy
	channels[2][1] = 0.2 // w
	channels[3][1] = 0.4 // h
	channels[4][1] = 4   // objectness logit, sigmoid ~0.98
	channels[denseGridHeaderChannels+2][1] = 3
	return DenseGrid{Channels: channels}
}

func TestDenseGridDecode(t *testing.T) {
	dec, err := New(ModelConfig{
		Name:      "roadnet",
		InputSize: 640,
		Layout:    LayoutDenseGrid,
		Labels:    roadLabels,
	})
	test.That(t, err, test.ShouldBeNil)

	dets, err := dec.Decode(denseGridOutput(), 0.25, 640, 640)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dets, test.ShouldHaveLength, 1)
	test.That(t, dets[0].Label(), test.ShouldEqual, "pedestrian")
	test.That(t, dets[0].Score(), test.ShouldAlmostEqual, sigmoid(4)*sigmoid(3), 1e-6)
	bb := dets[0].BoundingBox()
	test.That(t, bb.Min.X, test.ShouldEqual, 256)
	test.That(t, bb.Min.Y, test.ShouldEqual, 192)
	test.That(t, bb.Max.X, test.ShouldEqual, 384)
	test.That(t, bb.Max.Y, test.ShouldEqual, 448)

	// a single candidate passes through NMS untouched
	nms := objdet.NewNMSFilter(0.45)
	test.That(t, nms(dets), test.ShouldHaveLength, 1)
}

func TestDenseGridThresholdMonotonic(t *testing.T) {
	dec, err := New(ModelConfig{Name: "roadnet", InputSize: 640, Layout: LayoutDenseGrid, Labels: roadLabels})
	test.That(t, err, test.ShouldBeNil)
	out := denseGridOutput()
	prev := math.MaxInt
	for _, threshold := range []float64{0.0, 0.25, 0.5, 0.9, 0.95} {
		dets, err := dec.Decode(out, threshold, 640, 640)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, len(dets), test.ShouldBeLessThanOrEqualTo, prev)
		prev = len(dets)
	}
}

func TestDenseGridDropsTinyBoxes(t *testing.T) {
	out := denseGridOutput()
	out.Channels[2][1] = 0.005 // 3.2 px wide in a 640 target
	dec, err := New(ModelConfig{Name: "roadnet", InputSize: 640, Layout: LayoutDenseGrid, Labels: roadLabels})
	test.That(t, err, test.ShouldBeNil)
	dets, err := dec.Decode(out, 0.25, 640, 640)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dets, test.ShouldBeEmpty)

	// a lower minimum keeps it
	dec, err = New(
		ModelConfig{Name: "roadnet", InputSize: 640, Layout: LayoutDenseGrid, Labels: roadLabels},
		WithMinBoxSize(2),
	)
	test.That(t, err, test.ShouldBeNil)
	dets, err = dec.Decode(out, 0.25, 640, 640)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dets, test.ShouldHaveLength, 1)
}

func TestDenseGridUnknownClass(t *testing.T) {
	// label table shorter than the class channel count
	dec, err := New(ModelConfig{Name: "roadnet", InputSize: 640, Layout: LayoutDenseGrid, Labels: roadLabels[:2]})
	test.That(t, err, test.ShouldBeNil)
	dets, err := dec.Decode(denseGridOutput(), 0.25, 640, 640)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dets, test.ShouldHaveLength, 1)
	test.That(t, dets[0].Label(), test.ShouldEqual, UnknownLabel)
}

func TestDenseGridMalformed(t *testing.T) {
	dec, err := New(ModelConfig{Name: "roadnet", InputSize: 640, Layout: LayoutDenseGrid, Labels: roadLabels})
	test.That(t, err, test.ShouldBeNil)

	_, err = dec.Decode(Filtered{}, 0.25, 640, 640)
	test.That(t, err, test.ShouldNotBeNil)

	uneven := denseGridOutput()
	uneven.Channels[3] = uneven.Channels[3][:2]
	_, err = dec.Decode(uneven, 0.25, 640, 640)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = dec.Decode(DenseGrid{Channels: make([][]float32, 3)}, 0.25, 640, 640)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFilteredDecodeWithNMS(t *testing.T) {
	dec, err := New(ModelConfig{
		Name:      "roadnet-lite",
		InputSize: 320,
		Layout:    LayoutFiltered,
		Labels:    roadLabels,
	})
	test.That(t, err, test.ShouldBeNil)

	// two overlapping potholes, IoU ~0.9
	out := Filtered{
		Boxes: []float32{
			10, 10, 110, 110,
			12, 12, 112, 112,
		},
		Labels: []int64{3, 3},
		Scores: []float32{0.9, 0.6},
	}
	dets, err := dec.Decode(out, 0.5, 640, 640)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dets, test.ShouldHaveLength, 2)
	test.That(t, objdet.IoU(dets[0], dets[1]), test.ShouldBeGreaterThan, 0.85)
	// native 320 boxes scale 2x into the 640 target
	test.That(t, dets[0].BoundingBox().Min.X, test.ShouldEqual, 20)
	test.That(t, dets[0].BoundingBox().Max.X, test.ShouldEqual, 220)

	nms := objdet.NewNMSFilter(0.45)
	kept := nms(dets)
	test.That(t, kept, test.ShouldHaveLength, 1)
	test.That(t, kept[0].Score(), test.ShouldAlmostEqual, 0.9, 1e-6)
}

func TestFilteredDecodeRejects(t *testing.T) {
	dec, err := New(ModelConfig{Name: "roadnet-lite", InputSize: 320, Layout: LayoutFiltered, Labels: roadLabels})
	test.That(t, err, test.ShouldBeNil)

	out := Filtered{
		Boxes: []float32{
			10, 10, 110, 110, // below threshold
			10, 10, 110, 110, // label id out of range
			50, 50, 40, 60, // degenerate box
		},
		Labels: []int64{3, 9, 3},
		Scores: []float32{0.4, 0.9, 0.9},
	}
	dets, err := dec.Decode(out, 0.5, 640, 640)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dets, test.ShouldBeEmpty)
}

func TestFilteredDecodeMalformed(t *testing.T) {
	dec, err := New(ModelConfig{Name: "roadnet-lite", InputSize: 320, Layout: LayoutFiltered, Labels: roadLabels})
	test.That(t, err, test.ShouldBeNil)

	_, err = dec.Decode(Filtered{Boxes: []float32{1, 2, 3, 4}, Labels: []int64{0, 1}, Scores: []float32{0.9}}, 0.5, 640, 640)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = dec.Decode(DenseGrid{}, 0.5, 640, 640)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNewDecoderRejectsUnknownLayout(t *testing.T) {
	_, err := New(ModelConfig{Name: "x", InputSize: 640, Layout: Layout("mystery")})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = New(ModelConfig{Name: "x", InputSize: 0, Layout: LayoutFiltered})
	test.That(t, err, test.ShouldNotBeNil)
}
