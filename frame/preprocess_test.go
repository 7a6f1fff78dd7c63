package frame

import (
	"testing"

	"go.viam.com/test"
)

// solidFrame builds a frame of one color with optional row padding.
func solidFrame(w, h, pad int, r, g, b byte) *RawFrame {
	stride := w*4 + pad
	pix := make([]byte, stride*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			o := y*stride + x*4
			pix[o], pix[o+1], pix[o+2], pix[o+3] = r, g, b, 255
		}
	}
	return &RawFrame{Width: w, Height: h, Stride: stride, Pix: pix}
}

func TestPrepareScale01(t *testing.T) {
	p := NewPreprocessor(64, Scale01)
	tensor, err := p.Prepare(solidFrame(128, 96, 0, 255, 0, 51))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tensor.Width, test.ShouldEqual, 64)
	test.That(t, tensor.Height, test.ShouldEqual, 64)
	test.That(t, tensor.Data, test.ShouldHaveLength, 64*64*3)
	test.That(t, tensor.At(10, 10, 0), test.ShouldAlmostEqual, 1.0, 1e-6)
	test.That(t, tensor.At(10, 10, 1), test.ShouldAlmostEqual, 0.0, 1e-6)
	test.That(t, tensor.At(10, 10, 2), test.ShouldAlmostEqual, 0.2, 1e-6)
}

func TestPrepareMeanStd(t *testing.T) {
	p := NewPreprocessor(32, MeanStd)
	tensor, err := p.Prepare(solidFrame(32, 32, 0, 255, 255, 255))
	test.That(t, err, test.ShouldBeNil)
	// white pixel standardized with the ImageNet constants
	test.That(t, tensor.At(0, 0, 0), test.ShouldAlmostEqual, (1.0-0.485)/0.229, 1e-4)
	test.That(t, tensor.At(0, 0, 1), test.ShouldAlmostEqual, (1.0-0.456)/0.224, 1e-4)
	test.That(t, tensor.At(0, 0, 2), test.ShouldAlmostEqual, (1.0-0.406)/0.225, 1e-4)
}

func TestPrepareHandlesRowPadding(t *testing.T) {
	p := NewPreprocessor(48, Scale01)
	plain, err := p.Prepare(solidFrame(100, 80, 0, 10, 20, 30))
	test.That(t, err, test.ShouldBeNil)
	padded, err := p.Prepare(solidFrame(100, 80, 28, 10, 20, 30))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, padded.Data, test.ShouldResemble, plain.Data)
}

func TestPrepareRejectsBadFrames(t *testing.T) {
	p := NewPreprocessor(64, Scale01)

	_, err := p.Prepare(&RawFrame{Width: 0, Height: 10, Stride: 0, Pix: nil})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "invalid dimensions")

	_, err = p.Prepare(&RawFrame{Width: 10, Height: 0, Stride: 40, Pix: make([]byte, 400)})
	test.That(t, err, test.ShouldNotBeNil)

	// buffer shorter than stride*height
	_, err = p.Prepare(&RawFrame{Width: 10, Height: 10, Stride: 40, Pix: make([]byte, 100)})
	test.That(t, err, test.ShouldNotBeNil)

	// stride smaller than a row
	_, err = p.Prepare(&RawFrame{Width: 10, Height: 10, Stride: 20, Pix: make([]byte, 400)})
	test.That(t, err, test.ShouldNotBeNil)
}
