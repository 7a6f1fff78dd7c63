// Package frame holds the captured-frame representation and the
// preprocessing that turns a frame into a normalized model input tensor.
package frame

import (
	"image"

	"github.com/pkg/errors"
)

// RawFrame is one captured screen frame: RGBA pixels, 4 bytes per pixel,
// row-major. Stride is the byte length of one row and may exceed
// Width*4 when the capture source pads rows.
type RawFrame struct {
	Width  int
	Height int
	Stride int
	Pix    []byte
}

func (f *RawFrame) validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return errors.Errorf("frame has invalid dimensions %dx%d", f.Width, f.Height)
	}
	if f.Stride < f.Width*4 {
		return errors.Errorf("frame stride %d too small for width %d", f.Stride, f.Width)
	}
	if len(f.Pix) < f.Stride*f.Height {
		return errors.Errorf("frame buffer has %d bytes, need %d", len(f.Pix), f.Stride*f.Height)
	}
	return nil
}

// Image copies the frame into an image, dropping any row padding.
func (f *RawFrame) Image() (image.Image, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	rowBytes := f.Width * 4
	for y := 0; y < f.Height; y++ {
		copy(img.Pix[y*img.Stride:y*img.Stride+rowBytes], f.Pix[y*f.Stride:y*f.Stride+rowBytes])
	}
	return img, nil
}

// Tensor is a fixed-size HxWx3 float32 model input, row-major with
// interleaved RGB channels.
type Tensor struct {
	Width  int
	Height int
	Data   []float32
}

// At returns the normalized value of channel c (0=R, 1=G, 2=B) at (x, y).
func (t *Tensor) At(x, y, c int) float32 {
	return t.Data[(y*t.Width+x)*3+c]
}
