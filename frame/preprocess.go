package frame

import (
	"github.com/disintegration/imaging"
)

// Normalization selects how pixel values are mapped into the numeric range
// the model expects. It is a pipeline configuration constant, never inferred
// at runtime.
type Normalization int

const (
	// Scale01 divides each channel by 255.
	Scale01 Normalization = iota
	// MeanStd standardizes each channel with the ImageNet mean and standard
	// deviation after scaling to [0, 1].
	MeanStd
)

var (
	imagenetMean = [3]float32{0.485, 0.456, 0.406}
	imagenetStd  = [3]float32{0.229, 0.224, 0.225}
)

// Preprocessor converts raw captured frames into model input tensors of a
// fixed square size.
type Preprocessor struct {
	size int
	norm Normalization
}

// NewPreprocessor returns a preprocessor producing size x size tensors with
// the given normalization.
func NewPreprocessor(size int, norm Normalization) *Preprocessor {
	return &Preprocessor{size: size, norm: norm}
}

// Prepare resamples the frame to the model input size with bilinear
// interpolation and normalizes it into a fresh tensor. The frame buffer is
// not retained.
func (p *Preprocessor) Prepare(f *RawFrame) (*Tensor, error) {
	img, err := f.Image()
	if err != nil {
		return nil, err
	}
	resized := imaging.Resize(img, p.size, p.size, imaging.Linear)

	t := &Tensor{
		Width:  p.size,
		Height: p.size,
		Data:   make([]float32, p.size*p.size*3),
	}
	i := 0
	for y := 0; y < p.size; y++ {
		row := resized.Pix[y*resized.Stride : y*resized.Stride+p.size*4]
		for x := 0; x < p.size; x++ {
			for c := 0; c < 3; c++ {
				v := float32(row[x*4+c]) / 255.0
				if p.norm == MeanStd {
					v = (v - imagenetMean[c]) / imagenetStd[c]
				}
				t.Data[i] = v
				i++
			}
		}
	}
	return t, nil
}
