// Package wrappers implements wrappers that turn rendered frames into
// the observations consumed by agents.
package wrappers

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"gorgonia.org/tensor"
)

// Luminance weights of the red, green, and blue channels
const (
	LumaR = 0.2125
	LumaG = 0.7154
	LumaB = 0.0721
)

// Preprocessor converts rendered RGB frames to grayscale frames in
// [0, 1] of a fixed size
type Preprocessor struct {
	Height int
	Width  int
}

// NewPreprocessor returns a Preprocessor producing frames of shape
// [height, width]
func NewPreprocessor(height, width int) (Preprocessor, error) {
	if height <= 0 || width <= 0 {
		return Preprocessor{}, fmt.Errorf("newpreprocessor: illegal frame "+
			"size %vx%v", height, width)
	}
	return Preprocessor{Height: height, Width: width}, nil
}

// Grayscale converts img to its luminance with 16 bits of precision
func Grayscale(img image.Image) *image.Gray16 {
	bounds := img.Bounds()
	gray := image.NewGray16(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			lum := LumaR*float64(r) + LumaG*float64(g) + LumaB*float64(b)
			lum = math.Min(math.Round(lum), math.MaxUint16)
			gray.SetGray16(x, y, color.Gray16{Y: uint16(lum)})
		}
	}
	return gray
}

// Process converts img to grayscale, scales it to [0, 1], and resizes
// it with bilinear interpolation. The returned tensor has shape
// [Height, Width].
func (p Preprocessor) Process(img image.Image) (*tensor.Dense, error) {
	if img == nil {
		return nil, fmt.Errorf("process: nil frame")
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("process: empty frame")
	}

	gray := Grayscale(img)
	resized := image.NewGray16(image.Rect(0, 0, p.Width, p.Height))
	draw.BiLinear.Scale(resized, resized.Bounds(), gray, gray.Bounds(),
		draw.Src, nil)

	data := make([]float64, p.Height*p.Width)
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			data[y*p.Width+x] = float64(resized.Gray16At(x, y).Y) /
				math.MaxUint16
		}
	}

	return tensor.New(
		tensor.WithShape(p.Height, p.Width),
		tensor.WithBacking(data),
	), nil
}
