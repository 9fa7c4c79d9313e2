package vision

import (
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/blend"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/fcolor"
	"github.com/disintegration/imaging"
)

// binomial5x5 is the 5x5 Gaussian OpenCV derives for sigma 0: the outer
// product of [1 4 6 4 1] with itself, normalized by 256.
var binomial5x5 = [25]float64{
	1, 4, 6, 4, 1,
	4, 16, 24, 16, 4,
	6, 24, 36, 24, 6,
	4, 16, 24, 16, 4,
	1, 4, 6, 4, 1,
}

var (
	sobelX = [9]float64{
		-1, 0, 1,
		-2, 0, 2,
		-1, 0, 1,
	}
	sobelY = [9]float64{
		-1, -2, -1,
		0, 0, 0,
		1, 2, 1,
	}
)

type bildBackend struct{}

// Bild returns the pure-Go backend built on bild and imaging. Borders are
// handled by edge replication.
func Bild() Backend {
	return bildBackend{}
}

func (bildBackend) Name() string { return "bild" }

func (bildBackend) Blur(src *image.Gray) (*image.Gray, error) {
	out := imaging.Convolve5x5(atOrigin(src), binomial5x5, &imaging.ConvolveOptions{Normalize: true})
	return fromNRGBA(out), nil
}

func (bildBackend) Threshold(src *image.Gray, level, maxValue uint8) (*image.Gray, error) {
	out := adjust.Apply(atOrigin(src), func(c color.RGBA) color.RGBA {
		v := uint8(0)
		if c.R > level {
			v = maxValue
		}
		return color.RGBA{R: v, G: v, B: v, A: 255}
	})
	return fromRGBA(out), nil
}

func (bildBackend) Gradient(src *image.Gray) (*image.Gray, error) {
	src = atOrigin(src)
	opts := &imaging.ConvolveOptions{Abs: true}
	gx := imaging.Convolve3x3(src, sobelX, opts)
	gy := imaging.Convolve3x3(src, sobelY, opts)
	return fromRGBA(blend.Blend(gx, gy, halfSum)), nil
}

// halfSum averages two gray samples and rounds half to even, the way a
// saturating 8-bit weighted add does. Blend truncates on the way back to
// 8 bits, so the result is stored half a level high.
func halfSum(a, b fcolor.RGBAF64) fcolor.RGBAF64 {
	k := math.RoundToEven(0.5*math.Round(a.R*255) + 0.5*math.Round(b.R*255))
	v := (k + 0.5) / 255
	return fcolor.RGBAF64{R: v, G: v, B: v, A: 1}
}

func (bildBackend) Dilate(src *image.Gray) (*image.Gray, error) {
	return fromRGBA(effect.Dilate(atOrigin(src), 1)), nil
}
