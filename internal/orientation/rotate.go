package orientation

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/mat"
)

// Sub-pixel source positions are quantized to 1/32 pixel before interpolation.
const (
	interBits    = 5
	interTabSize = 1 << interBits
)

// RotationMatrix returns the 2x3 affine matrix that rotates by degrees about
// (cx, cy) and scales by scale.
//
// Positive angles rotate counter-clockwise as the image is displayed (row 0 at the
// top). The layout matches OpenCV's getRotationMatrix2D:
//
//	[ a  b  (1-a)*cx - b*cy ]
//	[ -b a  b*cx + (1-a)*cy ]
//
// with a = scale*cos(angle) and b = scale*sin(angle).
func RotationMatrix(cx, cy, degrees, scale float64) *mat.Dense {
	rad := degrees * math.Pi / 180
	a := math.Cos(rad) * scale
	b := math.Sin(rad) * scale

	return mat.NewDense(2, 3, []float64{
		a, b, (1-a)*cx - b*cy,
		-b, a, b*cx + (1-a)*cy,
	})
}

// Rotate rotates g by degrees about its center (cols/2, rows/2) at unit scale.
//
// The output has the same size as g. Samples are bilinearly interpolated, and
// any area that maps from outside g is filled with zero.
func Rotate(g Grid, degrees float64) (*image.Gray, error) {
	return newRotator(g).rotate(degrees)
}

// Warp applies the forward affine transform m (2x3) to g, producing an image of
// the same size. Each destination pixel samples g at m⁻¹·(x, y).
func Warp(g Grid, m *mat.Dense) (*image.Gray, error) {
	inv, err := invertAffine(m)
	if err != nil {
		return nil, err
	}
	rows, cols := g.Rows(), g.Cols()
	dst := image.NewGray(image.Rect(0, 0, cols, rows))
	resample(samples(g), cols, rows, 1, dst.Pix, dst.Stride, inv)
	return dst, nil
}

// RotateImage rotates a colour image the same way Rotate rotates a grid. Every
// channel, alpha included, is interpolated; the uncovered corners come out as
// transparent black.
func RotateImage(img image.Image, degrees float64) (*image.NRGBA, error) {
	src := imaging.Clone(img)
	cols, rows := src.Rect.Dx(), src.Rect.Dy()

	inv, err := invertAffine(RotationMatrix(float64(cols/2), float64(rows/2), degrees, 1))
	if err != nil {
		return nil, err
	}

	dst := image.NewNRGBA(image.Rect(0, 0, cols, rows))
	resample(src.Pix, cols, rows, 4, dst.Pix, dst.Stride, inv)
	return dst, nil
}

// rotator holds a flattened copy of a grid so repeated rotations skip the copy.
type rotator struct {
	src  []uint8
	rows int
	cols int
}

func newRotator(g Grid) *rotator {
	return &rotator{src: samples(g), rows: g.Rows(), cols: g.Cols()}
}

func (r *rotator) rotate(degrees float64) (*image.Gray, error) {
	m := RotationMatrix(float64(r.cols/2), float64(r.rows/2), degrees, 1)
	inv, err := invertAffine(m)
	if err != nil {
		return nil, err
	}
	dst := image.NewGray(image.Rect(0, 0, r.cols, r.rows))
	resample(r.src, r.cols, r.rows, 1, dst.Pix, dst.Stride, inv)
	return dst, nil
}

// invertAffine inverts a 2x3 affine matrix by completing it to 3x3.
func invertAffine(m *mat.Dense) ([6]float64, error) {
	var inv [6]float64
	r, c := m.Dims()
	if r != 2 || c != 3 {
		return inv, fmt.Errorf("affine matrix must be 2x3, got %dx%d", r, c)
	}

	full := mat.NewDense(3, 3, []float64{
		m.At(0, 0), m.At(0, 1), m.At(0, 2),
		m.At(1, 0), m.At(1, 1), m.At(1, 2),
		0, 0, 1,
	})
	var out mat.Dense
	if err := out.Inverse(full); err != nil {
		return inv, fmt.Errorf("failed to invert affine matrix: %w", err)
	}

	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			inv[i*3+j] = out.At(i, j)
		}
	}
	return inv, nil
}

// resample fills dst by sampling src (tightly packed, channels bytes per pixel)
// at inv·(x, y) with bilinear interpolation and a zero border.
func resample(src []uint8, cols, rows, channels int, dst []uint8, dstStride int, inv [6]float64) {
	rowStride := cols * channels
	for y := 0; y < rows; y++ {
		fy := float64(y)
		for x := 0; x < cols; x++ {
			fx := float64(x)
			sx := inv[0]*fx + inv[1]*fy + inv[2]
			sy := inv[3]*fx + inv[4]*fy + inv[5]

			qx := int(math.Round(sx * interTabSize))
			qy := int(math.Round(sy * interTabSize))
			x0, y0 := qx>>interBits, qy>>interBits
			wx := float64(qx&(interTabSize-1)) / interTabSize
			wy := float64(qy&(interTabSize-1)) / interTabSize

			out := dst[y*dstStride+x*channels:]
			for ch := 0; ch < channels; ch++ {
				v00 := sampleAt(src, rowStride, channels, cols, rows, x0, y0, ch)
				v01 := sampleAt(src, rowStride, channels, cols, rows, x0+1, y0, ch)
				v10 := sampleAt(src, rowStride, channels, cols, rows, x0, y0+1, ch)
				v11 := sampleAt(src, rowStride, channels, cols, rows, x0+1, y0+1, ch)

				v := (1-wy)*((1-wx)*v00+wx*v01) + wy*((1-wx)*v10+wx*v11)
				out[ch] = uint8(math.Min(255, math.Round(v)))
			}
		}
	}
}

func sampleAt(src []uint8, rowStride, channels, cols, rows, x, y, ch int) float64 {
	if x < 0 || y < 0 || x >= cols || y >= rows {
		return 0
	}
	return float64(src[y*rowStride+x*channels+ch])
}
