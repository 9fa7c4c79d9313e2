package orientation

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// smoothGray returns an image with slowly varying intensities, which survive
// bilinear resampling with little loss.
func smoothGray(cols, rows int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, cols, rows))
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v := 128 + 100*math.Sin(float64(x)/6)*math.Cos(float64(y)/7)
			img.Pix[y*img.Stride+x] = uint8(math.Round(v))
		}
	}
	return img
}

func TestRotationMatrix(t *testing.T) {
	m := RotationMatrix(10, 20, 90, 1)
	r, c := m.Dims()
	require.Equal(t, 2, r)
	require.Equal(t, 3, c)

	want := []float64{
		0, 1, -10,
		-1, 0, 30,
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			require.InDelta(t, want[i*3+j], m.At(i, j), 1e-9, "element (%d,%d)", i, j)
		}
	}

	// The centre is a fixed point for any angle.
	m = RotationMatrix(7, 3, 37, 1)
	x := m.At(0, 0)*7 + m.At(0, 1)*3 + m.At(0, 2)
	y := m.At(1, 0)*7 + m.At(1, 1)*3 + m.At(1, 2)
	require.InDelta(t, 7.0, x, 1e-9)
	require.InDelta(t, 3.0, y, 1e-9)
}

func TestRotate_ZeroIsIdentity(t *testing.T) {
	src := patternGray(23, 14)

	out, err := Rotate(NewGrayGrid(src), 0)
	require.NoError(t, err)
	require.Equal(t, src.Rect, out.Rect)
	require.Equal(t, src.Pix, out.Pix)
}

func TestRotate_QuarterTurnMovesPixel(t *testing.T) {
	src := newGray(11, 11, 0)
	src.SetGray(8, 5, color.Gray{Y: 255}) // row 5, col 8

	out, err := Rotate(NewGrayGrid(src), 90)
	require.NoError(t, err)

	// Counter-clockwise about (5, 5): right of centre moves above it.
	require.Equal(t, uint8(255), out.GrayAt(5, 2).Y)

	var lit int
	for _, v := range out.Pix {
		if v != 0 {
			lit++
		}
	}
	require.Equal(t, 1, lit)
}

func TestRotate_PreservesSize(t *testing.T) {
	src := patternGray(40, 17)
	for _, deg := range []float64{5, 90, 135, 180} {
		out, err := Rotate(NewGrayGrid(src), deg)
		require.NoError(t, err)
		require.Equal(t, 40, out.Rect.Dx())
		require.Equal(t, 17, out.Rect.Dy())
	}
}

func TestRotate_CornersAreZeroFilled(t *testing.T) {
	src := newGray(30, 30, 200)

	out, err := Rotate(NewGrayGrid(src), 45)
	require.NoError(t, err)
	require.Equal(t, uint8(0), out.GrayAt(0, 0).Y)
	require.Equal(t, uint8(0), out.GrayAt(29, 29).Y)
	require.Equal(t, uint8(200), out.GrayAt(15, 15).Y)
}

func TestRotate_RoundTrip(t *testing.T) {
	src := smoothGray(64, 64)

	fwd, err := Rotate(NewGrayGrid(src), 30)
	require.NoError(t, err)
	back, err := Rotate(NewGrayGrid(fwd), -30)
	require.NoError(t, err)

	// Only the disc that stays inside the frame in both directions is compared.
	var diff float64
	var n int
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if math.Hypot(float64(x-32), float64(y-32)) > 24 {
				continue
			}
			diff += math.Abs(float64(src.GrayAt(x, y).Y) - float64(back.GrayAt(x, y).Y))
			n++
		}
	}
	require.Less(t, diff/float64(n), 3.0)
}

func TestWarp_MatchesRotate(t *testing.T) {
	src := patternGray(25, 19)
	g := NewGrayGrid(src)

	viaWarp, err := Warp(g, RotationMatrix(12, 9, 20, 1))
	require.NoError(t, err)
	viaRotate, err := Rotate(g, 20)
	require.NoError(t, err)
	require.Equal(t, viaRotate.Pix, viaWarp.Pix)
}

func TestWarp_RejectsBadMatrices(t *testing.T) {
	g := NewGrayGrid(newGray(5, 5, 1))

	_, err := Warp(g, RotationMatrix(2, 2, 30, 0))
	require.Error(t, err)

	_, err = Warp(g, mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}))
	require.Error(t, err)
}

func TestRotateImage(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 9, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 9; x++ {
			src.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 20), G: uint8(y * 30), B: 90, A: 255})
		}
	}

	same, err := RotateImage(src, 0)
	require.NoError(t, err)
	require.Equal(t, src.Pix, same.Pix)

	turned, err := RotateImage(src, 45)
	require.NoError(t, err)
	require.Equal(t, src.Rect, turned.Rect)
	// Uncovered corners are transparent.
	require.Equal(t, uint8(0), turned.NRGBAAt(0, 0).A)
	require.Equal(t, uint8(255), turned.NRGBAAt(4, 3).A)
}
