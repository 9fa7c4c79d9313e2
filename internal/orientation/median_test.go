package orientation

import (
	"image"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMedian(t *testing.T) {
	mostly100 := newGray(10, 10, 100)
	fillRect(mostly100, 2, 2, 5, 5, 200)

	mostly200 := newGray(10, 10, 100)
	fillRect(mostly200, 0, 0, 10, 6, 200)

	// 50 of 100 samples at 30: cumulative count at bin 30 equals m, which does
	// not exceed it, so the median moves to the next occupied bin.
	split := newGray(10, 10, 30)
	fillRect(split, 0, 5, 10, 10, 90)

	pair := image.NewGray(image.Rect(0, 0, 2, 1))
	copy(pair.Pix, []uint8{10, 20})

	odd := image.NewGray(image.Rect(0, 0, 3, 1))
	copy(odd.Pix, []uint8{250, 0, 7})

	tests := []struct {
		name string
		img  *image.Gray
		want float64
	}{
		{"block of 200 in 100", mostly100, 100},
		{"majority 200", mostly200, 200},
		{"exact half", split, 90},
		{"two samples", pair, 20},
		{"three samples", odd, 7},
		{"uniform zero", newGray(5, 5, 0), 0},
		{"uniform max", newGray(5, 5, 255), 255},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Median(NewGrayGrid(tt.img)))
		})
	}
}

func TestMedian_EmptyGrid(t *testing.T) {
	require.Equal(t, -1.0, Median(NewGrayGrid(newGray(0, 0, 0))))
}

func TestMedian_StridedSubImage(t *testing.T) {
	img := newGray(10, 10, 0)
	fillRect(img, 5, 5, 10, 10, 77)
	sub := img.SubImage(image.Rect(4, 4, 10, 10)).(*image.Gray)

	// 25 of the sub-image's 36 samples are 77.
	require.Equal(t, 77.0, Median(NewGrayGrid(sub)))
}
