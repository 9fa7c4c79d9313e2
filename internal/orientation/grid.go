package orientation

import (
	"errors"
	"image"
)

var (
	// ErrEmptyGrid is returned when an operation needs at least one sample.
	ErrEmptyGrid = errors.New("grid has no samples")

	// ErrPercentileRange is returned for percentiles outside [0, 1).
	ErrPercentileRange = errors.New("percentile must be in [0, 1)")

	// ErrInvalidParams is returned for an unusable candidate angle range.
	ErrInvalidParams = errors.New("invalid search parameters")
)

// Grid is a read-only 2D grid of 8-bit intensity samples addressed by (row, col).
//
// Row 0 is the top of the image and column 0 its left edge. Implementations must
// not change their samples while a core operation is running.
type Grid interface {
	Rows() int
	Cols() int
	At(row, col int) uint8
}

// GrayGrid adapts an *image.Gray to the Grid interface.
//
// The image may be a sub-image with a stride wider than its width; the grid only
// ever reads the pixels inside Rect.
type GrayGrid struct {
	img *image.Gray
}

// NewGrayGrid wraps img. A nil image behaves as an empty grid.
func NewGrayGrid(img *image.Gray) GrayGrid {
	return GrayGrid{img: img}
}

// Rows returns the image height.
func (g GrayGrid) Rows() int {
	if g.img == nil {
		return 0
	}
	return g.img.Rect.Dy()
}

// Cols returns the image width.
func (g GrayGrid) Cols() int {
	if g.img == nil {
		return 0
	}
	return g.img.Rect.Dx()
}

// At returns the sample at (row, col), relative to the image's top-left corner.
func (g GrayGrid) At(row, col int) uint8 {
	return g.img.Pix[row*g.img.Stride+col]
}

// contiguous reports whether every row follows the previous one with no padding,
// in which case the first rows*cols bytes of Pix are the whole grid.
func (g GrayGrid) contiguous() bool {
	return g.img != nil && g.img.Stride == g.img.Rect.Dx()
}

// row returns the backing span of one row.
func (g GrayGrid) row(r int) []uint8 {
	start := r * g.img.Stride
	return g.img.Pix[start : start+g.img.Rect.Dx()]
}

// samples copies every sample of g into a new row-major slice.
func samples(g Grid) []uint8 {
	rows, cols := g.Rows(), g.Cols()
	out := make([]uint8, 0, rows*cols)

	if gg, ok := g.(GrayGrid); ok {
		if gg.contiguous() {
			return append(out, gg.img.Pix[:rows*cols]...)
		}
		for r := 0; r < rows; r++ {
			out = append(out, gg.row(r)...)
		}
		return out
	}

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out = append(out, g.At(r, c))
		}
	}
	return out
}

// ToGray copies g into a new *image.Gray anchored at the origin.
func ToGray(g Grid) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, g.Cols(), g.Rows()))
	copy(dst.Pix, samples(g))
	return dst
}
