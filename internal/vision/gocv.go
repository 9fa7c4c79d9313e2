//go:build gocv

package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

func init() {
	Register(gocvBackend{})
}

// gocvBackend runs each operation through OpenCV. Borders use OpenCV's default
// reflect-101 mode.
type gocvBackend struct{}

func (gocvBackend) Name() string { return "gocv" }

func (gocvBackend) Blur(src *image.Gray) (*image.Gray, error) {
	return withMat(src, func(in gocv.Mat, out *gocv.Mat) {
		gocv.GaussianBlur(in, out, image.Pt(5, 5), 0, 0, gocv.BorderDefault)
	})
}

func (gocvBackend) Threshold(src *image.Gray, level, maxValue uint8) (*image.Gray, error) {
	return withMat(src, func(in gocv.Mat, out *gocv.Mat) {
		gocv.Threshold(in, out, float32(level), float32(maxValue), gocv.ThresholdBinary)
	})
}

func (gocvBackend) Gradient(src *image.Gray) (*image.Gray, error) {
	return withMat(src, func(in gocv.Mat, out *gocv.Mat) {
		gradX := gocv.NewMat()
		defer gradX.Close()
		gradY := gocv.NewMat()
		defer gradY.Close()
		gocv.Sobel(in, &gradX, gocv.MatTypeCV32F, 1, 0, 3, 1, 0, gocv.BorderDefault)
		gocv.Sobel(in, &gradY, gocv.MatTypeCV32F, 0, 1, 3, 1, 0, gocv.BorderDefault)

		absX := gocv.NewMat()
		defer absX.Close()
		absY := gocv.NewMat()
		defer absY.Close()
		gocv.ConvertScaleAbs(gradX, &absX, 1, 0)
		gocv.ConvertScaleAbs(gradY, &absY, 1, 0)

		gocv.AddWeighted(absX, 0.5, absY, 0.5, 0, out)
	})
}

func (gocvBackend) Dilate(src *image.Gray) (*image.Gray, error) {
	return withMat(src, func(in gocv.Mat, out *gocv.Mat) {
		kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3))
		defer kernel.Close()
		gocv.Dilate(in, out, kernel)
	})
}

// withMat wraps src in a single-channel Mat, runs op and copies the result back.
func withMat(src *image.Gray, op func(in gocv.Mat, out *gocv.Mat)) (*image.Gray, error) {
	src = atOrigin(src)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if w == 0 || h == 0 {
		return image.NewGray(image.Rect(0, 0, w, h)), nil
	}

	packed := make([]byte, 0, w*h)
	for y := 0; y < h; y++ {
		packed = append(packed, src.Pix[y*src.Stride:y*src.Stride+w]...)
	}

	in, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC1, packed)
	if err != nil {
		return nil, fmt.Errorf("failed to create mat: %w", err)
	}
	defer in.Close()

	out := gocv.NewMat()
	defer out.Close()
	op(in, &out)

	if out.Rows() != h || out.Cols() != w || out.Type() != gocv.MatTypeCV8UC1 {
		return nil, fmt.Errorf("unexpected opencv result %dx%d type %v", out.Cols(), out.Rows(), out.Type())
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	copy(dst.Pix, out.ToBytes())
	return dst, nil
}
