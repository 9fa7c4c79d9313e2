package vision

import (
	"errors"
	"image"
	"image/color"
	"slices"
	"testing"

	"github.com/anthonynsimon/bild/blend"
)

func createGray(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

// eachBackend runs fn against every compiled-in backend.
func eachBackend(t *testing.T, fn func(t *testing.T, b Backend)) {
	for _, name := range Names() {
		b, err := Lookup(name)
		if err != nil {
			t.Fatalf("Lookup(%q) error: %v", name, err)
		}
		t.Run(name, func(t *testing.T) { fn(t, b) })
	}
}

func TestLookup(t *testing.T) {
	b, err := Lookup("")
	if err != nil {
		t.Fatalf("Lookup(\"\") error: %v", err)
	}
	if b.Name() != Default().Name() {
		t.Errorf("empty name selected %q, want %q", b.Name(), Default().Name())
	}

	if _, err := Lookup("bild"); err != nil {
		t.Errorf("Lookup(bild) error: %v", err)
	}

	_, err = Lookup("no-such-backend")
	if !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("expected ErrUnknownBackend, got %v", err)
	}

	if !slices.Contains(Names(), "bild") {
		t.Errorf("Names() = %v, missing bild", Names())
	}
}

func TestToGray(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	src.SetNRGBA(1, 0, color.NRGBA{G: 255, A: 255})
	src.SetNRGBA(2, 0, color.NRGBA{B: 255, A: 255})

	got := ToGray(src)
	want := []uint8{76, 150, 29}
	for i, w := range want {
		if got.Pix[i] != w {
			t.Errorf("pixel %d = %d, want %d", i, got.Pix[i], w)
		}
	}
}

func TestToGray_SubImage(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 6, 6))
	for i := range src.Pix {
		src.Pix[i] = uint8(i)
	}
	sub := src.SubImage(image.Rect(2, 3, 5, 6)).(*image.Gray)

	got := ToGray(sub)
	if got.Rect != image.Rect(0, 0, 3, 3) {
		t.Fatalf("bounds = %v, want origin-anchored 3x3", got.Rect)
	}
	if got.GrayAt(0, 0).Y != src.GrayAt(2, 3).Y || got.GrayAt(2, 2).Y != src.GrayAt(4, 5).Y {
		t.Errorf("sub-image samples not preserved")
	}

	// The copy must not alias the source.
	got.Pix[0] = 255
	if src.GrayAt(2, 3).Y == 255 {
		t.Errorf("ToGray returned aliased pixels")
	}
}

func TestBlur(t *testing.T) {
	eachBackend(t, func(t *testing.T, b Backend) {
		flat, err := b.Blur(createGray(12, 10, 100))
		if err != nil {
			t.Fatalf("Blur error: %v", err)
		}
		for i, v := range flat.Pix {
			if v != 100 {
				t.Fatalf("uniform image changed at %d: %d", i, v)
			}
		}

		impulse := createGray(9, 9, 0)
		impulse.SetGray(4, 4, color.Gray{Y: 255})
		out, err := b.Blur(impulse)
		if err != nil {
			t.Fatalf("Blur error: %v", err)
		}

		tests := []struct {
			x, y int
			want uint8
		}{
			{4, 4, 36}, // 255 * 36/256
			{5, 4, 24},
			{4, 3, 24},
			{5, 5, 16},
			{6, 6, 1},
			{7, 4, 0},
		}
		for _, tt := range tests {
			if got := out.GrayAt(tt.x, tt.y).Y; absDiff(got, tt.want) > 1 {
				t.Errorf("(%d,%d) = %d, want %d", tt.x, tt.y, got, tt.want)
			}
		}
	})
}

func TestThreshold_IsStrict(t *testing.T) {
	eachBackend(t, func(t *testing.T, b Backend) {
		src := image.NewGray(image.Rect(0, 0, 4, 1))
		copy(src.Pix, []uint8{99, 100, 101, 255})

		out, err := b.Threshold(src, 100, 255)
		if err != nil {
			t.Fatalf("Threshold error: %v", err)
		}
		if want := []uint8{0, 0, 255, 255}; !slices.Equal(out.Pix, want) {
			t.Errorf("Threshold(100, 255) = %v, want %v", out.Pix, want)
		}

		out, err = b.Threshold(src, 100, 1)
		if err != nil {
			t.Fatalf("Threshold error: %v", err)
		}
		if want := []uint8{0, 0, 1, 1}; !slices.Equal(out.Pix, want) {
			t.Errorf("Threshold(100, 1) = %v, want %v", out.Pix, want)
		}
	})
}

func TestThreshold_SubImage(t *testing.T) {
	src := createGray(8, 8, 10)
	src.SetGray(5, 5, color.Gray{Y: 200})
	sub := src.SubImage(image.Rect(4, 4, 8, 8)).(*image.Gray)

	eachBackend(t, func(t *testing.T, b Backend) {
		out, err := b.Threshold(sub, 50, 255)
		if err != nil {
			t.Fatalf("Threshold error: %v", err)
		}
		if out.Rect != image.Rect(0, 0, 4, 4) {
			t.Fatalf("bounds = %v, want origin-anchored 4x4", out.Rect)
		}
		if out.GrayAt(1, 1).Y != 255 || out.GrayAt(0, 0).Y != 0 {
			t.Errorf("threshold of sub-image misplaced: %v", out.Pix)
		}
	})
}

func TestGradient_StepEdges(t *testing.T) {
	vertical := createGray(10, 10, 0)
	horizontal := createGray(10, 10, 0)
	for y := 0; y < 10; y++ {
		for x := 5; x < 10; x++ {
			vertical.SetGray(x, y, color.Gray{Y: 200})
			horizontal.SetGray(y, x, color.Gray{Y: 200})
		}
	}

	eachBackend(t, func(t *testing.T, b Backend) {
		gv, err := b.Gradient(vertical)
		if err != nil {
			t.Fatalf("Gradient error: %v", err)
		}
		gh, err := b.Gradient(horizontal)
		if err != nil {
			t.Fatalf("Gradient error: %v", err)
		}

		for i := 0; i < 10; i++ {
			for j := 0; j < 10; j++ {
				// Half of a saturated derivative on the two columns either
				// side of the step, nothing elsewhere.
				want := uint8(0)
				if j == 4 || j == 5 {
					want = 128
				}
				if got := gv.GrayAt(j, i).Y; got != want {
					t.Errorf("vertical edge (%d,%d) = %d, want %d", j, i, got, want)
				}
				if got := gh.GrayAt(i, j).Y; got != want {
					t.Errorf("horizontal edge (%d,%d) = %d, want %d", i, j, got, want)
				}
			}
		}
	})
}

func TestGradient_RoundsHalfToEven(t *testing.T) {
	// A step of n gives a horizontal Sobel response of 4n on the column
	// before it, saturating at 255.
	tests := []struct {
		step uint8
		want uint8
	}{
		{1, 2},
		{63, 126},
		{64, 128},
	}
	for _, tt := range tests {
		src := createGray(8, 8, 0)
		for y := 0; y < 8; y++ {
			for x := 4; x < 8; x++ {
				src.SetGray(x, y, color.Gray{Y: tt.step})
			}
		}
		eachBackend(t, func(t *testing.T, b Backend) {
			out, err := b.Gradient(src)
			if err != nil {
				t.Fatalf("Gradient error: %v", err)
			}
			if got := out.GrayAt(3, 4).Y; got != tt.want {
				t.Errorf("step %d: gradient = %d, want %d", tt.step, got, tt.want)
			}
		})
	}
}

func TestHalfSum(t *testing.T) {
	tests := []struct {
		a, b uint8
		want uint8
	}{
		{255, 0, 128},
		{1, 0, 0},
		{3, 0, 2},
		{5, 0, 2},
		{4, 4, 4},
		{255, 255, 255},
		{0, 0, 0},
	}
	for _, tt := range tests {
		out := blend.Blend(solid(tt.a), solid(tt.b), halfSum)
		if got := out.Pix[0]; got != tt.want {
			t.Errorf("halfSum(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func solid(v uint8) *image.Gray {
	return createGray(1, 1, v)
}

func TestDilate(t *testing.T) {
	eachBackend(t, func(t *testing.T, b Backend) {
		src := createGray(9, 9, 0)
		src.SetGray(4, 4, color.Gray{Y: 200})
		src.SetGray(0, 8, color.Gray{Y: 90})

		out, err := b.Dilate(src)
		if err != nil {
			t.Fatalf("Dilate error: %v", err)
		}
		for y := 0; y < 9; y++ {
			for x := 0; x < 9; x++ {
				want := uint8(0)
				switch {
				case x >= 3 && x <= 5 && y >= 3 && y <= 5:
					want = 200
				case x <= 1 && y >= 7:
					want = 90
				}
				if got := out.GrayAt(x, y).Y; got != want {
					t.Errorf("(%d,%d) = %d, want %d", x, y, got, want)
				}
			}
		}
	})
}

func TestBackends_PreserveInput(t *testing.T) {
	eachBackend(t, func(t *testing.T, b Backend) {
		src := createGray(6, 6, 0)
		src.SetGray(2, 2, color.Gray{Y: 255})
		before := slices.Clone(src.Pix)

		ops := map[string]func() (*image.Gray, error){
			"blur":      func() (*image.Gray, error) { return b.Blur(src) },
			"threshold": func() (*image.Gray, error) { return b.Threshold(src, 10, 255) },
			"gradient":  func() (*image.Gray, error) { return b.Gradient(src) },
			"dilate":    func() (*image.Gray, error) { return b.Dilate(src) },
		}
		for name, op := range ops {
			out, err := op()
			if err != nil {
				t.Fatalf("%s error: %v", name, err)
			}
			if out.Rect != src.Rect {
				t.Errorf("%s bounds = %v, want %v", name, out.Rect, src.Rect)
			}
			if !slices.Equal(src.Pix, before) {
				t.Fatalf("%s modified its input", name)
			}
		}
	})
}
