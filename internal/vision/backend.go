package vision

import (
	"errors"
	"fmt"
	"image"
	"sort"
	"sync"

	"github.com/disintegration/imaging"
)

// ErrUnknownBackend is returned by Lookup for a name that was never registered.
var ErrUnknownBackend = errors.New("unknown vision backend")

// Backend performs the image operations the orientation pipeline delegates.
//
// Every method takes an 8-bit single-channel image and returns a new image of
// the same size anchored at the origin. The input is never modified.
type Backend interface {
	// Name identifies the backend in the registry and in reports.
	Name() string

	// Blur applies a 5x5 Gaussian whose sigma is derived from the kernel size.
	Blur(src *image.Gray) (*image.Gray, error)

	// Threshold maps every sample strictly greater than level to maxValue and
	// every other sample to 0.
	Threshold(src *image.Gray, level, maxValue uint8) (*image.Gray, error)

	// Gradient returns 0.5*|d/dx| + 0.5*|d/dy| using 3x3 Sobel derivatives.
	Gradient(src *image.Gray) (*image.Gray, error)

	// Dilate replaces each sample with the maximum of its 3x3 neighbourhood.
	Dilate(src *image.Gray) (*image.Gray, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Backend{}
)

func init() {
	Register(Bild())
}

// Register makes a backend available through Lookup. Registering the same
// name twice replaces the earlier backend.
func Register(b Backend) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[b.Name()] = b
}

// Lookup returns the backend registered under name. An empty name selects
// Default.
func Lookup(name string) (Backend, error) {
	if name == "" {
		return Default(), nil
	}

	registryMu.RLock()
	defer registryMu.RUnlock()

	b, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownBackend, name, namesLocked())
	}
	return b, nil
}

// Names lists the registered backends in alphabetical order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return namesLocked()
}

func namesLocked() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default returns the pure-Go backend, which is always compiled in.
func Default() Backend {
	return Bild()
}

// ToGray converts any image to 8-bit luma anchored at the origin, using the
// ITU-R BT.601 weights 0.299, 0.587 and 0.114.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		out := image.NewGray(image.Rect(0, 0, g.Rect.Dx(), g.Rect.Dy()))
		for y := 0; y < g.Rect.Dy(); y++ {
			copy(out.Pix[y*out.Stride:], g.Pix[y*g.Stride:y*g.Stride+g.Rect.Dx()])
		}
		return out
	}
	return fromNRGBA(imaging.Grayscale(img))
}

// fromNRGBA keeps the red channel of an image whose channels are equal.
func fromNRGBA(img *image.NRGBA) *image.Gray {
	return firstChannel(img.Pix, img.Stride, img.Rect)
}

// fromRGBA keeps the red channel of an image whose channels are equal.
func fromRGBA(img *image.RGBA) *image.Gray {
	return firstChannel(img.Pix, img.Stride, img.Rect)
}

func firstChannel(pix []uint8, stride int, rect image.Rectangle) *image.Gray {
	w, h := rect.Dx(), rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := pix[y*stride:]
		row := dst.Pix[y*dst.Stride : y*dst.Stride+w]
		for x := range row {
			row[x] = src[x*4]
		}
	}
	return dst
}

// atOrigin returns src itself when it already starts at (0, 0), otherwise a
// copy that does.
func atOrigin(src *image.Gray) *image.Gray {
	if src.Rect.Min == (image.Point{}) {
		return src
	}
	return ToGray(src)
}
