package imaging

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // Register WebP format decoder; imaging already pulls in BMP and TIFF
)

// ErrEmptyImage is returned when a file decodes to an image with no pixels.
var ErrEmptyImage = errors.New("decoded image is empty")

// formats maps the file extensions the tools accept to their format names.
var formats = map[string]string{
	".png":  "png",
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".gif":  "gif",
	".tif":  "tiff",
	".tiff": "tiff",
	".bmp":  "bmp",
	".webp": "webp",
}

// IsSupported reports whether path has an extension one of the registered
// decoders handles. The comparison ignores case.
func IsSupported(path string) bool {
	_, ok := formats[strings.ToLower(filepath.Ext(path))]
	return ok
}

// FormatOf returns the format name for path's extension, or "unknown".
func FormatOf(path string) string {
	if f, ok := formats[strings.ToLower(filepath.Ext(path))]; ok {
		return f
	}
	return "unknown"
}

// Open decodes the image at path. JPEG files carrying an EXIF orientation tag
// are rotated upright. A file that decodes to zero pixels is an error.
func Open(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	return img, nil
}

// ImageCache keeps decoded images keyed by path so repeated tool calls on the
// same file skip the decode. It is safe for concurrent use.
//
// Entries stay until Evict or Clear; different spellings of the same path are
// separate entries.
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
}

// NewImageCache creates an empty cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]image.Image),
	}
}

// Load returns the cached image for path, decoding it with Open on a miss.
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	img, err := Open(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Clear removes every image from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.mu.Unlock()
}

// Evict removes one path from the cache. Unknown paths are ignored.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// ImageInfo describes a loaded image file.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format comes from the file extension: "png", "jpeg", "gif", "tiff",
	// "bmp", "webp" or "unknown".
	Format string `json:"format"`

	// ColorDepth is "8-bit" or "16-bit" per channel.
	ColorDepth string `json:"color_depth"`

	// Grayscale is true when the decoder produced a single-channel image.
	Grayscale bool `json:"grayscale"`

	// HasAlpha is true for image types that carry an alpha channel.
	HasAlpha bool `json:"has_alpha"`

	// Center is the rotation centre the orientation search uses,
	// (width/2, height/2) with integer division.
	Center image.Point `json:"center"`

	// FileSizeBytes is the size of the file on disk.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo loads path through cache and describes it.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	info := Describe(img)
	info.Format = FormatOf(path)
	info.FileSizeBytes = stat.Size()
	return info, nil
}

// Describe reports the size and pixel layout of img. Format and file size
// are left empty.
func Describe(img image.Image) *ImageInfo {
	bounds := img.Bounds()
	info := &ImageInfo{
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		ColorDepth: "8-bit",
		Center:     image.Pt(bounds.Dx()/2, bounds.Dy()/2),
	}

	switch img.(type) {
	case *image.Gray:
		info.Grayscale = true
	case *image.Gray16:
		info.Grayscale = true
		info.ColorDepth = "16-bit"
	case *image.RGBA, *image.NRGBA:
		info.HasAlpha = true
	case *image.RGBA64, *image.NRGBA64:
		info.HasAlpha = true
		info.ColorDepth = "16-bit"
	}
	return info
}
