// Package imaging provides the file-facing image operations of the tools:
// decoding and caching inputs, describing them, parsing regions of interest,
// drawing orientation overlays and encoding results.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, (x1,y1) is inclusive (top-left), (x2,y2) is exclusive (bottom-right)
//
// Angles follow package orientation: a target at angle a runs along
// (cos a, sin a) with Y pointing down, so rotating the image counter-clockwise
// by a lays it horizontal.
//
// # Formats
//
// PNG, JPEG, GIF, TIFF, BMP and WebP decode; everything but WebP can also be
// written by Save. JPEG EXIF orientation is applied on load.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. The other functions are
// stateless and never modify their input images.
package imaging
