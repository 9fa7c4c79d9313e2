// Package orientation estimates the dominant orientation of a target in a
// grayscale image.
//
// The estimate is a brute-force angle search: the grid is rotated about its
// centre by each candidate angle, each rotation is reduced to its per-row
// sums, and the angle whose rotation yields the single brightest row wins. For
// an edge map of a linear feature, that is the rotation that lays the feature
// parallel to the image rows.
//
// # Grids
//
// Every operation reads its input through the Grid interface, addressed by
// (row, col) with row 0 at the top. GrayGrid adapts an *image.Gray, including
// sub-images whose stride is wider than their width.
//
// # Angles
//
// Angles are in degrees. A positive angle rotates counter-clockwise as the
// image is displayed. Rotation is about (cols/2, rows/2) using integer
// division, at unit scale, with bilinear interpolation and a zero border; the
// output keeps the input size, so content rotated past the frame is lost.
//
// The default search tries 0, 5, ..., 180. When several candidates share the
// top score, the largest angle is reported.
//
// # Concurrency
//
// Grids are only read. Search may score candidates on several goroutines
// (Params.Workers) and still returns the same Result as a sequential scan.
package orientation
