package imaging

import (
	"fmt"
	"image"
	"strconv"
	"strings"
)

// regionNames lists the named regions NamedRegion understands.
var regionNames = []string{
	"top-left", "top-right", "bottom-left", "bottom-right",
	"top-half", "bottom-half", "left-half", "right-half", "center",
}

// NamedRegion returns the zero-based rectangle a region name covers in an
// image of the given bounds. "center" is the middle 50% in each direction.
func NamedRegion(bounds image.Rectangle, name string) (image.Rectangle, error) {
	w := bounds.Dx()
	h := bounds.Dy()
	midX := w / 2
	midY := h / 2

	var x1, y1, x2, y2 int

	switch name {
	case "top-left":
		x1, y1, x2, y2 = 0, 0, midX, midY
	case "top-right":
		x1, y1, x2, y2 = midX, 0, w, midY
	case "bottom-left":
		x1, y1, x2, y2 = 0, midY, midX, h
	case "bottom-right":
		x1, y1, x2, y2 = midX, midY, w, h
	case "top-half":
		x1, y1, x2, y2 = 0, 0, w, midY
	case "bottom-half":
		x1, y1, x2, y2 = 0, midY, w, h
	case "left-half":
		x1, y1, x2, y2 = 0, 0, midX, h
	case "right-half":
		x1, y1, x2, y2 = midX, 0, w, h
	case "center":
		qW := w / 4
		qH := h / 4
		x1, y1, x2, y2 = qW, qH, w-qW, h-qH
	default:
		return image.Rectangle{}, fmt.Errorf("unknown region %q (want one of %s or x1,y1,x2,y2)",
			name, strings.Join(regionNames, ", "))
	}

	return image.Rect(x1, y1, x2, y2), nil
}

// ParseRegion reads a region given either as "x1,y1,x2,y2" or as a name
// accepted by NamedRegion. Coordinates are zero-based with (x1,y1) inclusive
// and (x2,y2) exclusive; they must describe a non-empty rectangle inside
// bounds.
func ParseRegion(spec string, bounds image.Rectangle) (image.Rectangle, error) {
	spec = strings.TrimSpace(spec)
	if !strings.Contains(spec, ",") {
		return NamedRegion(bounds, spec)
	}

	parts := strings.Split(spec, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, fmt.Errorf("region %q must have four comma-separated values", spec)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("region %q: %w", spec, err)
		}
		v[i] = n
	}

	x1, y1, x2, y2 := v[0], v[1], v[2], v[3]
	if x1 >= x2 || y1 >= y2 {
		return image.Rectangle{}, fmt.Errorf("invalid region: x1 must be < x2, y1 must be < y2")
	}
	if x1 < 0 || y1 < 0 || x2 > bounds.Dx() || y2 > bounds.Dy() {
		return image.Rectangle{}, fmt.Errorf("region (%d,%d)-(%d,%d) outside image bounds (0,0)-(%d,%d)",
			x1, y1, x2, y2, bounds.Dx(), bounds.Dy())
	}
	return image.Rect(x1, y1, x2, y2), nil
}
