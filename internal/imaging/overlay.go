package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// OverlayOptions controls OrientationOverlay.
type OverlayOptions struct {
	// Color of the axis and grid, "#RRGGBB" or "#RRGGBBAA".
	Color string

	// Thickness of the axis in pixels.
	Thickness int

	// GridSpacing draws a coordinate grid every GridSpacing pixels; 0 disables it.
	GridSpacing int

	// ShowLabel prints the angle in the top-left corner.
	ShowLabel bool
}

// NewOverlayOptions returns a 3 pixel red axis with a label and no grid.
func NewOverlayOptions() *OverlayOptions {
	return &OverlayOptions{
		Color:     "#FF0000",
		Thickness: 3,
		ShowLabel: true,
	}
}

// OrientationOverlay draws the axis a target at angle degrees lies along,
// through the rotation centre (width/2, height/2), on a copy of img.
//
// The axis runs along (cos a, sin a) with y pointing down: rotating the image
// counter-clockwise by angle makes it horizontal. The returned image is
// anchored at the origin.
func OrientationOverlay(img image.Image, angle float64, opts *OverlayOptions) (*image.NRGBA, error) {
	if opts == nil {
		opts = NewOverlayOptions()
	}
	lineColor, err := parseHexColor(opts.Color)
	if err != nil {
		return nil, err
	}
	if opts.Thickness < 1 {
		return nil, fmt.Errorf("thickness must be at least 1, got %d", opts.Thickness)
	}
	if opts.GridSpacing < 0 {
		return nil, fmt.Errorf("grid spacing must not be negative, got %d", opts.GridSpacing)
	}

	result := imaging.Clone(img)
	width, height := result.Rect.Dx(), result.Rect.Dy()

	if opts.GridSpacing > 0 {
		gridColor := lineColor
		gridColor.A /= 2
		drawGrid(result, opts.GridSpacing, gridColor)
	}

	rad := angle * math.Pi / 180
	dx, dy := math.Cos(rad), math.Sin(rad)
	cx, cy := float64(width/2), float64(height/2)
	half := math.Hypot(float64(width), float64(height))
	r := (opts.Thickness - 1) / 2

	for t := -half; t <= half; t += 0.5 {
		x := int(math.Round(cx + t*dx))
		y := int(math.Round(cy + t*dy))
		fillSquare(result, x-r, y-r, x+r, y+r, lineColor)
	}

	if opts.ShowLabel {
		label := strconv.FormatFloat(angle, 'f', -1, 64)
		drawLabel(result, 2, 2, label, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, color.NRGBA{A: 180})
	}

	return result, nil
}

func drawGrid(img *image.NRGBA, spacing int, c color.NRGBA) {
	width, height := img.Rect.Dx(), img.Rect.Dy()
	for x := spacing; x < width; x += spacing {
		for y := 0; y < height; y++ {
			img.SetNRGBA(x, y, c)
		}
	}
	for y := spacing; y < height; y += spacing {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

// fillSquare paints [x0,x1] x [y0,y1], clipped to the image.
func fillSquare(img *image.NRGBA, x0, y0, x1, y1 int, c color.NRGBA) {
	r := image.Rect(x0, y0, x1+1, y1+1).Intersect(img.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

// parseHexColor parses "#RRGGBB", "#RGB" or "#RRGGBBAA"; the leading '#' is optional.
func parseHexColor(hex string) (color.NRGBA, error) {
	if hex == "" {
		return color.NRGBA{}, fmt.Errorf("empty color string")
	}
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}

	alpha := uint8(255)
	switch len(hex) {
	case 4, 7:
	case 9:
		a, err := strconv.ParseUint(hex[7:], 16, 8)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid alpha in color %q: %w", hex, err)
		}
		alpha = uint8(a)
		hex = hex[:7]
	default:
		return color.NRGBA{}, fmt.Errorf("invalid hex color length: %q", hex)
	}

	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: alpha}, nil
}

// drawLabel draws text with a 3x5 pixel font at (x, y) over a filled box.
// Characters without a glyph leave a gap.
func drawLabel(img *image.NRGBA, x, y int, text string, fg, bg color.NRGBA) {
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
		'-': {"000", "000", "111", "000", "000"},
		'.': {"000", "000", "000", "000", "010"},
	}

	charWidth := 4
	labelWidth := len(text) * charWidth
	labelHeight := 7

	fillSquare(img, x-1, y-1, x+labelWidth-1, y+labelHeight-1, bg)

	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel == '1' {
					px, py := cx+col, y+row
					if image.Pt(px, py).In(img.Rect) {
						img.SetNRGBA(px, py, fg)
					}
				}
			}
		}
		cx += charWidth
	}
}
