// Package pipeline turns a decoded image into an orientation estimate.
//
// The stages run in a fixed order: grayscale, 5x5 Gaussian blur, percentile
// threshold selection, binary threshold, Sobel gradient magnitude, 3x3
// dilation, and finally the angle search from package orientation. The image
// operations are delegated to a vision.Backend.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"math"
	"time"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/target-orientation/internal/orientation"
	"github.com/ironsheep/target-orientation/internal/vision"
)

var (
	// ErrEmptyImage is returned when the input has no pixels.
	ErrEmptyImage = errors.New("image has no pixels")

	// ErrInvalidRegion is returned for a region that is empty or leaves the image.
	ErrInvalidRegion = errors.New("invalid region")
)

// DefaultPercentile is the share of pixels expected to be darker than the target.
const DefaultPercentile = 0.9

// Options configures Estimate.
type Options struct {
	// Percentile selects the threshold level, as a fraction in [0, 1).
	Percentile float64

	// ThresholdMax is the value foreground pixels take after thresholding.
	ThresholdMax uint8

	// Search sets the candidate angles. Nil uses orientation.NewParams.
	Search *orientation.Params

	// Backend runs the image operations. Nil uses vision.Default.
	Backend vision.Backend

	// Region restricts processing to a rectangle in image coordinates, with
	// (0,0) at the top-left pixel. Min is inclusive and Max exclusive.
	Region *image.Rectangle

	// KeepStages retains every intermediate image in the report.
	KeepStages bool

	// Verbose logs a line as each stage starts.
	Verbose bool
}

// NewOptions returns the default configuration.
func NewOptions() *Options {
	return &Options{
		Percentile:   DefaultPercentile,
		ThresholdMax: 1,
		Search:       orientation.NewParams(),
		Backend:      vision.Default(),
	}
}

// Report is the outcome of Estimate.
type Report struct {
	Angle      int                 `json:"angle"`
	Threshold  uint8               `json:"threshold"`
	Percentile float64             `json:"percentile"`
	Median     float64             `json:"median"`
	Backend    string              `json:"backend"`
	Region     image.Rectangle     `json:"region"`
	Result     *orientation.Result `json:"search"`
	Stages     *Stages             `json:"-"`
	Elapsed    time.Duration       `json:"-"`
}

// Summary is the sentence printed once the angle is known.
func (r *Report) Summary() string {
	return fmt.Sprintf("The Target Orientation angle is %d degrees", r.Angle)
}

// NormalizePercentile accepts a percentile either as a fraction in [0, 1) or
// as a percentage in (1, 100) and returns the fraction.
func NormalizePercentile(p float64) (float64, error) {
	if p > 1 {
		p /= 100
	}
	if !validPercentile(p) {
		return 0, fmt.Errorf("%w: got %v", orientation.ErrPercentileRange, p)
	}
	return p, nil
}

func validPercentile(p float64) bool {
	return !math.IsNaN(p) && p >= 0 && p < 1
}

// PercentLabel renders a percentile the way progress lines show it: fractions
// are scaled to a rounded whole percentage.
func PercentLabel(p float64) int {
	if p < 1 {
		return int(100*p + 0.5)
	}
	return int(p + 0.5)
}

// Estimate finds the orientation of the brightest elongated target in img.
func Estimate(ctx context.Context, img image.Image, opts *Options) (*Report, error) {
	start := time.Now()

	if opts == nil {
		opts = NewOptions()
	}
	if !validPercentile(opts.Percentile) {
		return nil, fmt.Errorf("%w: got %v", orientation.ErrPercentileRange, opts.Percentile)
	}
	params := opts.Search
	if params == nil {
		params = orientation.NewParams()
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	backend := opts.Backend
	if backend == nil {
		backend = vision.Default()
	}

	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}

	region, err := resolveRegion(img.Bounds(), opts.Region)
	if err != nil {
		return nil, err
	}
	if opts.Region != nil {
		img = imaging.Crop(img, region.Add(img.Bounds().Min))
	}

	stages := &Stages{}
	stages.Gray = vision.ToGray(img)

	opts.progress("Applying Gaussian blur")
	if stages.Blurred, err = backend.Blur(stages.Gray); err != nil {
		return nil, fmt.Errorf("failed to blur: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts.progress("Finding the pixel value at %d Percentile", PercentLabel(opts.Percentile))
	blurred := orientation.NewGrayGrid(stages.Blurred)
	level, err := orientation.SelectPercentile(blurred, opts.Percentile)
	if err != nil {
		return nil, fmt.Errorf("failed to select threshold: %w", err)
	}
	median := orientation.Median(blurred)
	if opts.Verbose {
		log.Printf("Threshold level %d, median %.0f", level, median)
	}

	opts.progress("Applying Segmentation with threshold found from input percentile")
	if stages.Binary, err = backend.Threshold(stages.Blurred, level, opts.ThresholdMax); err != nil {
		return nil, fmt.Errorf("failed to threshold: %w", err)
	}

	opts.progress("Applying Sobel Edge Detection")
	if stages.Edges, err = backend.Gradient(stages.Binary); err != nil {
		return nil, fmt.Errorf("failed to compute gradient: %w", err)
	}

	opts.progress("Dilating the image")
	if stages.Dilated, err = backend.Dilate(stages.Edges); err != nil {
		return nil, fmt.Errorf("failed to dilate: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts.progress("Searching for the best rotation angle")
	res, err := orientation.Search(ctx, orientation.NewGrayGrid(stages.Dilated), params)
	if err != nil {
		return nil, err
	}
	if opts.Verbose {
		log.Printf("Scored %d candidate angles", len(res.Candidates))
	}

	report := &Report{
		Angle:      res.Angle,
		Threshold:  level,
		Percentile: opts.Percentile,
		Median:     median,
		Backend:    backend.Name(),
		Region:     region,
		Result:     res,
		Elapsed:    time.Since(start),
	}
	if opts.KeepStages {
		report.Stages = stages
	}
	return report, nil
}

// resolveRegion checks a requested region against bounds and returns it in
// zero-based coordinates. A nil region means the whole image.
func resolveRegion(bounds image.Rectangle, region *image.Rectangle) (image.Rectangle, error) {
	full := image.Rect(0, 0, bounds.Dx(), bounds.Dy())
	if region == nil {
		return full, nil
	}
	r := region.Canon()
	if r.Empty() {
		return image.Rectangle{}, fmt.Errorf("%w: %v is empty", ErrInvalidRegion, *region)
	}
	if !r.In(full) {
		return image.Rectangle{}, fmt.Errorf("%w: %v outside image bounds %dx%d", ErrInvalidRegion, *region, full.Dx(), full.Dy())
	}
	return r, nil
}

func (o *Options) progress(format string, args ...any) {
	if o.Verbose {
		log.Printf(format, args...)
	}
}
