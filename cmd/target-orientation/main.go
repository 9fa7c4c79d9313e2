// Command target-orientation estimates the orientation of the dominant bright
// elongated target in an image and prints the angle, in degrees, that rotates
// it parallel to the image rows.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/ironsheep/target-orientation/internal/imaging"
	"github.com/ironsheep/target-orientation/internal/orientation"
	"github.com/ironsheep/target-orientation/internal/pipeline"
	"github.com/ironsheep/target-orientation/internal/vision"
	"github.com/ironsheep/target-orientation/internal/watch"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const programName = "target-orientation"

// Output name suffixes written next to each input in watch mode.
const (
	rotatedSuffix = "_rotated"
	overlaySuffix = "_overlay"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

type config struct {
	input      string
	bandIndex  string
	percentile float64
	rotated    string
	overlay    string
	debugDir   string
	roi        string
	step       int
	workers    int
	backend    string
	watchDir   string
	verbose    bool
	version    bool
}

// newFlagSet registers every flag, short and long spellings sharing one variable.
func newFlagSet(cfg *config, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(programName, flag.ContinueOnError)
	fs.SetOutput(out)

	fs.StringVar(&cfg.input, "i", "", "Input image file")
	fs.StringVar(&cfg.input, "input", "", "Input image file")
	fs.StringVar(&cfg.bandIndex, "o", "", "Output file name")
	fs.StringVar(&cfg.bandIndex, "band_index", "", "Output file name")
	fs.Float64Var(&cfg.percentile, "p", pipeline.DefaultPercentile, "Percentile used to pick the threshold (0.9 or 90)")
	fs.Float64Var(&cfg.percentile, "percentile", pipeline.DefaultPercentile, "Percentile used to pick the threshold (0.9 or 90)")
	fs.StringVar(&cfg.rotated, "rotated", "", "Write the input rotated by the found angle to this file")
	fs.StringVar(&cfg.overlay, "overlay", "", "Write the input with the orientation axis drawn on it to this file")
	fs.StringVar(&cfg.debugDir, "debug-dir", "", "Write every intermediate stage as PNG into this directory")
	fs.StringVar(&cfg.roi, "roi", "", "Region of interest: x1,y1,x2,y2 or a named region such as center")
	fs.IntVar(&cfg.step, "step", 5, "Spacing between candidate angles in degrees")
	fs.IntVar(&cfg.workers, "workers", runtime.NumCPU(), "Candidate angles evaluated concurrently")
	fs.StringVar(&cfg.backend, "backend", "", fmt.Sprintf("Image processing backend %v", vision.Names()))
	fs.StringVar(&cfg.watchDir, "watch", "", "Process every image that appears in this directory")
	fs.BoolVar(&cfg.verbose, "verbose", false, "Timestamped logging with per-candidate scores")
	fs.BoolVar(&cfg.version, "v", false, "Print version information")
	fs.BoolVar(&cfg.version, "version", false, "Print version information")

	fs.Usage = func() {
		fmt.Fprintf(out, "Usage: %s -i <image> -o <band_index> [options]\n\n", programName)
		fmt.Fprintln(out, "Options:")
		fs.PrintDefaults()
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Note: -o/--band_index is required and echoed in the program-call line,")
		fmt.Fprintln(out, "but nothing is written to it.")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Environment variables:")
		fmt.Fprintln(out, "  TARGET_ORIENTATION_LOG_LEVEL=debug    Same as --verbose")
	}
	return fs
}

// run executes the command and returns the process exit code. The angle goes
// to stdout; progress, timing and errors go to stderr.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var cfg config
	fs := newFlagSet(&cfg, stdout)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if cfg.version {
		fmt.Fprintf(stdout, "%s %s\n", programName, Version)
		fmt.Fprintf(stdout, "  Build time: %s\n", BuildTime)
		fmt.Fprintf(stdout, "  Git commit: %s\n", GitCommit)
		return 0
	}

	// Missing required flags are answered like -h.
	if cfg.bandIndex == "" || (cfg.input == "" && cfg.watchDir == "") {
		fs.Usage()
		return 0
	}

	log.SetOutput(stderr)
	log.SetFlags(0)
	if cfg.verbose || os.Getenv("TARGET_ORIENTATION_LOG_LEVEL") == "debug" {
		cfg.verbose = true
		log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	}

	log.Printf("Starting %s...", programName)
	log.Printf("\t%s -i %s -o %s", programName, cfg.input, cfg.bandIndex)

	opts, err := cfg.options()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if cfg.watchDir != "" {
		if err := cfg.watch(ctx, opts, stdout); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	start := time.Now()
	log.Printf("Reading Input Image ...")
	img, err := imaging.Open(cfg.input)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading input file %s: %v\n", cfg.input, err)
		return 1
	}

	angle, err := cfg.process(ctx, img, opts, outputs{rotated: cfg.rotated, overlay: cfg.overlay, debugDir: cfg.debugDir})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintln(stdout, angle)
	log.Printf("Program Execution Time = %d ms", time.Since(start).Milliseconds())
	return 0
}

// options builds the pipeline options. The region is resolved per image.
func (c *config) options() (*pipeline.Options, error) {
	p, err := pipeline.NormalizePercentile(c.percentile)
	if err != nil {
		return nil, err
	}
	backend, err := vision.Lookup(c.backend)
	if err != nil {
		return nil, err
	}

	opts := pipeline.NewOptions()
	opts.Percentile = p
	opts.Backend = backend
	opts.Search.StepDegrees = c.step
	opts.Search.Workers = c.workers
	if err := opts.Search.Validate(); err != nil {
		return nil, err
	}
	opts.Verbose = true
	return opts, nil
}

// outputs are the files written for one processed image.
type outputs struct {
	rotated  string
	overlay  string
	debugDir string
}

// process estimates the angle of img and writes the requested outputs.
func (c *config) process(ctx context.Context, img image.Image, base *pipeline.Options, out outputs) (int, error) {
	opts := *base
	if c.roi != "" {
		b := img.Bounds()
		r, err := imaging.ParseRegion(c.roi, image.Rect(0, 0, b.Dx(), b.Dy()))
		if err != nil {
			return 0, err
		}
		opts.Region = &r
	}
	opts.KeepStages = out.debugDir != ""

	report, err := pipeline.Estimate(ctx, img, &opts)
	if err != nil {
		return 0, err
	}
	log.Print(report.Summary())

	if c.verbose {
		log.Printf("Threshold %d at percentile %.2f, prominence %.2f", report.Threshold, report.Percentile, report.Result.Prominence)
		for _, cand := range report.Result.Candidates {
			log.Printf("  %3d degrees: %.0f", cand.Angle, cand.Score)
		}
	}

	if out.debugDir != "" {
		paths, err := report.Stages.Save(out.debugDir)
		if err != nil {
			return 0, err
		}
		log.Printf("Wrote %d stage images to %s", len(paths), out.debugDir)
	}
	if out.rotated != "" {
		rotated, err := orientation.RotateImage(img, float64(report.Angle))
		if err != nil {
			return 0, err
		}
		if err := imaging.Save(rotated, out.rotated); err != nil {
			return 0, err
		}
		log.Printf("Wrote rotated image to %s", out.rotated)
	}
	if out.overlay != "" {
		overlay, err := imaging.OrientationOverlay(img, float64(report.Angle), imaging.NewOverlayOptions())
		if err != nil {
			return 0, err
		}
		if err := imaging.Save(overlay, out.overlay); err != nil {
			return 0, err
		}
		log.Printf("Wrote overlay to %s", out.overlay)
	}
	return report.Angle, nil
}

// watch processes every image that appears in the watch directory and prints
// "<path>\t<angle>" for each. --rotated, --overlay and --debug-dir name
// directories in this mode.
func (c *config) watch(ctx context.Context, opts *pipeline.Options, stdout io.Writer) error {
	wopts := watch.NewOptions()
	wopts.Scan = true
	wopts.Skip = func(name string) bool {
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		return strings.HasSuffix(stem, rotatedSuffix) || strings.HasSuffix(stem, overlaySuffix)
	}

	return watch.Run(ctx, c.watchDir, wopts, func(path string) {
		start := time.Now()
		img, err := imaging.Open(path)
		if err != nil {
			log.Printf("Error reading input file %s: %v", path, err)
			return
		}

		angle, err := c.process(ctx, img, opts, c.outputsFor(path))
		if err != nil {
			log.Printf("Failed to process %s: %v", path, err)
			return
		}
		fmt.Fprintf(stdout, "%s\t%d\n", path, angle)
		log.Printf("Program Execution Time = %d ms", time.Since(start).Milliseconds())
	})
}

func (c *config) outputsFor(path string) outputs {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	var out outputs
	if c.rotated != "" {
		out.rotated = filepath.Join(c.rotated, stem+rotatedSuffix+".png")
	}
	if c.overlay != "" {
		out.overlay = filepath.Join(c.overlay, stem+overlaySuffix+".png")
	}
	if c.debugDir != "" {
		out.debugDir = filepath.Join(c.debugDir, stem)
	}
	return out
}
