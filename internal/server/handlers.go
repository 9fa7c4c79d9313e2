package server

import (
	"encoding/json"
	"fmt"
	"image"
	"runtime"

	"github.com/ironsheep/target-orientation/internal/imaging"
	"github.com/ironsheep/target-orientation/internal/orientation"
	"github.com/ironsheep/target-orientation/internal/pipeline"
	"github.com/ironsheep/target-orientation/internal/vision"
)

// defaultMaxSize bounds the side length of images returned to the client.
const defaultMaxSize = 1024

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "orientation_estimate").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "image_load":
		return s.handleImageLoad(args)

	// Orientation
	case "orientation_estimate":
		return s.handleOrientationEstimate(args)
	case "orientation_rotate":
		return s.handleOrientationRotate(args)
	case "orientation_overlay":
		return s.handleOrientationOverlay(args)

	// Pixel statistics
	case "pixel_percentile":
		return s.handlePixelPercentile(args)
	case "pixel_median":
		return s.handlePixelMedian(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// unmarshalArgs decodes tool arguments and checks that a path was given.
func unmarshalArgs(args json.RawMessage, v interface{ path() string }) error {
	if len(args) == 0 {
		return fmt.Errorf("missing arguments")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return err
	}
	if v.path() == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}

// === Image Information Handlers ===

type imageLoadArgs struct {
	Path   string `json:"path"`
	Reload bool   `json:"reload"`
}

func (a *imageLoadArgs) path() string { return a.Path }

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Reload {
		s.cache.Evict(a.Path)
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

// === Orientation Handlers ===

// searchArgs are the estimate parameters every orientation tool accepts.
type searchArgs struct {
	Path         string   `json:"path"`
	Percentile   *float64 `json:"percentile"`
	Region       string   `json:"region"`
	ThresholdMax *int     `json:"threshold_max"`
	MinDegrees   int      `json:"min_degrees"`
	MaxDegrees   *int     `json:"max_degrees"`
	StepDegrees  int      `json:"step_degrees"`
	Backend      string   `json:"backend"`
}

func (a *searchArgs) path() string { return a.Path }

// options turns the arguments into pipeline options for an image of the given bounds.
func (a *searchArgs) options(bounds image.Rectangle) (*pipeline.Options, error) {
	opts := pipeline.NewOptions()

	if a.Percentile != nil {
		p, err := pipeline.NormalizePercentile(*a.Percentile)
		if err != nil {
			return nil, err
		}
		opts.Percentile = p
	}
	if a.ThresholdMax != nil {
		if *a.ThresholdMax < 1 || *a.ThresholdMax > 255 {
			return nil, fmt.Errorf("threshold_max must be between 1 and 255, got %d", *a.ThresholdMax)
		}
		opts.ThresholdMax = uint8(*a.ThresholdMax)
	}

	opts.Search.MinDegrees = a.MinDegrees
	if a.MaxDegrees != nil {
		opts.Search.MaxDegrees = *a.MaxDegrees
	}
	if a.StepDegrees != 0 {
		opts.Search.StepDegrees = a.StepDegrees
	}
	opts.Search.Workers = runtime.NumCPU()
	if err := opts.Search.Validate(); err != nil {
		return nil, err
	}

	backend, err := vision.Lookup(a.Backend)
	if err != nil {
		return nil, err
	}
	opts.Backend = backend

	if a.Region != "" {
		r, err := imaging.ParseRegion(a.Region, bounds)
		if err != nil {
			return nil, err
		}
		opts.Region = &r
	}
	return opts, nil
}

// estimate loads the image and runs the pipeline on it.
func (s *Server) estimate(a *searchArgs) (*pipeline.Report, image.Image, error) {
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, nil, err
	}
	opts, err := a.options(img.Bounds())
	if err != nil {
		return nil, nil, err
	}
	report, err := pipeline.Estimate(s.ctx, img, opts)
	if err != nil {
		return nil, nil, err
	}
	return report, img, nil
}

// resolveAngle returns the requested angle, or estimates one when none was given.
func (s *Server) resolveAngle(a *searchArgs, angle *float64) (float64, bool, image.Image, error) {
	if angle != nil {
		img, err := s.cache.Load(a.Path)
		if err != nil {
			return 0, false, nil, err
		}
		return *angle, false, img, nil
	}
	report, img, err := s.estimate(a)
	if err != nil {
		return 0, false, nil, err
	}
	return float64(report.Angle), true, img, nil
}

type orientationEstimateArgs struct {
	searchArgs
	IncludeCandidates *bool `json:"include_candidates"`
}

// EstimateResult is the orientation_estimate response.
type EstimateResult struct {
	*pipeline.Report
	Summary   string  `json:"summary"`
	ElapsedMS float64 `json:"elapsed_ms"`
}

func (s *Server) handleOrientationEstimate(args json.RawMessage) (interface{}, error) {
	var a orientationEstimateArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}

	report, _, err := s.estimate(&a.searchArgs)
	if err != nil {
		return nil, err
	}

	if a.IncludeCandidates != nil && !*a.IncludeCandidates {
		res := *report.Result
		res.Candidates = nil
		report.Result = &res
	}

	return &EstimateResult{
		Report:    report,
		Summary:   report.Summary(),
		ElapsedMS: float64(report.Elapsed.Microseconds()) / 1000,
	}, nil
}

// ImageResult is the response of tools that return an image.
type ImageResult struct {
	Angle     float64 `json:"angle"`
	Estimated bool    `json:"estimated"`
	*imaging.EncodedImage
}

type orientationRotateArgs struct {
	searchArgs
	Angle   *float64 `json:"angle"`
	MaxSize *int     `json:"max_size"`
}

func (s *Server) handleOrientationRotate(args json.RawMessage) (interface{}, error) {
	var a orientationRotateArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}

	angle, estimated, img, err := s.resolveAngle(&a.searchArgs, a.Angle)
	if err != nil {
		return nil, err
	}

	rotated, err := orientation.RotateImage(img, angle)
	if err != nil {
		return nil, err
	}
	encoded, err := imaging.EncodePNG(rotated, maxSize(a.MaxSize))
	if err != nil {
		return nil, err
	}
	return &ImageResult{Angle: angle, Estimated: estimated, EncodedImage: encoded}, nil
}

type orientationOverlayArgs struct {
	searchArgs
	Angle       *float64 `json:"angle"`
	MaxSize     *int     `json:"max_size"`
	Color       string   `json:"color"`
	Thickness   int      `json:"thickness"`
	GridSpacing int      `json:"grid_spacing"`
}

func (s *Server) handleOrientationOverlay(args json.RawMessage) (interface{}, error) {
	var a orientationOverlayArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}

	angle, estimated, img, err := s.resolveAngle(&a.searchArgs, a.Angle)
	if err != nil {
		return nil, err
	}

	opts := imaging.NewOverlayOptions()
	if a.Color != "" {
		opts.Color = a.Color
	}
	if a.Thickness != 0 {
		opts.Thickness = a.Thickness
	}
	opts.GridSpacing = a.GridSpacing

	overlay, err := imaging.OrientationOverlay(img, angle, opts)
	if err != nil {
		return nil, err
	}
	encoded, err := imaging.EncodePNG(overlay, maxSize(a.MaxSize))
	if err != nil {
		return nil, err
	}
	return &ImageResult{Angle: angle, Estimated: estimated, EncodedImage: encoded}, nil
}

func maxSize(v *int) int {
	if v == nil {
		return defaultMaxSize
	}
	return *v
}

// === Pixel Statistics Handlers ===

type pixelStatsArgs struct {
	Path       string   `json:"path"`
	Percentile *float64 `json:"percentile"`
	Region     string   `json:"region"`
	Blur       bool     `json:"blur"`
}

func (a *pixelStatsArgs) path() string { return a.Path }

// PixelStatsResult is the response of the pixel statistics tools.
type PixelStatsResult struct {
	Value      *uint8          `json:"value,omitempty"`
	Percentile *float64        `json:"percentile,omitempty"`
	Median     *float64        `json:"median,omitempty"`
	Samples    int             `json:"samples"`
	Region     image.Rectangle `json:"region"`
	Blurred    bool            `json:"blurred"`
}

// grid loads the image as grayscale, optionally blurs it and restricts it to the region.
func (s *Server) grid(a *pixelStatsArgs) (orientation.GrayGrid, image.Rectangle, error) {
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return orientation.GrayGrid{}, image.Rectangle{}, err
	}

	gray := vision.ToGray(img)
	if a.Blur {
		if gray, err = vision.Default().Blur(gray); err != nil {
			return orientation.GrayGrid{}, image.Rectangle{}, err
		}
	}

	region := gray.Rect
	if a.Region != "" {
		if region, err = imaging.ParseRegion(a.Region, gray.Rect); err != nil {
			return orientation.GrayGrid{}, image.Rectangle{}, err
		}
		gray = gray.SubImage(region).(*image.Gray)
	}
	return orientation.NewGrayGrid(gray), region, nil
}

func (s *Server) handlePixelPercentile(args json.RawMessage) (interface{}, error) {
	var a pixelStatsArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}

	p := pipeline.DefaultPercentile
	if a.Percentile != nil {
		var err error
		if p, err = pipeline.NormalizePercentile(*a.Percentile); err != nil {
			return nil, err
		}
	}

	g, region, err := s.grid(&a)
	if err != nil {
		return nil, err
	}
	v, err := orientation.SelectPercentile(g, p)
	if err != nil {
		return nil, err
	}
	return &PixelStatsResult{
		Value:      &v,
		Percentile: &p,
		Samples:    g.Rows() * g.Cols(),
		Region:     region,
		Blurred:    a.Blur,
	}, nil
}

func (s *Server) handlePixelMedian(args json.RawMessage) (interface{}, error) {
	var a pixelStatsArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}

	g, region, err := s.grid(&a)
	if err != nil {
		return nil, err
	}
	m := orientation.Median(g)
	return &PixelStatsResult{
		Median:  &m,
		Samples: g.Rows() * g.Cols(),
		Region:  region,
		Blurred: a.Blur,
	}, nil
}
