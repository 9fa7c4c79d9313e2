package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

func regionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type": "string",
		"description": "Optional region of interest: \"x1,y1,x2,y2\" (0-based, x2/y2 exclusive) or one of " +
			"top-left, top-right, bottom-left, bottom-right, top-half, bottom-half, left-half, right-half, center",
	}
}

func percentileProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "number",
		"description": "Percentile as a fraction in [0,1) or a percentage in (1,100). Default 0.9",
		"default":     0.9,
	}
}

func angleProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "number",
		"description": "Angle in degrees, counter-clockwise. When omitted the orientation is estimated first",
	}
}

func maxSizeProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": "Scale the returned image down to fit this many pixels per side. Default 1024, 0 keeps full size",
		"default":     1024,
	}
}

// searchProperties are the estimate parameters shared by every tool that may
// run an estimate.
func searchProperties() map[string]interface{} {
	return map[string]interface{}{
		"path":       pathProperty(),
		"percentile": percentileProperty(),
		"region":     regionProperty(),
		"threshold_max": map[string]interface{}{
			"type":        "integer",
			"description": "Value foreground pixels take after thresholding (1-255). Default 1",
			"default":     1,
		},
		"min_degrees": map[string]interface{}{
			"type":        "integer",
			"description": "First candidate angle. Default 0",
			"default":     0,
		},
		"max_degrees": map[string]interface{}{
			"type":        "integer",
			"description": "Last candidate angle. Default 180",
			"default":     180,
		},
		"step_degrees": map[string]interface{}{
			"type":        "integer",
			"description": "Spacing between candidate angles. Default 5",
			"default":     5,
		},
		"backend": map[string]interface{}{
			"type":        "string",
			"description": "Image processing backend. Default bild",
		},
	}
}

func withProperties(base map[string]interface{}, extra map[string]interface{}) map[string]interface{} {
	for k, v := range extra {
		base[k] = v
	}
	return base
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format and the centre the orientation search rotates about.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"reload": map[string]interface{}{
						"type":        "boolean",
						"description": "Read the file again even if it is cached. Default false",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},

		// Orientation
		{
			Name: "orientation_estimate",
			Description: "Estimate the orientation of the dominant bright elongated target in an image. " +
				"Returns the angle in degrees that rotates the target parallel to the image rows, the threshold " +
				"level used and the score of every candidate angle.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(searchProperties(), map[string]interface{}{
					"include_candidates": map[string]interface{}{
						"type":        "boolean",
						"description": "Include every candidate's score. Default true",
						"default":     true,
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "orientation_rotate",
			Description: "Rotate an image about its centre by the given or estimated angle and return it as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(searchProperties(), map[string]interface{}{
					"angle":    angleProperty(),
					"max_size": maxSizeProperty(),
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "orientation_overlay",
			Description: "Draw the orientation axis for the given or estimated angle over the image and return it as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(searchProperties(), map[string]interface{}{
					"angle":    angleProperty(),
					"max_size": maxSizeProperty(),
					"color": map[string]interface{}{
						"type":        "string",
						"description": "Axis color as hex (#RRGGBB or #RRGGBBAA). Default #FF0000",
						"default":     "#FF0000",
					},
					"thickness": map[string]interface{}{
						"type":        "integer",
						"description": "Axis thickness in pixels. Default 3",
						"default":     3,
					},
					"grid_spacing": map[string]interface{}{
						"type":        "integer",
						"description": "Also draw a coordinate grid every N pixels. Default 0 (no grid)",
						"default":     0,
					},
				}),
				"required": []string{"path"},
			},
		},

		// Pixel statistics
		{
			Name:        "pixel_percentile",
			Description: "Return the grayscale intensity at a percentile of the image's sorted pixel values. The result is always a value present in the image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":       pathProperty(),
					"percentile": percentileProperty(),
					"region":     regionProperty(),
					"blur": map[string]interface{}{
						"type":        "boolean",
						"description": "Apply the 5x5 Gaussian blur first, as the estimate does. Default false",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "pixel_median",
			Description: "Return the median grayscale intensity of the image from its histogram.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":   pathProperty(),
					"region": regionProperty(),
					"blur": map[string]interface{}{
						"type":        "boolean",
						"description": "Apply the 5x5 Gaussian blur first. Default false",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
