// Package server implements the MCP (Model Context Protocol) server for target
// orientation estimation.
//
// This package provides a JSON-RPC 2.0 server that exposes the orientation
// pipeline and its building blocks through the MCP protocol, so an MCP client
// can ask how far a target in an image is tilted and check the answer visually.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// A line that is not valid JSON is answered with a -32700 parse error and the
// loop carries on with the next line.
//
// # Available Tools
//
// Image Information:
//   - image_load: Load image and get metadata
//
// Orientation:
//   - orientation_estimate: Run the full pipeline and report the angle
//   - orientation_rotate: Rotate the image by a given or estimated angle
//   - orientation_overlay: Draw the orientation axis over the image
//
// Pixel Statistics:
//   - pixel_percentile: Intensity at a percentile of the sorted samples
//   - pixel_median: Histogram median intensity
//
// The orientation tools share the estimate parameters (percentile, region,
// threshold_max, min_degrees, max_degrees, step_degrees, backend). Angles are
// in degrees, counter-clockwise as the image is displayed.
//
// # Image Caching
//
// Decoded images are cached by path and reused across tool calls for the
// lifetime of the server process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
//	srv := server.New(version)
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Cancelling ctx stops the read loop and any search in progress.
package server
