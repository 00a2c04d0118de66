package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var pathProperty = map[string]interface{}{
	"type":        "string",
	"description": "Absolute path to the image file",
}

var sessionProperty = map[string]interface{}{
	"type":        "string",
	"description": "Session id returned by redeye_open",
}

var blobProperty = map[string]interface{}{
	"type":        "integer",
	"description": "Blob id from redeye_identify_blobs (1-based)",
}

var colorProperty = map[string]interface{}{
	"type":        "string",
	"description": "Overlay color as #RRGGBB. Defaults to the configured highlight color (#00FF00)",
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Image Operations
		{
			Name:        "image_load",
			Description: "Load an image file into the working cache and return its dimensions and format. Corrections are applied to this working copy until image_save writes it out.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_reload",
			Description: "Re-read an image from disk, discarding unsaved corrections. Open red-eye sessions on the image are closed.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_save",
			Description: "Write the working copy of an image, including corrections, to a file. The format follows the output extension (.png, .jpg, .jpeg).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"output": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path of the file to write",
					},
					"quality": map[string]interface{}{
						"type":        "integer",
						"description": "JPEG quality 1-100. Default 95",
						"default":     95,
					},
				},
				"required": []string{"path", "output"},
			},
		},
		{
			Name:        "image_sample_color",
			Description: "Get the color at a pixel and whether it counts as a red-eye candidate under the given thresholds. Useful for tuning redeye_identify_blobs.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "X coordinate (0-based, from left)",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Y coordinate (0-based, from top)",
					},
					"green_sensitivity": map[string]interface{}{
						"type":        "number",
						"description": "Red must exceed green times this factor. Default 2.0",
						"default":     2.0,
					},
					"blue_sensitivity": map[string]interface{}{
						"type":        "number",
						"description": "Red must exceed blue times this factor. Default 0.0",
						"default":     0.0,
					},
					"min_red_value": map[string]interface{}{
						"type":        "integer",
						"description": "Red must exceed this level (0-255). Default 20",
						"default":     20,
					},
				},
				"required": []string{"path", "x", "y"},
			},
		},

		// Red-eye Sessions
		{
			Name:        "redeye_open",
			Description: "Open a red-eye session on a rectangle of a loaded image. Corners are inclusive pixel coordinates; the rectangle must be at least 2x2 and inside the image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"x1": map[string]interface{}{
						"type":        "integer",
						"description": "Left edge X coordinate (inclusive)",
					},
					"y1": map[string]interface{}{
						"type":        "integer",
						"description": "Top edge Y coordinate (inclusive)",
					},
					"x2": map[string]interface{}{
						"type":        "integer",
						"description": "Right edge X coordinate (inclusive)",
					},
					"y2": map[string]interface{}{
						"type":        "integer",
						"description": "Bottom edge Y coordinate (inclusive)",
					},
				},
				"required": []string{"path", "x1", "y1", "x2", "y2"},
			},
		},
		{
			Name:        "redeye_identify_blobs",
			Description: "Detect red blobs in the session area. Returns regions with at least two pixels; each new call replaces the blob ids of the previous one.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionProperty,
					"green_sensitivity": map[string]interface{}{
						"type":        "number",
						"description": "Red must exceed green times this factor. Default 2.0",
						"default":     2.0,
					},
					"blue_sensitivity": map[string]interface{}{
						"type":        "number",
						"description": "Red must exceed blue times this factor. Default 0.0",
						"default":     0.0,
					},
					"min_red_value": map[string]interface{}{
						"type":        "integer",
						"description": "Red must exceed this level (0-255). Default 20",
						"default":     20,
					},
				},
				"required": []string{"session_id"},
			},
		},
		{
			Name:        "redeye_correct_blob",
			Description: "Desaturate a blob in the working copy with a feathered edge.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionProperty,
					"blob_id":    blobProperty,
				},
				"required": []string{"session_id", "blob_id"},
			},
		},
		{
			Name:        "redeye_highlight_blob",
			Description: "Paint a blob into the working copy with a feathered overlay color.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionProperty,
					"blob_id":    blobProperty,
					"color":      colorProperty,
				},
				"required": []string{"session_id", "blob_id"},
			},
		},
		{
			Name:        "redeye_preview_blob",
			Description: "Render a blob highlight into the session preview and return the preview as base64-encoded PNG. The working copy is not changed.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionProperty,
					"blob_id":    blobProperty,
					"color":      colorProperty,
					"reset": map[string]interface{}{
						"type":        "boolean",
						"description": "Restore the preview from the working copy before drawing. Default true; false accumulates overlays",
						"default":     true,
					},
				},
				"required": []string{"session_id", "blob_id"},
			},
		},
		{
			Name:        "redeye_preview",
			Description: "Return the session preview as base64-encoded PNG without drawing anything.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionProperty,
				},
				"required": []string{"session_id"},
			},
		},
		{
			Name:        "redeye_close",
			Description: "Close a red-eye session and free its buffers.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionProperty,
				},
				"required": []string{"session_id"},
			},
		},

		// One-shot Corrections
		{
			Name:        "redeye_tap",
			Description: "Correct the red eye nearest to a tapped pixel. Searches a square around the tap sized from the image dimensions and fixes the closest eye-shaped blob.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "Tap X coordinate (0-based)",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Tap Y coordinate (0-based)",
					},
				},
				"required": []string{"path", "x", "y"},
			},
		},
		{
			Name:        "redeye_auto_correct",
			Description: "Correct the largest eye-shaped red blobs inside a rectangle. Corners may be given in any order and are clipped to the image. Open sessions on the image are closed.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"x1": map[string]interface{}{
						"type":        "integer",
						"description": "First corner X coordinate",
					},
					"y1": map[string]interface{}{
						"type":        "integer",
						"description": "First corner Y coordinate",
					},
					"x2": map[string]interface{}{
						"type":        "integer",
						"description": "Opposite corner X coordinate",
					},
					"y2": map[string]interface{}{
						"type":        "integer",
						"description": "Opposite corner Y coordinate",
					},
					"max_eyes": map[string]interface{}{
						"type":        "integer",
						"description": "Number of largest blobs to correct. Default 2",
						"default":     2,
					},
				},
				"required": []string{"path", "x1", "y1", "x2", "y2"},
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
