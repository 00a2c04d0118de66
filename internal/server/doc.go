// Package server implements the MCP (Model Context Protocol) server for red-eye
// detection and correction.
//
// This package provides a JSON-RPC 2.0 server that exposes the redeye engine
// through the MCP protocol, so an assistant can find red eyes in a photo,
// inspect them, and fix them one blob at a time.
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
// # Available Tools
//
// Image Operations:
//   - image_load: Load image into the working cache and get metadata
//   - image_reload: Discard corrections and re-read from disk
//   - image_save: Write the working copy to PNG or JPEG
//   - image_sample_color: Get color at pixel and its candidate status
//
// Red-eye Sessions:
//   - redeye_open: Start a session on a rectangle of an image
//   - redeye_identify_blobs: Detect and label red blobs
//   - redeye_correct_blob: Desaturate a blob
//   - redeye_highlight_blob: Paint a blob with an overlay color
//   - redeye_preview_blob: Render a blob overlay into the preview
//   - redeye_preview: Fetch the preview
//   - redeye_close: End a session
//
// One-shot Corrections:
//   - redeye_tap: Fix the eye nearest a point
//   - redeye_auto_correct: Fix the largest eyes in a rectangle
//
// # Working Copies and Sessions
//
// Images are decoded once into an in-memory working copy keyed by path.
// Corrections write into that copy; nothing reaches disk until image_save.
// A session holds a redeye Context over one rectangle of a working copy and
// is addressed by a random UUID. Blob ids are only meaningful within the
// session's latest redeye_identify_blobs call.
//
// Tools that replace a working copy (image_reload, redeye_auto_correct) close
// every session on that image.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure), -32001 (blob id out of range)
//     or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	cfg, _ := config.Load("", nil)
//	logger, _ := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
//	srv := server.New(cfg, logger)
//	if err := srv.Run(); err != nil {
//	    logger.Fatal(err)
//	}
package server
