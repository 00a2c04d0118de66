package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/redeye-mcp/internal/imaging"
	"github.com/ironsheep/redeye-mcp/internal/redeye"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "redeye_open").
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
// Tool execution errors return a JSON-RPC error response with code -32000,
// or -32001 when a blob id is not in the session's region table.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	entry := s.log.WithFields(callFields(params))
	entry.Debug("tool call")

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		entry.WithError(err).Warn("tool failed")
		if errors.Is(err, redeye.ErrBlobOutOfRange) {
			return s.errorResponse(req.ID, -32001, "Blob id out of range", err.Error())
		}
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

// callFields picks the fields worth logging out of a tool call.
func callFields(params ToolCallParams) logrus.Fields {
	fields := logrus.Fields{"tool": params.Name}
	var common struct {
		Path      string `json:"path"`
		SessionID string `json:"session_id"`
		BlobID    *int   `json:"blob_id"`
	}
	if json.Unmarshal(params.Arguments, &common) != nil {
		return fields
	}
	if common.Path != "" {
		fields["path"] = common.Path
	}
	if common.SessionID != "" {
		fields["session"] = common.SessionID
	}
	if common.BlobID != nil {
		fields["blob"] = *common.BlobID
	}
	return fields
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies configured defaults for optional parameters
//  3. Loads the working copy or looks up the session
//  4. Calls the appropriate imaging/redeye function
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Image Operations
	case "image_load":
		return s.handleImageLoad(args)
	case "image_reload":
		return s.handleImageReload(args)
	case "image_save":
		return s.handleImageSave(args)
	case "image_sample_color":
		return s.handleImageSampleColor(args)

	// Red-eye Sessions
	case "redeye_open":
		return s.handleRedeyeOpen(args)
	case "redeye_identify_blobs":
		return s.handleRedeyeIdentifyBlobs(args)
	case "redeye_correct_blob":
		return s.handleRedeyeCorrectBlob(args)
	case "redeye_highlight_blob":
		return s.handleRedeyeHighlightBlob(args)
	case "redeye_preview_blob":
		return s.handleRedeyePreviewBlob(args)
	case "redeye_preview":
		return s.handleRedeyePreview(args)
	case "redeye_close":
		return s.handleRedeyeClose(args)

	// One-shot Corrections
	case "redeye_tap":
		return s.handleRedeyeTap(args)
	case "redeye_auto_correct":
		return s.handleRedeyeAutoCorrect(args)

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
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// thresholdArgs are the optional detection overrides shared by several tools.
type thresholdArgs struct {
	GreenSensitivity *float64 `json:"green_sensitivity"`
	BlueSensitivity  *float64 `json:"blue_sensitivity"`
	MinRedValue      *int     `json:"min_red_value"`
}

// thresholds applies the overrides on top of the configured thresholds.
func (s *Server) thresholds(a thresholdArgs) redeye.Thresholds {
	t := s.cfg.Thresholds()
	if a.GreenSensitivity != nil {
		t.GreenSensitivity = *a.GreenSensitivity
	}
	if a.BlueSensitivity != nil {
		t.BlueSensitivity = *a.BlueSensitivity
	}
	if a.MinRedValue != nil {
		t.MinRedValue = *a.MinRedValue
	}
	return t
}

// highlightColor parses an optional #RRGGBB argument, falling back to the
// configured colour.
func (s *Server) highlightColor(arg string) (color.NRGBA, error) {
	if arg == "" {
		return s.cfg.HighlightColor()
	}
	return imaging.ParseHexColor(arg)
}

func (s *Server) loadImage(path string) (*image.NRGBA, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	return s.cache.Load(path)
}

// blobResult reports a region with its derived metrics and its bounding box
// in image coordinates.
type blobResult struct {
	redeye.Region
	Ratio       float64     `json:"ratio"`
	Density     float64     `json:"density"`
	Squareish   bool        `json:"squareish"`
	ImageBounds redeye.Area `json:"image_bounds"`
}

func newBlobResult(r redeye.Region, bounds image.Rectangle) blobResult {
	return blobResult{
		Region:    r,
		Ratio:     r.Ratio(),
		Density:   r.Density(),
		Squareish: r.Squareish(redeye.DefaultMinRatio, redeye.DefaultMinDensity),
		ImageBounds: redeye.Area{
			MinX: bounds.Min.X,
			MinY: bounds.Min.Y,
			MaxX: bounds.Max.X - 1,
			MaxY: bounds.Max.Y - 1,
		},
	}
}

// === Image Handlers ===

type imagePathArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imagePathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

type imageReloadResult struct {
	Image          *imaging.ImageInfo `json:"image"`
	SessionsClosed int                `json:"sessions_closed"`
}

func (s *Server) handleImageReload(args json.RawMessage) (interface{}, error) {
	var a imagePathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if _, err := s.cache.Reload(a.Path); err != nil {
		return nil, err
	}
	closed := s.closeSessionsFor(a.Path)
	info, err := imaging.LoadImageInfo(s.cache, a.Path)
	if err != nil {
		return nil, err
	}
	return &imageReloadResult{Image: info, SessionsClosed: closed}, nil
}

type imageSaveArgs struct {
	Path    string `json:"path"`
	Output  string `json:"output"`
	Quality int    `json:"quality"`
}

type imageSaveResult struct {
	Output string `json:"output"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (s *Server) handleImageSave(args json.RawMessage) (interface{}, error) {
	var a imageSaveArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Output == "" {
		return nil, fmt.Errorf("output is required")
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}
	if err := imaging.Save(a.Output, img, a.Quality); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"path": a.Path, "output": a.Output}).Info("image saved")
	return &imageSaveResult{
		Output: a.Output,
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}, nil
}

type imageSampleColorArgs struct {
	Path string `json:"path"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	thresholdArgs
}

type imageSampleColorResult struct {
	X          int                  `json:"x"`
	Y          int                  `json:"y"`
	Color      *imaging.ColorResult `json:"color"`
	Candidate  bool                 `json:"candidate"`
	Thresholds redeye.Thresholds    `json:"thresholds"`
}

func (s *Server) handleImageSampleColor(args json.RawMessage) (interface{}, error) {
	var a imageSampleColorArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}
	c, err := imaging.SampleColor(img, a.X, a.Y)
	if err != nil {
		return nil, err
	}
	t := s.thresholds(a.thresholdArgs)
	return &imageSampleColorResult{
		X:          a.X,
		Y:          a.Y,
		Color:      c,
		Candidate:  t.Candidate(c.RGB.R, c.RGB.G, c.RGB.B),
		Thresholds: t,
	}, nil
}

// === Red-eye Session Handlers ===

type redeyeOpenArgs struct {
	Path string `json:"path"`
	X1   int    `json:"x1"`
	Y1   int    `json:"y1"`
	X2   int    `json:"x2"`
	Y2   int    `json:"y2"`
}

type redeyeOpenResult struct {
	SessionID string      `json:"session_id"`
	Path      string      `json:"path"`
	Area      redeye.Area `json:"area"`
	Width     int         `json:"width"`
	Height    int         `json:"height"`
}

func (s *Server) handleRedeyeOpen(args json.RawMessage) (interface{}, error) {
	var a redeyeOpenArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}

	area := redeye.Area{MinX: a.X1, MinY: a.Y1, MaxX: a.X2, MaxY: a.Y2}
	if err := area.Validate(img.Bounds()); err != nil {
		return nil, fmt.Errorf("invalid area: %w", err)
	}

	ctx := redeye.New(img, area.MinX, area.MinY, area.MaxX, area.MaxY)
	sess := s.openSession(a.Path, ctx)
	s.log.WithFields(logrus.Fields{"session": sess.id, "path": a.Path}).Debug("session opened")

	return &redeyeOpenResult{
		SessionID: sess.id,
		Path:      a.Path,
		Area:      area,
		Width:     area.Width(),
		Height:    area.Height(),
	}, nil
}

type redeyeIdentifyArgs struct {
	SessionID string `json:"session_id"`
	thresholdArgs
}

type redeyeIdentifyResult struct {
	SessionID string `json:"session_id"`
	// RegionCount includes noise regions left out of Blobs; valid blob ids
	// run from 1 to RegionCount.
	RegionCount int               `json:"region_count"`
	Thresholds  redeye.Thresholds `json:"thresholds"`
	Blobs       []blobResult      `json:"blobs"`
}

func (s *Server) handleRedeyeIdentifyBlobs(args json.RawMessage) (interface{}, error) {
	var a redeyeIdentifyArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.session(a.SessionID)
	if err != nil {
		return nil, err
	}

	t := s.thresholds(a.thresholdArgs)
	regions := sess.ctx.IdentifyBlobs(t)

	blobs := make([]blobResult, 0, len(regions))
	for _, r := range regions {
		blobs = append(blobs, newBlobResult(r, sess.ctx.ImageBounds(r)))
	}
	return &redeyeIdentifyResult{
		SessionID:   sess.id,
		RegionCount: sess.ctx.Len() - 1,
		Thresholds:  t,
		Blobs:       blobs,
	}, nil
}

type redeyeBlobArgs struct {
	SessionID string `json:"session_id"`
	BlobID    int    `json:"blob_id"`
	Color     string `json:"color"`
	Reset     *bool  `json:"reset"`
}

type redeyeBlobResult struct {
	SessionID string     `json:"session_id"`
	BlobID    int        `json:"blob_id"`
	Action    string     `json:"action"`
	Blob      blobResult `json:"blob"`
}

func (s *Server) handleRedeyeCorrectBlob(args json.RawMessage) (interface{}, error) {
	var a redeyeBlobArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.session(a.SessionID)
	if err != nil {
		return nil, err
	}

	if err := sess.ctx.CorrectBlob(a.BlobID); err != nil {
		return nil, err
	}
	s.cache.MarkModified(sess.path)
	return s.blobActionResult(sess, a.BlobID, "corrected")
}

func (s *Server) handleRedeyeHighlightBlob(args json.RawMessage) (interface{}, error) {
	var a redeyeBlobArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.session(a.SessionID)
	if err != nil {
		return nil, err
	}
	c, err := s.highlightColor(a.Color)
	if err != nil {
		return nil, err
	}

	if err := sess.ctx.HighlightBlob(a.BlobID, c); err != nil {
		return nil, err
	}
	s.cache.MarkModified(sess.path)
	return s.blobActionResult(sess, a.BlobID, "highlighted")
}

func (s *Server) blobActionResult(sess *session, id int, action string) (*redeyeBlobResult, error) {
	r, err := sess.ctx.Region(id)
	if err != nil {
		return nil, err
	}
	return &redeyeBlobResult{
		SessionID: sess.id,
		BlobID:    id,
		Action:    action,
		Blob:      newBlobResult(r, sess.ctx.ImageBounds(r)),
	}, nil
}

type redeyePreviewResult struct {
	SessionID string      `json:"session_id"`
	BlobID    int         `json:"blob_id,omitempty"`
	Area      redeye.Area `json:"area"`
	*imaging.EncodedImage
}

func (s *Server) handleRedeyePreviewBlob(args json.RawMessage) (interface{}, error) {
	var a redeyeBlobArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.session(a.SessionID)
	if err != nil {
		return nil, err
	}
	c, err := s.highlightColor(a.Color)
	if err != nil {
		return nil, err
	}
	reset := true
	if a.Reset != nil {
		reset = *a.Reset
	}

	preview, err := sess.ctx.PreviewBlob(a.BlobID, c, reset)
	if err != nil {
		return nil, err
	}
	enc, err := imaging.EncodePNG(preview)
	if err != nil {
		return nil, err
	}
	return &redeyePreviewResult{
		SessionID:    sess.id,
		BlobID:       a.BlobID,
		Area:         sess.ctx.Area(),
		EncodedImage: enc,
	}, nil
}

type redeyeSessionArgs struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleRedeyePreview(args json.RawMessage) (interface{}, error) {
	var a redeyeSessionArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.session(a.SessionID)
	if err != nil {
		return nil, err
	}

	enc, err := imaging.EncodePNG(sess.ctx.Preview())
	if err != nil {
		return nil, err
	}
	return &redeyePreviewResult{
		SessionID:    sess.id,
		Area:         sess.ctx.Area(),
		EncodedImage: enc,
	}, nil
}

type redeyeCloseResult struct {
	SessionID string `json:"session_id"`
	Closed    bool   `json:"closed"`
}

func (s *Server) handleRedeyeClose(args json.RawMessage) (interface{}, error) {
	var a redeyeSessionArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.session(a.SessionID)
	if err != nil {
		return nil, err
	}
	delete(s.sessions, sess.id)
	s.log.WithFields(logrus.Fields{"session": sess.id, "open_for": time.Since(sess.created).String()}).Debug("session closed")
	return &redeyeCloseResult{SessionID: sess.id, Closed: true}, nil
}

// === One-shot Correction Handlers ===

type redeyeTapArgs struct {
	Path string `json:"path"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

type redeyeTapResult struct {
	Path       string      `json:"path"`
	Area       redeye.Area `json:"area"`
	Candidates int         `json:"candidates"`
	Corrected  bool        `json:"corrected"`
	Blob       *blobResult `json:"blob,omitempty"`
}

func (s *Server) handleRedeyeTap(args json.RawMessage) (interface{}, error) {
	var a redeyeTapArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}

	res, err := redeye.Tap(img, a.X, a.Y, s.cfg.TapOptions())
	if err != nil {
		return nil, err
	}

	out := &redeyeTapResult{
		Path:       a.Path,
		Area:       res.Area,
		Candidates: res.Candidates,
		Corrected:  res.Corrected,
	}
	if res.Corrected {
		s.cache.MarkModified(a.Path)
		b := newBlobResult(*res.Region, *res.Bounds)
		out.Blob = &b
	}
	return out, nil
}

type redeyeAutoCorrectArgs struct {
	Path    string `json:"path"`
	X1      int    `json:"x1"`
	Y1      int    `json:"y1"`
	X2      int    `json:"x2"`
	Y2      int    `json:"y2"`
	MaxEyes *int   `json:"max_eyes"`
}

type redeyeAutoCorrectResult struct {
	Path           string       `json:"path"`
	Area           redeye.Area  `json:"area"`
	Corrected      []blobResult `json:"corrected"`
	SessionsClosed int          `json:"sessions_closed"`
}

func (s *Server) handleRedeyeAutoCorrect(args json.RawMessage) (interface{}, error) {
	var a redeyeAutoCorrectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}

	opts := s.cfg.AutoOptions()
	if a.MaxEyes != nil {
		opts.MaxEyes = *a.MaxEyes
	}

	out, regions, err := redeye.AutoCorrect(img, a.X1, a.Y1, a.X2, a.Y2, opts)
	if err != nil {
		return nil, err
	}
	area, _ := redeye.ClipArea(img.Bounds(), a.X1, a.Y1, a.X2, a.Y2)
	offset := image.Pt(area.MinX, area.MinY)

	result := &redeyeAutoCorrectResult{
		Path:      a.Path,
		Area:      area,
		Corrected: make([]blobResult, 0, len(regions)),
	}
	for _, r := range regions {
		result.Corrected = append(result.Corrected, newBlobResult(r, r.Bounds().Add(offset)))
	}

	if len(regions) > 0 {
		s.cache.Replace(a.Path, out)
		result.SessionsClosed = s.closeSessionsFor(a.Path)
	}
	return result, nil
}
