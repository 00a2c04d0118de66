package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	dimaging "github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/redeye-mcp/internal/imaging"
)

var (
	grey = color.NRGBA{R: 100, G: 100, B: 100, A: 255}
	red  = color.NRGBA{R: 200, G: 20, B: 20, A: 255}
)

// createTestImageFile creates a test image file and returns its path
func createTestImageFile(t *testing.T, img image.Image) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "handler-test.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func fill(img *image.NRGBA, r image.Rectangle, c color.Color) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.Set(x, y, c)
		}
	}
}

// createEyesImageFile writes a 60x40 grey image with a 5x5 eye at (10,10)
// and a 3x3 eye at (40,10).
func createEyesImageFile(t *testing.T) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 60, 40))
	fill(img, img.Bounds(), grey)
	fill(img, image.Rect(10, 10, 15, 15), red)
	fill(img, image.Rect(40, 10, 43, 13), red)
	return createTestImageFile(t, img)
}

func callTool(t *testing.T, s *Server, name string, args interface{}) *MCPResponse {
	t.Helper()
	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	paramsJSON, err := json.Marshal(params)
	require.NoError(t, err)

	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	require.NotNil(t, resp)
	return resp
}

// callToolOK calls a tool, requires success and decodes the text content into out.
func callToolOK(t *testing.T, s *Server, name string, args, out interface{}) {
	t.Helper()
	resp := callTool(t, s, name, args)
	require.Nil(t, resp.Error, "tool %s failed: %+v", name, resp.Error)

	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok, "Result should be a map")
	content, ok := result["content"].([]map[string]interface{})
	require.True(t, ok, "content should be a slice of maps")
	require.Len(t, content, 1)
	assert.Equal(t, "text", content[0]["type"])

	text, ok := content[0]["text"].(string)
	require.True(t, ok)
	require.NoError(t, json.Unmarshal([]byte(text), out))
}

func requireToolError(t *testing.T, resp *MCPResponse, code int) {
	t.Helper()
	require.NotNil(t, resp.Error, "expected error code %d", code)
	assert.Equal(t, code, resp.Error.Code)
	assert.NotEmpty(t, resp.Error.Data)
}

func decodePNG(t *testing.T, enc *imaging.EncodedImage) *image.NRGBA {
	t.Helper()
	require.NotNil(t, enc)
	assert.Equal(t, "image/png", enc.MimeType)
	data, err := base64.StdEncoding.DecodeString(enc.ImageBase64)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	// opaque images are written without alpha and decode as RGBA
	return dimaging.Clone(img)
}

func workingPixel(t *testing.T, s *Server, path string, x, y int) color.NRGBA {
	t.Helper()
	img, err := s.cache.Load(path)
	require.NoError(t, err)
	return img.NRGBAAt(x, y)
}

func openSession(t *testing.T, s *Server, path string, x1, y1, x2, y2 int) string {
	t.Helper()
	var opened redeyeOpenResult
	callToolOK(t, s, "redeye_open", map[string]interface{}{
		"path": path, "x1": x1, "y1": y1, "x2": x2, "y2": y2,
	}, &opened)
	require.NotEmpty(t, opened.SessionID)
	return opened.SessionID
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := newTestServer(t)
	path := createEyesImageFile(t)

	var info imaging.ImageInfo
	callToolOK(t, s, "image_load", map[string]interface{}{"path": path}, &info)

	assert.Equal(t, 60, info.Width)
	assert.Equal(t, 40, info.Height)
	assert.Equal(t, "png", info.Format)
	assert.False(t, info.Modified)
}

func TestHandleToolsCall_NonExistentFile(t *testing.T) {
	s := newTestServer(t)

	resp := callTool(t, s, "image_load", map[string]interface{}{"path": "/nonexistent/image.png"})

	requireToolError(t, resp, -32000)
}

func TestHandleToolsCall_InvalidTool(t *testing.T) {
	s := newTestServer(t)

	resp := callTool(t, s, "nonexistent_tool", map[string]interface{}{})

	requireToolError(t, resp, -32000)
	assert.Contains(t, resp.Error.Data, "unknown tool")
}

func TestHandleToolsCall_MissingArguments(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		tool string
		args map[string]interface{}
	}{
		{"image_load", map[string]interface{}{}},
		{"image_save", map[string]interface{}{"path": "/tmp/x.png"}},
		{"redeye_open", map[string]interface{}{"x1": 0, "y1": 0, "x2": 5, "y2": 5}},
		{"redeye_identify_blobs", map[string]interface{}{}},
		{"redeye_tap", map[string]interface{}{"x": 1, "y": 1}},
	}

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			requireToolError(t, callTool(t, s, tt.tool, tt.args), -32000)
		})
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer(t)

	resp := s.handleToolsCall(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Params:  json.RawMessage(`{invalid json}`),
	})

	requireToolError(t, resp, -32602)
}

func TestHandleToolsCall_SampleColor(t *testing.T) {
	s := newTestServer(t)
	path := createEyesImageFile(t)

	var eye imageSampleColorResult
	callToolOK(t, s, "image_sample_color", map[string]interface{}{"path": path, "x": 12, "y": 12}, &eye)
	assert.Equal(t, "#C81414", eye.Color.Hex)
	assert.True(t, eye.Candidate)
	assert.Equal(t, 20, eye.Thresholds.MinRedValue)

	var skin imageSampleColorResult
	callToolOK(t, s, "image_sample_color", map[string]interface{}{"path": path, "x": 0, "y": 0}, &skin)
	assert.False(t, skin.Candidate)

	var strict imageSampleColorResult
	callToolOK(t, s, "image_sample_color", map[string]interface{}{
		"path": path, "x": 12, "y": 12, "min_red_value": 250,
	}, &strict)
	assert.False(t, strict.Candidate)
	assert.Equal(t, 2.0, strict.Thresholds.GreenSensitivity)

	requireToolError(t, callTool(t, s, "image_sample_color", map[string]interface{}{"path": path, "x": 60, "y": 0}), -32000)
}

func TestHandleToolsCall_SessionFlow(t *testing.T) {
	s := newTestServer(t)
	path := createEyesImageFile(t)
	id := openSession(t, s, path, 0, 0, 59, 39)

	var found redeyeIdentifyResult
	callToolOK(t, s, "redeye_identify_blobs", map[string]interface{}{"session_id": id}, &found)

	assert.Equal(t, id, found.SessionID)
	assert.Equal(t, 2, found.RegionCount)
	require.Len(t, found.Blobs, 2)
	assert.Equal(t, 1, found.Blobs[0].ID)
	assert.Equal(t, 25, found.Blobs[0].PixelCount)
	assert.Equal(t, 1.0, found.Blobs[0].Ratio)
	assert.True(t, found.Blobs[0].Squareish)
	assert.Equal(t, 10, found.Blobs[0].ImageBounds.MinX)
	assert.Equal(t, 14, found.Blobs[0].ImageBounds.MaxY)
	assert.Equal(t, 2, found.Blobs[1].ID)
	assert.Equal(t, 9, found.Blobs[1].PixelCount)

	var corrected redeyeBlobResult
	callToolOK(t, s, "redeye_correct_blob", map[string]interface{}{"session_id": id, "blob_id": 1}, &corrected)
	assert.Equal(t, "corrected", corrected.Action)
	assert.Equal(t, 25, corrected.Blob.PixelCount)
	assert.Equal(t, color.NRGBA{28, 28, 28, 255}, workingPixel(t, s, path, 12, 12))

	var highlighted redeyeBlobResult
	callToolOK(t, s, "redeye_highlight_blob", map[string]interface{}{
		"session_id": id, "blob_id": 2, "color": "#0000FF",
	}, &highlighted)
	assert.Equal(t, "highlighted", highlighted.Action)
	assert.Equal(t, color.NRGBA{0, 0, 255, 255}, workingPixel(t, s, path, 41, 11))

	var info imaging.ImageInfo
	callToolOK(t, s, "image_load", map[string]interface{}{"path": path}, &info)
	assert.True(t, info.Modified)

	var closed redeyeCloseResult
	callToolOK(t, s, "redeye_close", map[string]interface{}{"session_id": id}, &closed)
	assert.True(t, closed.Closed)

	requireToolError(t, callTool(t, s, "redeye_identify_blobs", map[string]interface{}{"session_id": id}), -32000)
	requireToolError(t, callTool(t, s, "redeye_close", map[string]interface{}{"session_id": id}), -32000)
}

func TestHandleToolsCall_IdentifyThresholds(t *testing.T) {
	s := newTestServer(t)
	path := createEyesImageFile(t)
	id := openSession(t, s, path, 0, 0, 59, 39)

	var found redeyeIdentifyResult
	callToolOK(t, s, "redeye_identify_blobs", map[string]interface{}{
		"session_id": id, "min_red_value": 250,
	}, &found)

	assert.Empty(t, found.Blobs)
	assert.Equal(t, 0, found.RegionCount)
	assert.Equal(t, 250, found.Thresholds.MinRedValue)
}

func TestHandleToolsCall_Preview(t *testing.T) {
	s := newTestServer(t)
	path := createEyesImageFile(t)
	id := openSession(t, s, path, 5, 5, 24, 24)

	var found redeyeIdentifyResult
	callToolOK(t, s, "redeye_identify_blobs", map[string]interface{}{"session_id": id}, &found)
	require.Len(t, found.Blobs, 1)

	var preview redeyePreviewResult
	callToolOK(t, s, "redeye_preview_blob", map[string]interface{}{"session_id": id, "blob_id": 1}, &preview)

	assert.Equal(t, 20, preview.Width)
	assert.Equal(t, 20, preview.Height)
	img := decodePNG(t, preview.EncodedImage)
	// preview (7,7) is image (12,12)
	assert.Equal(t, color.NRGBA{0, 255, 0, 255}, img.NRGBAAt(7, 7))
	assert.Equal(t, grey, img.NRGBAAt(0, 0))
	assert.Equal(t, red, workingPixel(t, s, path, 12, 12), "preview must not touch the working copy")

	var plain redeyePreviewResult
	callToolOK(t, s, "redeye_preview", map[string]interface{}{"session_id": id}, &plain)
	assert.Equal(t, color.NRGBA{0, 255, 0, 255}, decodePNG(t, plain.EncodedImage).NRGBAAt(7, 7))

	var info imaging.ImageInfo
	callToolOK(t, s, "image_load", map[string]interface{}{"path": path}, &info)
	assert.False(t, info.Modified)
}

func TestHandleToolsCall_PreviewReset(t *testing.T) {
	s := newTestServer(t)
	path := createEyesImageFile(t)
	id := openSession(t, s, path, 5, 5, 24, 24)

	var found redeyeIdentifyResult
	callToolOK(t, s, "redeye_identify_blobs", map[string]interface{}{"session_id": id}, &found)

	// preview (3,3) is image (8,8), alpha 1/24 for the 5x5 eye
	var first, second, reset redeyePreviewResult
	callToolOK(t, s, "redeye_preview_blob", map[string]interface{}{"session_id": id, "blob_id": 1, "reset": false}, &first)
	callToolOK(t, s, "redeye_preview_blob", map[string]interface{}{"session_id": id, "blob_id": 1, "reset": false}, &second)
	callToolOK(t, s, "redeye_preview_blob", map[string]interface{}{"session_id": id, "blob_id": 1}, &reset)

	once := decodePNG(t, first.EncodedImage).NRGBAAt(3, 3)
	twice := decodePNG(t, second.EncodedImage).NRGBAAt(3, 3)
	again := decodePNG(t, reset.EncodedImage).NRGBAAt(3, 3)

	assert.Equal(t, color.NRGBA{95, 106, 95, 255}, once)
	assert.Less(t, twice.R, once.R, "accumulated overlay moves further toward the colour")
	assert.Equal(t, once, again)
}

func TestHandleToolsCall_BlobOutOfRange(t *testing.T) {
	s := newTestServer(t)
	path := createEyesImageFile(t)
	id := openSession(t, s, path, 0, 0, 59, 39)

	var found redeyeIdentifyResult
	callToolOK(t, s, "redeye_identify_blobs", map[string]interface{}{"session_id": id}, &found)

	for _, tool := range []string{"redeye_correct_blob", "redeye_highlight_blob", "redeye_preview_blob"} {
		for _, blob := range []int{0, 3, 99} {
			resp := callTool(t, s, tool, map[string]interface{}{"session_id": id, "blob_id": blob})
			requireToolError(t, resp, -32001)
			assert.Contains(t, resp.Error.Data, "only 3 blobs in area")
		}
	}
}

func TestHandleToolsCall_InvalidColor(t *testing.T) {
	s := newTestServer(t)
	path := createEyesImageFile(t)
	id := openSession(t, s, path, 0, 0, 59, 39)

	var found redeyeIdentifyResult
	callToolOK(t, s, "redeye_identify_blobs", map[string]interface{}{"session_id": id}, &found)

	resp := callTool(t, s, "redeye_highlight_blob", map[string]interface{}{"session_id": id, "blob_id": 1, "color": "lime"})
	requireToolError(t, resp, -32000)
	assert.Equal(t, red, workingPixel(t, s, path, 12, 12))
}

func TestHandleToolsCall_OpenInvalidArea(t *testing.T) {
	s := newTestServer(t)
	path := createEyesImageFile(t)

	tests := []struct {
		name           string
		x1, y1, x2, y2 int
	}{
		{"past right edge", 0, 0, 60, 39},
		{"past bottom edge", 0, 0, 59, 40},
		{"negative", -1, 0, 10, 10},
		{"single column", 5, 0, 5, 10},
		{"inverted", 10, 10, 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, "redeye_open", map[string]interface{}{
				"path": path, "x1": tt.x1, "y1": tt.y1, "x2": tt.x2, "y2": tt.y2,
			})
			requireToolError(t, resp, -32000)
		})
	}
	assert.Empty(t, s.sessions)
}

func TestHandleToolsCall_Tap(t *testing.T) {
	s := newTestServer(t)
	img := image.NewNRGBA(image.Rect(0, 0, 100, 100))
	fill(img, img.Bounds(), grey)
	fill(img, image.Rect(50, 50, 54, 54), red)
	path := createTestImageFile(t, img)

	var tapped redeyeTapResult
	callToolOK(t, s, "redeye_tap", map[string]interface{}{"path": path, "x": 51, "y": 51}, &tapped)

	assert.True(t, tapped.Corrected)
	assert.Equal(t, 1, tapped.Candidates)
	require.NotNil(t, tapped.Blob)
	assert.Equal(t, 16, tapped.Blob.PixelCount)
	assert.Equal(t, 50, tapped.Blob.ImageBounds.MinX)
	assert.Equal(t, 53, tapped.Blob.ImageBounds.MaxX)
	assert.Equal(t, color.NRGBA{28, 28, 28, 255}, workingPixel(t, s, path, 50, 50))

	var miss redeyeTapResult
	callToolOK(t, s, "redeye_tap", map[string]interface{}{"path": path, "x": 5, "y": 5}, &miss)
	assert.False(t, miss.Corrected)
	assert.Nil(t, miss.Blob)

	requireToolError(t, callTool(t, s, "redeye_tap", map[string]interface{}{"path": path, "x": 100, "y": 5}), -32000)
}

func TestHandleToolsCall_AutoCorrect(t *testing.T) {
	s := newTestServer(t)
	path := createEyesImageFile(t)
	id := openSession(t, s, path, 0, 0, 59, 39)

	var fixed redeyeAutoCorrectResult
	callToolOK(t, s, "redeye_auto_correct", map[string]interface{}{
		"path": path, "x1": 59, "y1": 39, "x2": 0, "y2": 0, "max_eyes": 1,
	}, &fixed)

	require.Len(t, fixed.Corrected, 1)
	assert.Equal(t, 25, fixed.Corrected[0].PixelCount)
	assert.Equal(t, 10, fixed.Corrected[0].ImageBounds.MinX)
	assert.Equal(t, 1, fixed.SessionsClosed)
	assert.Equal(t, color.NRGBA{28, 28, 28, 255}, workingPixel(t, s, path, 12, 12))
	assert.Equal(t, red, workingPixel(t, s, path, 41, 11))

	requireToolError(t, callTool(t, s, "redeye_identify_blobs", map[string]interface{}{"session_id": id}), -32000)

	var rest redeyeAutoCorrectResult
	callToolOK(t, s, "redeye_auto_correct", map[string]interface{}{
		"path": path, "x1": 30, "y1": 0, "x2": 59, "y2": 39,
	}, &rest)
	require.Len(t, rest.Corrected, 1)
	assert.Equal(t, 40, rest.Corrected[0].ImageBounds.MinX)
	assert.Equal(t, 0, rest.SessionsClosed)

	requireToolError(t, callTool(t, s, "redeye_auto_correct", map[string]interface{}{
		"path": path, "x1": 0, "y1": 0, "x2": 59, "y2": 39, "max_eyes": 0,
	}), -32000)
}

func TestHandleToolsCall_SaveAndReload(t *testing.T) {
	s := newTestServer(t)
	path := createEyesImageFile(t)
	id := openSession(t, s, path, 0, 0, 59, 39)

	var fixed redeyeTapResult
	callToolOK(t, s, "redeye_tap", map[string]interface{}{"path": path, "x": 12, "y": 12}, &fixed)
	require.True(t, fixed.Corrected)

	out := filepath.Join(t.TempDir(), "fixed.png")
	var saved imageSaveResult
	callToolOK(t, s, "image_save", map[string]interface{}{"path": path, "output": out}, &saved)
	assert.Equal(t, out, saved.Output)
	assert.Equal(t, 60, saved.Width)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	written, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{28, 28, 28, 255}, color.NRGBAModel.Convert(written.At(12, 12)))

	var reloaded imageReloadResult
	callToolOK(t, s, "image_reload", map[string]interface{}{"path": path}, &reloaded)
	assert.Equal(t, 1, reloaded.SessionsClosed)
	require.NotNil(t, reloaded.Image)
	assert.False(t, reloaded.Image.Modified)
	assert.Equal(t, red, workingPixel(t, s, path, 12, 12))
	assert.NotContains(t, s.sessions, id)

	requireToolError(t, callTool(t, s, "image_save", map[string]interface{}{
		"path": path, "output": filepath.Join(t.TempDir(), "out.webp"),
	}), -32000)
}

func TestExecuteTool_AllTools(t *testing.T) {
	s := newTestServer(t)

	// Every defined tool must be routed; empty arguments give an argument
	// error rather than "unknown tool".
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			_, err := s.executeTool(tool.Name, json.RawMessage(`{}`))
			require.Error(t, err)
			assert.NotContains(t, err.Error(), "unknown tool")
		})
	}
}

func TestExecuteTool_UnknownTool(t *testing.T) {
	s := newTestServer(t)
	_, err := s.executeTool("unknown_tool", json.RawMessage(`{}`))
	if err == nil {
		t.Error("Expected error for unknown tool")
	}
}

func TestExecuteTool_InvalidJSON(t *testing.T) {
	s := newTestServer(t)
	_, err := s.executeTool("image_load", json.RawMessage(`{invalid}`))
	if err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestCallFields(t *testing.T) {
	fields := callFields(ToolCallParams{
		Name:      "redeye_correct_blob",
		Arguments: json.RawMessage(`{"session_id":"abc","blob_id":2}`),
	})
	assert.Equal(t, "redeye_correct_blob", fields["tool"])
	assert.Equal(t, "abc", fields["session"])
	assert.Equal(t, 2, fields["blob"])
	assert.NotContains(t, fields, "path")

	fields = callFields(ToolCallParams{Name: "image_load", Arguments: json.RawMessage(`not json`)})
	assert.Len(t, fields, 1)
}
