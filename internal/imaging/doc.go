// Package imaging manages the working copies the MCP server corrects and
// provides the file-level image operations around them.
//
// # Working Copies
//
// ImageCache holds one decoded *image.NRGBA per path, with EXIF orientation
// applied. Red-eye corrections write straight into the cached copy and mark it
// modified; nothing reaches disk until Save is called. Reload discards the
// working copy and decodes the file again.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner,
// X increasing rightward and Y increasing downward. Cached images always have
// their origin at (0,0).
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. The images it returns are
// not; callers that mutate them must serialize access themselves.
//
// # Color Representation
//
// SampleColor reports a pixel as:
//   - Hex: "#RRGGBB" (alpha excluded, upper case)
//   - RGB: 8-bit components (0-255)
//   - Alpha: 8-bit non-premultiplied alpha
//   - HSL: Hue (0-360), Saturation (0-100), Lightness (0-100)
//
// ParseHexColor accepts "#RRGGBB" or "#RGB", with or without the '#'.
//
// # Output
//
// EncodePNG returns base64 PNG data for MCP responses. Save writes PNG or
// JPEG files, chosen by the output file extension.
package imaging
