package redeye

import (
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/math/f64"
)

// DefaultHighlight is the default overlay colour for HighlightBlob and
// PreviewBlob (0x00FF00).
var DefaultHighlight = color.NRGBA{R: 0x00, G: 0xFF, B: 0x00, A: 0xFF}

// featherRadius is the half-size of the alpha sampling window.
const featherRadius = 2

// featherSamples is the number of neighbours in the sampling window.
const featherSamples = (2*featherRadius+1)*(2*featherRadius+1) - 1

// Alpha returns how strongly the source pixel (x, y) belongs to blob id.
//
// Pixels labelled id return exactly 1. Any other pixel returns the number of
// pixels labelled id in the surrounding 5x5 window, divided by 24. Positions
// outside the area never count. Ids below 1 name no region and return 0.
func (c *Context) Alpha(x, y, id int) float64 {
	if id <= 0 {
		return 0
	}
	if c.Label(x, y) == id {
		return 1.0
	}

	n := 0
	for dy := -featherRadius; dy <= featherRadius; dy++ {
		for dx := -featherRadius; dx <= featherRadius; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if c.area.Contains(x+dx, y+dy) && c.Label(x+dx, y+dy) == id {
				n++
			}
		}
	}
	return float64(n) / featherSamples
}

// CorrectBlob desaturates blob id in the source image.
//
// The blob's bounding box, grown by one pixel and clipped to the image, is
// blended toward a weighted grey (5% red, 60% green, 30% blue) by each
// pixel's alpha:
//
//	out = alpha*(alpha*grey + (1-alpha)*in) + (1-alpha)*in
func (c *Context) CorrectBlob(id int) error {
	if err := c.checkID(id); err != nil {
		return err
	}

	r := c.ImageBounds(c.table.regions[id]).Inset(-1).Intersect(c.img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			a := c.Alpha(x, y, id)
			if a <= 0 {
				continue
			}
			red, green, blue := c.px.rgb(x, y)
			grey := (5*float64(red) + 60*float64(green) + 30*float64(blue)) / 100
			c.px.setRGB(x, y,
				desaturate(a, grey, red),
				desaturate(a, grey, green),
				desaturate(a, grey, blue))
		}
	}
	return nil
}

// HighlightBlob paints blob id into the source image with colour, feathered
// by alpha. The whole area grown by one pixel is visited.
func (c *Context) HighlightBlob(id int, colour color.Color) error {
	if err := c.checkID(id); err != nil {
		return err
	}

	hl := color.NRGBAModel.Convert(colour).(color.NRGBA)
	r := c.area.Rect().Inset(-1).Intersect(c.img.Bounds())
	c.overlay(c.px, r, image.Pt(0, 0), id, hl)
	return nil
}

// PreviewBlob paints blob id with colour into the preview copy of the area
// and returns the preview. The source image is not touched.
//
// With reset the preview is first restored from the source, discarding
// earlier overlays; without it the new overlay is blended on top of them.
func (c *Context) PreviewBlob(id int, colour color.Color, reset bool) (*image.NRGBA, error) {
	if err := c.checkID(id); err != nil {
		return nil, err
	}

	preview := c.ensurePreview(reset)
	hl := color.NRGBAModel.Convert(colour).(color.NRGBA)
	c.overlay(c.previewPx, preview.Bounds(), image.Pt(c.area.MinX, c.area.MinY), id, hl)
	return preview, nil
}

// overlay blends hl into the pixels of r on dst. offset translates dst
// coordinates into source coordinates for alpha sampling.
func (c *Context) overlay(dst raster, r image.Rectangle, offset image.Point, id int, hl color.NRGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			a := c.Alpha(x+offset.X, y+offset.Y, id)
			if a <= 0 {
				continue
			}
			red, green, blue := dst.rgb(x, y)
			dst.setRGB(x, y,
				blend(a, red, hl.R),
				blend(a, green, hl.G),
				blend(a, blue, hl.B))
		}
	}
}

func desaturate(alpha, grey float64, ch uint8) uint8 {
	in := float64(ch)
	return channel(alpha*(alpha*grey+(1-alpha)*in) + (1-alpha)*in)
}

func blend(alpha float64, ch, hl uint8) uint8 {
	return channel((1-alpha)*float64(ch) + alpha*float64(hl))
}

// channel clamps v into [0,255] and truncates it.
func channel(v float64) uint8 {
	return uint8(f64.Clamp(v, 0, 255))
}
