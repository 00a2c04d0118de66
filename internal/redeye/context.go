package redeye

import (
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
)

// Context holds the working state for one analyzed area of an image: the
// candidate mask, the label array, the region table and an optional preview
// copy of the area.
type Context struct {
	img    draw.Image
	px     raster
	area   Area
	mask   []int
	labels []int
	table  regionTable

	preview   *image.NRGBA
	previewPx raster
}

// New creates a Context over the inclusive rectangle (minX,minY)-(maxX,maxY)
// of img.
//
// The rectangle must be at least 2x2 and lie inside img. A rectangle that
// violates this is a programming error and New panics; callers working from
// untrusted input should check Area.Validate first.
//
// The Context keeps a reference to img and writes into it from CorrectBlob
// and HighlightBlob.
func New(img draw.Image, minX, minY, maxX, maxY int) *Context {
	area := Area{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
	if err := area.Validate(img.Bounds()); err != nil {
		panic("redeye: " + err.Error())
	}

	n := area.Width() * area.Height()
	return &Context{
		img:    img,
		px:     newRaster(img),
		area:   area,
		mask:   make([]int, n),
		labels: make([]int, n),
		table:  newRegionTable(),
	}
}

// Area returns the analyzed rectangle.
func (c *Context) Area() Area { return c.area }

// Image returns the source image. Corrections made by CorrectBlob and
// HighlightBlob are visible through it.
func (c *Context) Image() draw.Image { return c.img }

// Len returns the length of the region table: one more than the highest
// region id of the last detection pass. Ids in [1, Len()) are accepted by the
// correction operations.
func (c *Context) Len() int { return c.table.length() }

// Region returns the table entry for id, including noise regions that
// IdentifyBlobs leaves out.
func (c *Context) Region(id int) (Region, error) {
	if err := c.checkID(id); err != nil {
		return Region{}, err
	}
	return c.table.regions[id], nil
}

// Regions returns every region of the last detection pass in id order,
// without noise filtering.
func (c *Context) Regions() []Region {
	out := make([]Region, 0, c.table.length()-1)
	for id := 1; id < c.table.length(); id++ {
		out = append(out, c.table.regions[id])
	}
	return out
}

// Label returns the resolved blob id at the source coordinate (x, y), or 0
// for background and for coordinates outside the area.
func (c *Context) Label(x, y int) int {
	if !c.area.Contains(x, y) {
		return 0
	}
	return c.labels[(x-c.area.MinX)+(y-c.area.MinY)*c.area.Width()]
}

// ImageBounds translates a region's bounding box into source coordinates.
func (c *Context) ImageBounds(r Region) image.Rectangle {
	return r.Bounds().Add(image.Pt(c.area.MinX, c.area.MinY))
}

// Preview returns the preview copy of the area, creating it from the source
// image on first use. An existing preview is returned as is.
func (c *Context) Preview() *image.NRGBA {
	return c.ensurePreview(false)
}

// ensurePreview creates the preview on first use; on later calls it copies
// the source area back over it when reset is true.
func (c *Context) ensurePreview(reset bool) *image.NRGBA {
	if c.preview == nil {
		c.preview = imaging.Crop(c.img, c.area.Rect())
		c.previewPx = newRaster(c.preview)
	} else if reset {
		draw.Draw(c.preview, c.preview.Bounds(), c.img, c.area.Rect().Min, draw.Src)
	}
	return c.preview
}

func (c *Context) checkID(id int) error {
	if id < 1 || id >= c.table.length() {
		return &BlobRangeError{Len: c.table.length(), ID: id}
	}
	return nil
}
