package redeye

import (
	"image"
	"math"
)

const (
	// DefaultMinRatio is the default minimum aspect ratio for Squareish.
	DefaultMinRatio = 0.5

	// DefaultMinDensity is the default density Squareish must exceed.
	DefaultMinDensity = 0.5

	// minBlobPixels is the smallest region IdentifyBlobs reports. Smaller
	// regions are treated as sensor noise.
	minBlobPixels = 2

	// defaultTableSize is the initial capacity of the region table.
	defaultTableSize = 20
)

// Region describes one labelled blob.
//
// Bounding box coordinates are Area-local and inclusive. A region whose
// MergeTarget is non-zero was found to touch the region with that id during
// labeling; its pixels are relabelled to the target, but its own bounding box
// and pixel count are left as they were when the merge happened.
type Region struct {
	ID          int `json:"id"`
	MinX        int `json:"min_x"`
	MinY        int `json:"min_y"`
	MaxX        int `json:"max_x"`
	MaxY        int `json:"max_y"`
	Width       int `json:"width"`
	Height      int `json:"height"`
	PixelCount  int `json:"pixel_count"`
	MergeTarget int `json:"merge_target"`
}

// Ratio returns min(width, height) / max(width, height), in (0, 1].
func (r Region) Ratio() float64 {
	lo := math.Min(float64(r.Width), float64(r.Height))
	hi := math.Max(float64(r.Width), float64(r.Height))
	return lo / hi
}

// Density returns the share of the bounding box covered by the region's
// pixels, in (0, 1].
func (r Region) Density() float64 {
	return float64(r.PixelCount) / float64(r.Width*r.Height)
}

// Squareish reports whether the region is roughly square and solid:
// Ratio() >= minRatio and Density() > minDensity.
func (r Region) Squareish(minRatio, minDensity float64) bool {
	return r.Ratio() >= minRatio && r.Density() > minDensity
}

// Centre returns the Area-local midpoint of the bounding box.
func (r Region) Centre() image.Point {
	return image.Pt((r.MinX+r.MaxX)>>1, (r.MinY+r.MaxY)>>1)
}

// Bounds returns the Area-local bounding box as a half-open rectangle.
func (r Region) Bounds() image.Rectangle {
	return image.Rect(r.MinX, r.MinY, r.MaxX+1, r.MaxY+1)
}

// regionTable is an arena of regions indexed by id. Slot 0 is never used.
type regionTable struct {
	regions []Region
	next    int
}

func newRegionTable() regionTable {
	return regionTable{regions: make([]Region, defaultTableSize), next: 1}
}

// reset drops every region but keeps the allocated storage.
func (t *regionTable) reset() {
	clear(t.regions)
	t.next = 1
}

// length is the next id to be allocated; valid ids are 1..length-1.
func (t *regionTable) length() int { return t.next }

// allocate starts a new single-pixel region at (x, y) and returns its id.
func (t *regionTable) allocate(x, y int) int {
	id := t.next
	t.regions[id] = Region{
		ID:         id,
		MinX:       x,
		MaxX:       x,
		MinY:       y,
		MaxY:       y,
		Width:      1,
		Height:     1,
		PixelCount: 1,
	}
	t.next++
	if t.next >= len(t.regions) {
		grown := make([]Region, 2*len(t.regions))
		copy(grown, t.regions)
		t.regions = grown
	}
	return id
}

// extend adds the pixel (x, y) to region id.
func (t *regionTable) extend(id, x, y int) {
	r := &t.regions[id]
	r.MinX = min(x, r.MinX)
	r.MaxX = max(x, r.MaxX)
	r.MinY = min(y, r.MinY)
	r.MaxY = max(y, r.MaxY)
	r.Width = r.MaxX - r.MinX + 1
	r.Height = r.MaxY - r.MinY + 1
	r.PixelCount++
}

// resolve follows at most one merge hop.
func (t *regionTable) resolve(id int) int {
	if id <= 0 {
		return 0
	}
	if target := t.regions[id].MergeTarget; target != 0 {
		return target
	}
	return id
}

// merge points the larger of a and b at the smaller one. If the smaller one
// has already been merged, its target is used instead.
func (t *regionTable) merge(a, b int) {
	target, from := min(a, b), max(a, b)
	if mt := t.regions[target].MergeTarget; mt > 0 {
		target = mt
	}
	t.regions[from].MergeTarget = target
}
