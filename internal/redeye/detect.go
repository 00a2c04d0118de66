package redeye

const (
	// DefaultGreenSensitivity is the default factor red must exceed green by.
	DefaultGreenSensitivity = 2.0

	// DefaultBlueSensitivity is the default factor red must exceed blue by.
	DefaultBlueSensitivity = 0.0

	// DefaultMinRedValue is the default red level a candidate must exceed.
	DefaultMinRedValue = 20
)

// Thresholds controls which pixels count as red-eye candidates. A pixel is a
// candidate when
//
//	red > GreenSensitivity*green && red > BlueSensitivity*blue && red > MinRedValue
//
// Values are used as given; out-of-range settings only change how many
// candidates are found.
type Thresholds struct {
	GreenSensitivity float64 `json:"green_sensitivity"`
	BlueSensitivity  float64 `json:"blue_sensitivity"`
	MinRedValue      int     `json:"min_red_value"`
}

// DefaultThresholds returns the standard detection thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		GreenSensitivity: DefaultGreenSensitivity,
		BlueSensitivity:  DefaultBlueSensitivity,
		MinRedValue:      DefaultMinRedValue,
	}
}

// Candidate reports whether a pixel with the given channels is a red-eye
// candidate.
func (t Thresholds) Candidate(r, g, b uint8) bool {
	rf := float64(r)
	return rf > t.GreenSensitivity*float64(g) && rf > t.BlueSensitivity*float64(b) && int(r) > t.MinRedValue
}

// neighbour offsets already visited in a row-major scan, in the order they
// are inspected: west, north-east, north, north-west.
var scanNeighbours = [4][2]int{{-1, 0}, {1, -1}, {0, -1}, {-1, -1}}

// IdentifyBlobs runs a detection pass over the area and returns the regions
// with at least two pixels, in id order.
//
// Each pass rebuilds the mask, the label array and the region table, so ids
// from an earlier pass must not be reused afterwards. Regions dropped as
// noise are still in the table and can be addressed by id.
func (c *Context) IdentifyBlobs(t Thresholds) []Region {
	c.buildMask(t)
	c.labelBlobs()

	blobs := make([]Region, 0)
	for id := 1; id < c.table.length(); id++ {
		r := c.table.regions[id]
		if r.PixelCount < minBlobPixels {
			continue
		}
		blobs = append(blobs, r)
	}
	return blobs
}

// buildMask stores the red level of every candidate pixel, 0 elsewhere.
func (c *Context) buildMask(t Thresholds) {
	w := c.area.Width()
	for y := c.area.MinY; y <= c.area.MaxY; y++ {
		row := (y - c.area.MinY) * w
		for x := c.area.MinX; x <= c.area.MaxX; x++ {
			r, g, b := c.px.rgb(x, y)
			if t.Candidate(r, g, b) {
				c.mask[row+x-c.area.MinX] = int(r)
			} else {
				c.mask[row+x-c.area.MinX] = 0
			}
		}
	}
}

// labelBlobs labels the mask into the region table, then rewrites the label
// array so every entry holds its one-hop resolved id.
func (c *Context) labelBlobs() {
	w, h := c.area.Width(), c.area.Height()
	c.table.reset()
	clear(c.labels)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if c.mask[x+y*w] <= 0 {
				continue
			}

			id := 0
			for _, n := range scanNeighbours {
				group := c.groupAt(x+n[0], y+n[1])
				if group == 0 {
					continue
				}
				if id != 0 && id != group {
					c.table.merge(id, group)
				}
				id = group
			}

			if id == 0 {
				id = c.table.allocate(x, y)
			} else {
				c.table.extend(id, x, y)
			}
			c.labels[x+y*w] = id
		}
	}

	for i, id := range c.labels {
		c.labels[i] = c.table.resolve(id)
	}
}

// groupAt returns the one-hop resolved label at the Area-local (x, y), or 0
// outside the area.
func (c *Context) groupAt(x, y int) int {
	w, h := c.area.Width(), c.area.Height()
	if x < 0 || y < 0 || x >= w || y >= h {
		return 0
	}
	return c.table.resolve(c.labels[x+y*w])
}
