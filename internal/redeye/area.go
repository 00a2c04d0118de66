package redeye

import (
	"fmt"
	"image"
)

// Area is the rectangle of the source image under analysis.
//
// All four bounds are inclusive, so an Area with MinX == 10 and MaxX == 19 is
// 10 pixels wide.
type Area struct {
	MinX int `json:"min_x"`
	MinY int `json:"min_y"`
	MaxX int `json:"max_x"`
	MaxY int `json:"max_y"`
}

// Width returns the number of columns in the area.
func (a Area) Width() int { return a.MaxX - a.MinX + 1 }

// Height returns the number of rows in the area.
func (a Area) Height() int { return a.MaxY - a.MinY + 1 }

// Rect returns the area as a half-open image.Rectangle.
func (a Area) Rect() image.Rectangle {
	return image.Rect(a.MinX, a.MinY, a.MaxX+1, a.MaxY+1)
}

// Contains reports whether the source coordinate (x, y) lies in the area.
func (a Area) Contains(x, y int) bool {
	return x >= a.MinX && x <= a.MaxX && y >= a.MinY && y <= a.MaxY
}

// Validate checks the area against the bounds of the image it will analyze.
//
// The area must span at least two columns and two rows and every pixel in it
// must be a pixel of the image.
func (a Area) Validate(bounds image.Rectangle) error {
	if a.MinX >= a.MaxX || a.MinY >= a.MaxY {
		return fmt.Errorf("degenerate area (%d,%d)-(%d,%d): min must be < max",
			a.MinX, a.MinY, a.MaxX, a.MaxY)
	}
	if a.MinX < bounds.Min.X || a.MinY < bounds.Min.Y || a.MaxX >= bounds.Max.X || a.MaxY >= bounds.Max.Y {
		return fmt.Errorf("area (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			a.MinX, a.MinY, a.MaxX, a.MaxY,
			bounds.Min.X, bounds.Min.Y, bounds.Max.X-1, bounds.Max.Y-1)
	}
	return nil
}

// ClipArea builds an Area from two corners in any order, clipping it to the
// image bounds. ok is false when nothing of a valid area is left.
func ClipArea(bounds image.Rectangle, x1, y1, x2, y2 int) (Area, bool) {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	a := Area{
		MinX: max(x1, bounds.Min.X),
		MinY: max(y1, bounds.Min.Y),
		MaxX: min(x2, bounds.Max.X-1),
		MaxY: min(y2, bounds.Max.Y-1),
	}
	return a, a.Validate(bounds) == nil
}
