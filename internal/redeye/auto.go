package redeye

import (
	"fmt"
	"image"
	"image/draw"
	"math"
	"sort"

	"github.com/disintegration/imaging"
)

// TapOptions controls Tap.
type TapOptions struct {
	// AreaDivisor sets the search radius around the tap to
	// max(width, height) / AreaDivisor.
	AreaDivisor int
	// Thresholds are the candidate thresholds for the search area.
	Thresholds Thresholds
	// MinPixels, MinRatio and MinDensity reject regions that are too small
	// or not Squareish enough to be an eye.
	MinPixels  int
	MinRatio   float64
	MinDensity float64
}

// DefaultTapOptions returns the settings used for tap-to-fix.
func DefaultTapOptions() TapOptions {
	return TapOptions{
		AreaDivisor: 10,
		Thresholds:  Thresholds{GreenSensitivity: 2, BlueSensitivity: DefaultBlueSensitivity, MinRedValue: DefaultMinRedValue},
		MinPixels:   4,
		MinRatio:    0.5,
		MinDensity:  0.3,
	}
}

// TapResult reports what Tap did.
type TapResult struct {
	// Area is the searched area, or the zero Area when the tap left no
	// usable area.
	Area Area `json:"area"`
	// Candidates is the number of regions that passed the filters.
	Candidates int `json:"candidates"`
	// Corrected is true when a region was desaturated.
	Corrected bool `json:"corrected"`
	// Region is the corrected region, in Area-local coordinates.
	Region *Region `json:"region,omitempty"`
	// Bounds is the corrected region's bounding box in image coordinates.
	Bounds *image.Rectangle `json:"bounds,omitempty"`
}

// Tap corrects the red eye nearest to the image coordinate (x, y), writing
// into img.
//
// The search area extends max(width, height)/AreaDivisor pixels around the
// tap, clipped to the image. Regions below MinPixels or not Squareish are
// ignored; of the rest, the one whose centre is nearest the tap is corrected,
// not the one with the highest id. When no region qualifies the image is left
// untouched and Corrected is false.
func Tap(img draw.Image, x, y int, opts TapOptions) (*TapResult, error) {
	if opts.AreaDivisor <= 0 {
		return nil, fmt.Errorf("invalid area divisor %d", opts.AreaDivisor)
	}
	bounds := img.Bounds()
	if !image.Pt(x, y).In(bounds) {
		return nil, fmt.Errorf("tap (%d,%d) outside image bounds", x, y)
	}

	n := max(bounds.Dx(), bounds.Dy()) / opts.AreaDivisor
	area, ok := ClipArea(bounds, x-n, y-n, x+n, y+n)
	if !ok {
		return &TapResult{}, nil
	}

	ctx := New(img, area.MinX, area.MinY, area.MaxX, area.MaxY)
	blobs := filterBlobs(ctx.IdentifyBlobs(opts.Thresholds), opts.MinPixels, opts.MinRatio, opts.MinDensity)

	result := &TapResult{Area: area, Candidates: len(blobs)}
	if len(blobs) == 0 {
		return result, nil
	}

	tap := image.Pt(x-area.MinX, y-area.MinY)
	sort.SliceStable(blobs, func(i, j int) bool {
		return distance(blobs[i].Centre(), tap) < distance(blobs[j].Centre(), tap)
	})

	blob := blobs[0]
	if err := ctx.CorrectBlob(blob.ID); err != nil {
		return nil, err
	}
	bb := ctx.ImageBounds(blob)
	result.Corrected = true
	result.Region = &blob
	result.Bounds = &bb
	return result, nil
}

// AutoOptions controls AutoCorrect.
type AutoOptions struct {
	Thresholds Thresholds
	MinPixels  int
	MinRatio   float64
	MinDensity float64
	// MaxEyes is the number of largest regions to correct.
	MaxEyes int
}

// DefaultAutoOptions returns the settings used for rectangle correction.
func DefaultAutoOptions() AutoOptions {
	return AutoOptions{
		Thresholds: DefaultThresholds(),
		MinPixels:  2,
		MinRatio:   0.5,
		MinDensity: 0.4,
		MaxEyes:    2,
	}
}

// AutoCorrect corrects the largest red eyes inside the rectangle spanned by
// (x1,y1) and (x2,y2) and returns a corrected copy of img. The corners may be
// given in any order and are clipped to the image; img itself is not modified.
//
// Regions below MinPixels or not Squareish are ignored; of the rest, the
// MaxEyes regions with the most pixels are desaturated. The corrected regions
// are returned largest first.
func AutoCorrect(img image.Image, x1, y1, x2, y2 int, opts AutoOptions) (*image.NRGBA, []Region, error) {
	if opts.MaxEyes <= 0 {
		return nil, nil, fmt.Errorf("invalid eye count %d", opts.MaxEyes)
	}

	out := imaging.Clone(img)
	area, ok := ClipArea(out.Bounds(), x1, y1, x2, y2)
	if !ok {
		return nil, nil, fmt.Errorf("rectangle (%d,%d)-(%d,%d) leaves no area inside the image", x1, y1, x2, y2)
	}

	ctx := New(out, area.MinX, area.MinY, area.MaxX, area.MaxY)
	blobs := filterBlobs(ctx.IdentifyBlobs(opts.Thresholds), opts.MinPixels, opts.MinRatio, opts.MinDensity)

	sort.SliceStable(blobs, func(i, j int) bool {
		return blobs[i].PixelCount > blobs[j].PixelCount
	})
	if len(blobs) > opts.MaxEyes {
		blobs = blobs[:opts.MaxEyes]
	}

	for _, blob := range blobs {
		if err := ctx.CorrectBlob(blob.ID); err != nil {
			return nil, nil, err
		}
	}
	return out, blobs, nil
}

func filterBlobs(blobs []Region, minPixels int, minRatio, minDensity float64) []Region {
	kept := blobs[:0]
	for _, r := range blobs {
		if r.PixelCount < minPixels || !r.Squareish(minRatio, minDensity) {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

func distance(a, b image.Point) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}
