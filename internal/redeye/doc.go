// Package redeye locates clusters of red-eye coloured pixels inside a
// rectangular area of an image and applies feathered corrections to them.
//
// A Context is built over an Area of a source image. IdentifyBlobs thresholds
// every Area pixel into a candidate mask, labels 8-connected candidates into
// regions and returns the regions that are not single-pixel noise. Each region
// keeps its id until the next detection pass, and the correction operations
// (CorrectBlob, HighlightBlob, PreviewBlob) address regions by that id.
//
// # Coordinate System
//
// Area bounds and the coordinates passed to Alpha and Label are in source
// image space and inclusive on both ends. Region bounding boxes are Area-local:
// (0,0) is the Area's top-left pixel.
//
// # Labeling
//
// Labeling is a single raster scan that looks at the west, north-east, north
// and north-west neighbours of each candidate. When two labels meet, the
// larger id is pointed at the smaller one through its MergeTarget. Labels are
// resolved through at most one merge hop, both during the scan and in the
// final rewrite of the label array, so chains of three or more merged regions
// can leave pixels pointing at an intermediate id. Merged regions keep their
// own bounding box and pixel count.
//
// # Feathering
//
// Corrections blend each pixel by an alpha weight: 1.0 inside the blob, and
// otherwise the fraction of the 24 surrounding pixels of a 5x5 window that
// belong to the blob. Edges therefore fade out over two pixels.
//
// # Thread Safety
//
// A Context is not safe for concurrent use. CorrectBlob and HighlightBlob
// write into the source image; PreviewBlob only writes into the Context's own
// preview copy.
package redeye
