package imaging

import (
	"fmt"
	"image"
	"os"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

// ImageCache holds decoded working copies of image files, keyed by path.
//
// Each entry is an *image.NRGBA that red-eye corrections write into; the file
// on disk is only touched again by Reload. Entries remember whether they were
// modified since they were read so callers can warn before discarding edits.
//
// ImageCache is safe for concurrent use by multiple goroutines. The images it
// returns are not: callers that mutate a working copy serialize access to it.
//
// # Memory Management
//
// Cached images remain in memory until explicitly removed via Evict() or Clear().
//
// # Example Usage
//
//	cache := imaging.NewImageCache()
//	img, err := cache.Load("/path/to/photo.jpg")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// correct img in place, then
//	cache.MarkModified("/path/to/photo.jpg")
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]*cacheEntry
}

type cacheEntry struct {
	img      *image.NRGBA
	modified bool
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]*cacheEntry),
	}
}

// Load returns the working copy for path, decoding the file on first use.
//
// Files are decoded with EXIF auto-orientation, so a portrait JPEG is returned
// upright. Supported formats are PNG, JPEG, GIF, BMP and TIFF.
//
// The image is cached using the exact path string provided. Different paths to the
// same file (e.g., relative vs absolute) will result in separate cache entries.
func (c *ImageCache) Load(path string) (*image.NRGBA, error) {
	c.mu.RLock()
	if e, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return e.img, nil
	}
	c.mu.RUnlock()

	img, err := decodeFile(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// another caller may have loaded it meanwhile
	if e, ok := c.images[path]; ok {
		return e.img, nil
	}
	c.images[path] = &cacheEntry{img: img}
	return img, nil
}

// Reload decodes path again, replacing the working copy and discarding any
// corrections.
func (c *ImageCache) Reload(path string) (*image.NRGBA, error) {
	img, err := decodeFile(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.images[path] = &cacheEntry{img: img}
	c.mu.Unlock()
	return img, nil
}

// Replace stores img as the modified working copy for path.
func (c *ImageCache) Replace(path string, img *image.NRGBA) {
	c.mu.Lock()
	c.images[path] = &cacheEntry{img: img, modified: true}
	c.mu.Unlock()
}

// MarkModified flags the working copy for path as changed. Unknown paths are
// ignored.
func (c *ImageCache) MarkModified(path string) {
	c.mu.Lock()
	if e, ok := c.images[path]; ok {
		e.modified = true
	}
	c.mu.Unlock()
}

// Modified reports whether the working copy for path has been changed since
// it was read.
func (c *ImageCache) Modified(path string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.images[path]
	return ok && e.modified
}

// Clear removes all images from the cache, freeing the associated memory.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]*cacheEntry)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path.
//
// If the path is not in the cache, this method does nothing.
// After eviction, the next Load() call for this path will read from disk.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

func decodeFile(path string) (*image.NRGBA, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}
	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Rect.Min == (image.Point{}) {
		return nrgba, nil
	}
	return imaging.Clone(img), nil
}

// ImageInfo contains metadata about a loaded image file.
type ImageInfo struct {
	// Width is the image width in pixels, after auto-orientation.
	Width int `json:"width"`

	// Height is the image height in pixels, after auto-orientation.
	Height int `json:"height"`

	// Format is "png", "jpeg", "gif", "bmp", "tiff" or "unknown".
	// Detection is based on file extension, not file contents.
	Format string `json:"format"`

	// HasAlpha indicates whether any pixel of the image is not fully opaque.
	HasAlpha bool `json:"has_alpha"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`

	// Modified is true when the working copy holds unsaved corrections.
	Modified bool `json:"modified"`
}

// LoadImageInfo loads an image into the cache (if not already cached) and
// returns metadata about it.
//
// Parameters:
//   - cache: The image cache to use for loading. Must not be nil.
//   - path: Path to the image file.
//
// Returns:
//   - *ImageInfo: Metadata about the image.
//   - error: Non-nil if the image cannot be loaded or the file cannot be stat'd.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format := "unknown"
	if f, err := imaging.FormatFromFilename(path); err == nil {
		format = strings.ToLower(f.String())
	}

	bounds := img.Bounds()
	return &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        format,
		HasAlpha:      !img.Opaque(),
		FileSizeBytes: stat.Size(),
		Modified:      cache.Modified(path),
	}, nil
}
