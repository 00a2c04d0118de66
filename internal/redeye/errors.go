package redeye

import (
	"errors"
	"fmt"
)

// ErrBlobOutOfRange is matched by every BlobRangeError.
var ErrBlobOutOfRange = errors.New("redeye: blob id out of range")

// BlobRangeError is returned when a blob id is not in the region table of the
// last detection pass. Callers should run IdentifyBlobs again rather than
// retry with the same id.
type BlobRangeError struct {
	// Len is the region table length; valid ids are 1..Len-1.
	Len int
	// ID is the rejected id.
	ID int
}

func (e *BlobRangeError) Error() string {
	return fmt.Sprintf("only %d blobs in area - %d is invalid", e.Len, e.ID)
}

// Is reports whether target is ErrBlobOutOfRange.
func (e *BlobRangeError) Is(target error) bool {
	return target == ErrBlobOutOfRange
}
