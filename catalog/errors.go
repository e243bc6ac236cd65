package catalog

import "errors"

// Sentinel errors for the catalog store. Callers match with errors.Is; all
// errors produced by this package wrap one of these.
var (
	// ErrDecode means an uploaded blob could not be decoded as an image.
	// Local to one image: batch operations skip the image and continue.
	ErrDecode = errors.New("catalog: undecodable image")

	// ErrInvalidInput means a request carried unusable input: an empty
	// upload, missing required fields or a malformed reorder.
	ErrInvalidInput = errors.New("catalog: invalid input")

	// ErrQuotaExceeded means a projected write would exceed the storage
	// capacity. The mutation is rejected or degraded, never partially applied.
	ErrQuotaExceeded = errors.New("catalog: storage quota exceeded")

	// ErrStorageExhausted means even a degraded (image-free) write failed.
	// Fatal to the single operation only; the in-memory catalog stays usable.
	ErrStorageExhausted = errors.New("catalog: storage exhausted")

	// ErrNotFound means the referenced item id does not exist.
	ErrNotFound = errors.New("catalog: item not found")
)
