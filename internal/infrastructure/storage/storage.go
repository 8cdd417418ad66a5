package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned when a stored object cannot be located.
var ErrObjectNotFound = errors.New("storage: object not found")

// FileStore abstracts where recording audio lives. Save returns an opaque
// locator which callers persist and hand back to the other methods. Locators
// from one implementation are not portable to another.
type FileStore interface {
	// Save writes the content under a name derived from filename and returns
	// the locator of the stored object.
	Save(ctx context.Context, filename string, r io.Reader, size int64) (string, error)

	// OpenReadStream opens the stored object for reading. The caller closes
	// the returned stream.
	OpenReadStream(ctx context.Context, locator string) (io.ReadCloser, error)

	// URL returns an address a client can fetch the object from.
	URL(ctx context.Context, locator string) (string, error)

	// Delete removes the stored object. Deleting a missing object is not an
	// error.
	Delete(ctx context.Context, locator string) error
}
