package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStore keeps objects as files under a single directory. The locator is
// the generated file name, never a path supplied by the caller.
type LocalStore struct {
	dir     string
	baseURL string // served prefix for URL(), e.g. http://localhost:8080/uploads
}

// NewLocalStore creates the storage directory if needed
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("local storage dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Save writes the content to a timestamp-prefixed file and returns its name
func (s *LocalStore) Save(ctx context.Context, filename string, r io.Reader, size int64) (string, error) {
	name := objectName(filename)
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	return name, nil
}

// OpenReadStream opens the stored file for reading
func (s *LocalStore) OpenReadStream(ctx context.Context, locator string) (io.ReadCloser, error) {
	path, err := s.resolve(locator)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

// URL returns the address the file is served from
func (s *LocalStore) URL(ctx context.Context, locator string) (string, error) {
	if _, err := s.resolve(locator); err != nil {
		return "", err
	}
	return s.baseURL + "/" + locator, nil
}

// Delete removes the stored file. A missing file is not an error.
func (s *LocalStore) Delete(ctx context.Context, locator string) error {
	path, err := s.resolve(locator)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// resolve rejects locators that would escape the storage directory
func (s *LocalStore) resolve(locator string) (string, error) {
	if locator == "" || strings.Contains(locator, "/") || strings.Contains(locator, "\\") || strings.Contains(locator, "..") {
		return "", fmt.Errorf("invalid locator %q", locator)
	}
	return filepath.Join(s.dir, locator), nil
}

// objectName builds a unique storage name from the original filename. The
// unix-millis prefix keeps repeated uploads of the same file distinct.
func objectName(filename string) string {
	base := filepath.Base(filename)
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		base = "upload"
	}
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), base)
}
