// Package loader reads documents from disk for analysis.
package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"macroscan/internal/document"
	"macroscan/internal/logger"
)

// DefaultMaxFileSize is the largest document read unless configured otherwise.
const DefaultMaxFileSize int64 = 100 << 20

var ErrFileTooLarge = errors.New("file exceeds maximum size")

// Loader reads documents for analysis. It keeps no document after Load
// returns: the bytes live only as long as the caller holds the document.
type Loader struct {
	maxSize int64
	group   Group
}

// New returns a Loader that refuses files larger than maxSize bytes.
// A non-positive maxSize selects DefaultMaxFileSize.
func New(maxSize int64) *Loader {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	return &Loader{maxSize: maxSize}
}

// Load reads path. Concurrent loads of the same unchanged file share one read;
// a later load always reads the file again.
func (l *Loader) Load(ctx context.Context, path string) (*document.Document, error) {
	if ctx == nil {
		return nil, fmt.Errorf("Load: nil context")
	}
	if l == nil || l.maxSize <= 0 {
		return nil, fmt.Errorf("Load: nil Loader (use New)")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", path)
	}
	if info.Size() > l.maxSize {
		return nil, fmt.Errorf("%s is %d bytes (limit %d): %w", path, info.Size(), l.maxSize, ErrFileTooLarge)
	}

	key := readKey(path, info)
	doc, err, shared := l.group.Do(key, func() (*document.Document, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if int64(len(data)) > l.maxSize {
			return nil, fmt.Errorf("%s grew to %d bytes (limit %d): %w", path, len(data), l.maxSize, ErrFileTooLarge)
		}
		return document.New(path, data), nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.Debug("shared read for %s", path)
	}
	return doc, nil
}

// readKey identifies one version of a file, so a load never joins a read
// of an older version still in flight.
func readKey(path string, info os.FileInfo) string {
	return fmt.Sprintf("%s|%d|%d", normalizePath(path), info.Size(), info.ModTime().UnixNano())
}

func normalizePath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
