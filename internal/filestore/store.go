// Package filestore stores attachment bytes under opaque keys such as
// "<task id>/<attachment id>_<filename>".
package filestore

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrNotExist is returned when no file is stored under a key.
	ErrNotExist = errors.New("file does not exist")
	// ErrOutsideBase is returned when a key resolves outside the store root.
	ErrOutsideBase = errors.New("path resolves outside the storage directory")
)

// Store persists attachment contents.
type Store interface {
	// Write stores the bytes fn writes under key. The writer is only valid
	// for the duration of fn and is always closed; if fn fails nothing is
	// stored.
	Write(ctx context.Context, key string, fn func(w io.Writer) error) error
	// Open returns the contents stored under key. The caller must close it.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the file stored under key.
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every file whose key starts with prefix + "/".
	DeletePrefix(ctx context.Context, prefix string) error
}
