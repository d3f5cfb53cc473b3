package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Local stores files on disk below a base directory.
type Local struct {
	base string
}

// NewLocal creates the base directory if needed and returns a Local store
// rooted at its absolute path.
func NewLocal(baseDir string) (*Local, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolving upload directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}
	return &Local{base: abs}, nil
}

// Base returns the absolute root directory.
func (l *Local) Base() string {
	return l.base
}

// Write stores the output of fn atomically by writing a temp file in the
// target directory and renaming it into place.
func (l *Local) Write(_ context.Context, key string, fn func(w io.Writer) error) error {
	path, err := l.resolve(key)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	writeErr := fn(tmp)
	closeErr := tmp.Close()
	if writeErr != nil || closeErr != nil {
		_ = os.Remove(tmpName)
		if writeErr != nil {
			return writeErr
		}
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("moving file into place: %w", err)
	}
	return nil
}

// Open opens the file stored under key.
func (l *Local) Open(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := l.resolve(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("opening file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, ErrNotExist
	}
	return f, nil
}

// Delete removes the file stored under key.
func (l *Local) Delete(_ context.Context, key string) error {
	path, err := l.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotExist
		}
		return fmt.Errorf("removing file: %w", err)
	}
	return nil
}

// DeletePrefix removes the directory holding every key under prefix.
func (l *Local) DeletePrefix(_ context.Context, prefix string) error {
	path, err := l.resolve(prefix)
	if err != nil {
		return err
	}
	if path == l.base {
		return ErrOutsideBase
	}

	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("removing directory: %w", err)
	}
	return nil
}

// resolve maps key to an absolute path and rejects anything that escapes
// the base directory.
func (l *Local) resolve(key string) (string, error) {
	if key == "" || filepath.IsAbs(key) {
		return "", ErrOutsideBase
	}

	path := filepath.Join(l.base, filepath.FromSlash(key))
	rel, err := filepath.Rel(l.base, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrOutsideBase
	}
	return path, nil
}
