package filestore

import (
	"bytes"
	"context"
	"io"
	"path"
	"strings"
	"sync"
)

// Memory is an in-process Store for tests.
type Memory struct {
	mu    sync.Mutex
	files map[string][]byte
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{files: map[string][]byte{}}
}

// Write stores the output of fn under key.
func (m *Memory) Write(_ context.Context, key string, fn func(w io.Writer) error) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[key] = buf.Bytes()
	return nil
}

// Open returns a reader over the bytes stored under key.
func (m *Memory) Open(_ context.Context, key string) (io.ReadCloser, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.files[key]
	if !ok {
		return nil, ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

// Delete removes key.
func (m *Memory) Delete(_ context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[key]; !ok {
		return ErrNotExist
	}
	delete(m.files, key)
	return nil
}

// DeletePrefix removes every key under prefix.
func (m *Memory) DeletePrefix(_ context.Context, prefix string) error {
	prefix, err := cleanKey(prefix)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.files {
		if strings.HasPrefix(k, prefix+"/") {
			delete(m.files, k)
		}
	}
	return nil
}

// Keys returns the stored keys.
func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.files))
	for k := range m.files {
		keys = append(keys, k)
	}
	return keys
}

func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") {
		return "", ErrOutsideBase
	}
	cleaned := path.Clean(key)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrOutsideBase
	}
	return cleaned, nil
}
