package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// File persists each key as its own JSON-bearing file inside a base
// directory. Writes go through a temp file and rename so a crash cannot
// leave a half-written value behind.
type File struct {
	mu  sync.Mutex
	dir string
}

var _ Storage = (*File)(nil)

// NewFile creates a file-backed store rooted at dir, creating the
// directory when missing.
func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: empty directory", ErrStorageUnavailable)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Join(ErrStorageUnavailable, err)
	}
	return &File{dir: dir}, nil
}

// GetString reads the value stored for key. An absent file means the key
// was never set.
func (f *File) GetString(_ context.Context, key string) (string, bool, error) {
	path, err := f.path(key)
	if err != nil {
		return "", false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, errors.Join(ErrReadFailed, err)
	}
	return string(data), true, nil
}

// SetString writes value for key atomically.
func (f *File) SetString(_ context.Context, key, value string) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(value), 0o600); err != nil {
		return errors.Join(ErrWriteFailed, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Join(ErrWriteFailed, err)
	}
	return nil
}

// Remove deletes the file backing key. Removing an absent key is a no-op.
func (f *File) Remove(_ context.Context, key string) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Join(ErrWriteFailed, err)
	}
	return nil
}

// path maps a key onto a file name, rejecting keys that could escape the
// base directory.
func (f *File) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(f.dir, key+".json"), nil
}
