// Copyright (c) 2026 The authnd Authors
// SPDX-License-Identifier: MIT

package storage

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const (
	dirPerms  = 0o700
	filePerms = 0o600
)

// File is a file-based Backend. Each key maps to one file in a flat
// directory; key names are path-escaped so arbitrary key bytes cannot
// escape the root directory.
type File struct {
	mu      sync.RWMutex
	rootDir string
	closed  bool
}

// NewFile creates a file-backed store rooted at rootDir, creating the
// directory if needed.
func NewFile(rootDir string) (*File, error) {
	if rootDir == "" {
		return nil, fmt.Errorf("file storage: root directory is required")
	}
	if err := os.MkdirAll(rootDir, dirPerms); err != nil {
		return nil, fmt.Errorf("file storage: create root directory: %w", err)
	}
	return &File{rootDir: rootDir}, nil
}

func (f *File) keyToPath(key string) string {
	return filepath.Join(f.rootDir, url.PathEscape(key))
}

// Get retrieves the value for the given key.
func (f *File) Get(key string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, ErrClosed
	}
	data, err := os.ReadFile(f.keyToPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("file storage: read key %q: %w", key, err)
	}
	return data, nil
}

// Put stores the value for the given key.
func (f *File) Put(key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}
	if err := os.WriteFile(f.keyToPath(key), value, filePerms); err != nil {
		return fmt.Errorf("file storage: write key %q: %w", key, err)
	}
	return nil
}

// Delete removes the key and its value.
func (f *File) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}
	path := f.keyToPath(key)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("file storage: stat key %q: %w", key, err)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("file storage: delete key %q: %w", key, err)
	}
	return nil
}

// List returns all keys with the given prefix, sorted.
func (f *File) List(prefix string) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, ErrClosed
	}
	entries, err := os.ReadDir(f.rootDir)
	if err != nil {
		return nil, fmt.Errorf("file storage: list: %w", err)
	}
	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		key, err := url.PathUnescape(entry.Name())
		if err != nil {
			continue
		}
		if prefix == "" || strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Exists reports whether a key is present.
func (f *File) Exists(key string) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return false, ErrClosed
	}
	if _, err := os.Stat(f.keyToPath(key)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("file storage: stat key %q: %w", key, err)
	}
	return true, nil
}

// Close marks the backend closed. Files on disk are left intact.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
