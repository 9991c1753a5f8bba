// Copyright (c) 2026 The authnd Authors
// SPDX-License-Identifier: MIT

// Package storage provides the narrow key-value contract the relying-party
// core requires from its persistence collaborator, together with in-memory
// and file-based reference implementations.
package storage

// Backend is the key-value contract consumed by the credential and user
// stores. All implementations must be safe for concurrent use; each
// operation is atomic at single-key granularity.
type Backend interface {
	// Get retrieves the value for the given key.
	// Returns ErrNotFound if the key does not exist.
	Get(key string) ([]byte, error)

	// Put stores the value for the given key, overwriting any prior value.
	Put(key string, value []byte) error

	// Delete removes the key and its value.
	// Returns ErrNotFound if the key does not exist.
	Delete(key string) error

	// List returns all keys with the given prefix.
	// An empty prefix returns every key.
	List(prefix string) ([]string, error)

	// Exists reports whether a key is present.
	Exists(key string) (bool, error)

	// Close releases any resources held by the backend.
	Close() error
}
