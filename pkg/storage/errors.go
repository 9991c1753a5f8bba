// Copyright (c) 2026 The authnd Authors
// SPDX-License-Identifier: MIT

package storage

import "errors"

var (
	// ErrNotFound is returned when a key is not present in the backend.
	ErrNotFound = errors.New("storage: not found")

	// ErrClosed is returned when operating on a closed backend.
	ErrClosed = errors.New("storage: closed")
)
