/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package storage holds generated artifacts in a filesystem directory or an
// S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("object not found")

// ObjectStore abstracts object storage operations.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	// URL returns a directly fetchable URL, or "" when objects must be
	// streamed through the API.
	URL(key string) string
}

// CleanKey normalizes key to a relative slash path and rejects keys that
// escape the store root.
func CleanKey(key string) (string, error) {
	k := strings.ReplaceAll(strings.TrimSpace(key), "\\", "/")
	for _, part := range strings.Split(k, "/") {
		if part == ".." {
			return "", fmt.Errorf("invalid object key %q", key)
		}
	}
	k = strings.TrimLeft(path.Clean("/"+k), "/")
	if k == "" {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return k, nil
}
