/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// FilesystemStore implements ObjectStore using a local directory.
type FilesystemStore struct {
	rootDir string
	logger  zerolog.Logger
}

// NewFilesystemStore creates the root directory if needed.
func NewFilesystemStore(rootDir string, logger zerolog.Logger) (*FilesystemStore, error) {
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact root: %w", err)
	}
	return &FilesystemStore{
		rootDir: rootDir,
		logger:  logger.With().Str("component", "storage-fs").Logger(),
	}, nil
}

func (s *FilesystemStore) path(key string) (string, error) {
	k, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.rootDir, filepath.FromSlash(k)), nil
}

// Put writes data atomically via a temp file and rename.
func (s *FilesystemStore) Put(_ context.Context, key string, data []byte, _ string) error {
	fullPath, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename file: %w", err)
	}

	s.logger.Debug().Str("key", key).Int("bytes", len(data)).Msg("object stored")
	return nil
}

// Get reads an object.
func (s *FilesystemStore) Get(_ context.Context, key string) ([]byte, error) {
	fullPath, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fullPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

// Delete removes an object. Missing objects are not an error.
func (s *FilesystemStore) Delete(_ context.Context, key string) error {
	fullPath, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove file: %w", err)
	}
	s.logger.Debug().Str("key", key).Msg("object deleted")
	return nil
}

// URL returns "": filesystem objects are streamed by the API.
func (s *FilesystemStore) URL(string) string {
	return ""
}

// CheckAccess verifies the storage directory exists and is accessible.
func (s *FilesystemStore) CheckAccess(context.Context) error {
	info, err := os.Stat(s.rootDir)
	if err != nil {
		return fmt.Errorf("cannot access artifact root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("artifact root is not a directory: %s", s.rootDir)
	}
	return nil
}
