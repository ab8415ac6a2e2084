// Package storage implements the file storage collaborator on top of the
// local filesystem, with atomic full-content replacement.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// OSStorage reads and writes files on the local filesystem. Writes are
// atomic: content goes to a temp file in the target's directory which is then
// renamed over the target, so the old content either survives intact or is
// replaced wholesale.
type OSStorage struct{}

// NewOSStorage returns a filesystem-backed storage collaborator.
func NewOSStorage() *OSStorage {
	return &OSStorage{}
}

// Exists reports whether path exists and is a regular file.
func (s *OSStorage) Exists(ctx context.Context, path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// ReadText returns the full content of path.
func (s *OSStorage) ReadText(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return string(data), nil
}

// WriteText atomically replaces the content of path.
func (s *OSStorage) WriteText(ctx context.Context, path, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tempFile, err := os.CreateTemp(filepath.Dir(path), ".apply-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()
	defer os.Remove(tempPath) // Clean up temp file in case of error

	if _, err := tempFile.WriteString(content); err != nil {
		tempFile.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	// Carry over the original file's permissions when it exists.
	if info, err := os.Stat(path); err == nil {
		_ = os.Chmod(tempPath, info.Mode())
	} else {
		_ = os.Chmod(tempPath, 0644)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("atomic rename failed: %w", err)
	}
	return nil
}

// CreateEmpty creates an empty file at path, including parent directories.
// Fails if the file already exists.
func (s *OSStorage) CreateEmpty(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	return f.Close()
}
