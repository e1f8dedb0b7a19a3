// Package storage persists uploaded binary objects (avatars, gossip images).
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ObjectStore stores opaque binary objects and resolves them to public URLs.
type ObjectStore interface {
	Store(ctx context.Context, data []byte, contentType string) (string, error)
	URLFor(ref string) string
	Remove(ctx context.Context, ref string) error
}

// DiskStore keeps objects as files under a base directory and serves them
// from a public URL prefix.
type DiskStore struct {
	baseDir string
	baseURL string
}

// NewDiskStore creates the base directory if needed and returns the store.
func NewDiskStore(baseDir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &DiskStore{baseDir: baseDir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/webp":
		return ".webp"
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	}
	return ".bin"
}

// Store writes the object and returns its reference (the stored file name).
func (s *DiskStore) Store(_ context.Context, data []byte, contentType string) (string, error) {
	ref := uuid.New().String() + extensionFor(contentType)
	path := filepath.Join(s.baseDir, ref)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	return ref, nil
}

// URLFor maps a reference to its public URL. An empty reference maps to "".
func (s *DiskStore) URLFor(ref string) string {
	if ref == "" {
		return ""
	}
	return s.baseURL + "/uploads/" + ref
}

// Remove deletes the stored object. Missing objects are not an error.
func (s *DiskStore) Remove(_ context.Context, ref string) error {
	if ref == "" {
		return nil
	}
	// Refuse path traversal in stored refs.
	if filepath.Base(ref) != ref {
		return fmt.Errorf("invalid object reference %q", ref)
	}
	err := os.Remove(filepath.Join(s.baseDir, ref))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Dir returns the base directory objects are stored under.
func (s *DiskStore) Dir() string {
	return s.baseDir
}
