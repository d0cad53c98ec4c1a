package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// BlobStorage persists attachment bytes under a flat stored name.
type BlobStorage interface {
	Save(ctx context.Context, name string, r io.Reader) error
	// Open returns ErrAttachmentNotFound when name does not exist.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
}

// FSStorage stores attachments as files in a single directory.
type FSStorage struct {
	dir string
}

// NewFSStorage ensures dir exists and returns a storage rooted at its absolute path.
func NewFSStorage(dir string) (*FSStorage, error) {
	if dir == "" {
		return nil, errors.New("upload dir path is empty")
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure upload dir %s: %w", dir, err)
	}
	return &FSStorage{dir: dir}, nil
}

func (s *FSStorage) Save(_ context.Context, name string, r io.Reader) error {
	if !validStoredName(name) {
		return fmt.Errorf("invalid stored name %q", name)
	}
	path := filepath.Join(s.dir, name)
	// O_EXCL: a stored name is written exactly once.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("close %s: %w", name, err)
	}
	return nil
}

func (s *FSStorage) Open(_ context.Context, name string) (io.ReadCloser, error) {
	if !validStoredName(name) {
		return nil, ErrAttachmentNotFound
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrAttachmentNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *FSStorage) Delete(_ context.Context, name string) error {
	if !validStoredName(name) {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// validStoredName accepts flat file names only.
func validStoredName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return filepath.Base(name) == name && filepath.ToSlash(name) == name
}
