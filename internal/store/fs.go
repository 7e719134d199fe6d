package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// FS stores artifacts on a billy filesystem.
type FS struct {
	fs billy.Filesystem
}

// NewFS wraps an existing filesystem.
func NewFS(fs billy.Filesystem) *FS {
	return &FS{fs: fs}
}

// NewOSFS returns a store rooted at dir, creating it if needed.
func NewOSFS(dir string) (*FS, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return NewFS(osfs.New(dir)), nil
}

// NewMemory returns an in-memory store.
func NewMemory() *FS {
	return NewFS(memfs.New())
}

func (s *FS) Exists(_ context.Context, key string) (bool, error) {
	_, err := s.fs.Stat(key)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", key, err)
}

func (s *FS) Read(_ context.Context, key string) ([]byte, error) {
	data, err := util.ReadFile(s.fs, key)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

func (s *FS) Write(_ context.Context, key string, data []byte) error {
	if err := s.mkdirParent(key); err != nil {
		return err
	}
	if err := util.WriteFile(s.fs, key, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *FS) Create(_ context.Context, key string) (io.WriteCloser, error) {
	if err := s.mkdirParent(key); err != nil {
		return nil, err
	}
	f, err := s.fs.Create(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", key, err)
	}
	return f, nil
}

func (s *FS) Location(key string) string {
	return s.fs.Join(s.fs.Root(), key)
}

func (s *FS) mkdirParent(key string) error {
	dir := path.Dir(key)
	if dir == "." || dir == "/" {
		return nil
	}
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
