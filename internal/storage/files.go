// Package storage persists attachment blobs on local disk. Blobs are keyed
// by a generated relative path so the same tree can be served statically.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

type FileStore struct {
	root string
}

func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) Root() string {
	return s.root
}

// Save streams an uploaded file into <root>/<orderID>/<uuid><ext> and
// returns the path relative to the store root plus the byte count written.
func (s *FileStore) Save(orderID, filename string, r io.Reader) (string, int64, error) {
	relPath := filepath.Join(orderID, uuid.NewString()+filepath.Ext(filename))
	fullPath := filepath.Join(s.root, relPath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", 0, fmt.Errorf("create order dir: %w", err)
	}

	f, err := os.Create(fullPath)
	if err != nil {
		return "", 0, fmt.Errorf("create blob: %w", err)
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(fullPath)
		return "", 0, fmt.Errorf("write blob: %w", err)
	}

	return relPath, n, nil
}

// RemoveOrder deletes every blob stored for the order. Removing a
// nonexistent directory is not an error.
func (s *FileStore) RemoveOrder(orderID string) error {
	return os.RemoveAll(filepath.Join(s.root, orderID))
}
