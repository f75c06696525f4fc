package attachment

import (
	"io"
	"os"
	"path/filepath"
	"strings"
)

// BlobStore abstracts where uploaded files land. Keys are slash separated
// relative paths like "TKT001/uuid.png" or "comments/TKT001/uuid.pdf".
type BlobStore interface {
	Save(key string, r io.Reader) error
	Open(key string) (io.ReadCloser, error)
	Remove(key string) error
	RemovePrefix(prefix string) error
}

var ActiveBlobStore BlobStore

// LocalBlobStore keeps files on the local disk under BaseDir.
type LocalBlobStore struct {
	BaseDir string
}

func NewLocalBlobStore() *LocalBlobStore {
	dir := os.Getenv("UPLOAD_DIR")
	if dir == "" {
		dir = "uploads"
	}
	return &LocalBlobStore{BaseDir: dir}
}

func (s *LocalBlobStore) path(key string) string {
	return filepath.Join(s.BaseDir, filepath.FromSlash(key))
}

func (s *LocalBlobStore) Save(key string, r io.Reader) error {
	p := s.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}
	f, err := os.Create(p)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, r)
	return err
}

func (s *LocalBlobStore) Open(key string) (io.ReadCloser, error) {
	return os.Open(s.path(key))
}

func (s *LocalBlobStore) Remove(key string) error {
	err := os.Remove(s.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *LocalBlobStore) RemovePrefix(prefix string) error {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return nil
	}
	return os.RemoveAll(s.path(prefix))
}
