package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/gramsight/gramsight-backend/internal/logger"
	"github.com/gramsight/gramsight-backend/internal/utils"
)

// BlobStore persists binary assets under opaque keys. Keys are relative
// paths; a fresh uuid filename is minted per write so a re-download never
// overwrites the previous object in place.
type BlobStore interface {
	Write(key string, data []byte) error
	Open(key string) (io.ReadCloser, error)
	Exists(key string) bool
	Delete(key string) error
	BuildKey(ext string, parts ...string) string
}

type localStore struct {
	baseDir string
	log     *logger.Logger
}

func NewLocalStore(log *logger.Logger) (BlobStore, error) {
	baseDir := utils.GetEnv("MEDIA_ROOT", "./media", log)
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media root: %w", err)
	}
	return &localStore{baseDir: baseDir, log: log.With("service", "BlobStore")}, nil
}

// BuildKey returns "<parts...>/<uuid><ext>". ext must include the dot or be
// empty.
func (s *localStore) BuildKey(ext string, parts ...string) string {
	name := uuid.NewString() + ext
	segments := append(append([]string{}, parts...), name)
	return strings.Join(segments, "/")
}

func (s *localStore) Write(key string, data []byte) error {
	if key == "" {
		return fmt.Errorf("empty blob key")
	}
	path := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *localStore) Open(key string) (io.ReadCloser, error) {
	if key == "" {
		return nil, os.ErrNotExist
	}
	return os.Open(filepath.Join(s.baseDir, filepath.FromSlash(key)))
}

func (s *localStore) Exists(key string) bool {
	if key == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(s.baseDir, filepath.FromSlash(key)))
	return err == nil
}

func (s *localStore) Delete(key string) error {
	if key == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.baseDir, filepath.FromSlash(key)))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
