package external

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DocumentStore accepts a file payload plus metadata and returns a
// stable storage reference and size. The workflow stores only the
// reference.
type DocumentStore interface {
	Put(ctx context.Context, name string, payload []byte, contentType string) (ref string, size int64, err error)
}

// LocalDocumentStore writes payloads into a directory on disk, one
// uuid-named file per document.
type LocalDocumentStore struct {
	Dir    string
	Logger *zap.Logger
}

// NewLocalDocumentStore creates the storage directory if needed.
func NewLocalDocumentStore(dir string, logger *zap.Logger) (*LocalDocumentStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create document dir: %w", err)
	}
	return &LocalDocumentStore{Dir: dir, Logger: logger}, nil
}

// Put stores the payload and returns its reference, the uuid-based
// filename relative to the store directory.
func (s *LocalDocumentStore) Put(ctx context.Context, name string, payload []byte, contentType string) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	ref := uuid.New().String() + filepath.Ext(name)
	path := filepath.Join(s.Dir, ref)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		s.Logger.Error("Failed to store document",
			zap.String("name", name),
			zap.Error(err))
		return "", 0, err
	}
	s.Logger.Info("Document stored",
		zap.String("name", name),
		zap.String("ref", ref),
		zap.Int("size", len(payload)),
		zap.String("content_type", contentType))
	return ref, int64(len(payload)), nil
}
