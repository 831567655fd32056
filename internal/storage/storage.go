package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned for ids that have never been created.
	ErrNotFound = errors.New("record not found")
	// ErrExists is returned by Create when the id is already taken.
	ErrExists = errors.New("record already exists")
	// ErrInvalidID is returned for ids the backend cannot address.
	ErrInvalidID = errors.New("invalid record id")
)

// BlobStore keeps opaque JSON documents by id. Writes are last-write-wins.
type BlobStore interface {
	Create(ctx context.Context, id string, data []byte) error
	Get(ctx context.Context, id string) ([]byte, error)
	Put(ctx context.Context, id string, data []byte) error
}

// NewID returns a fresh record id.
func NewID() string {
	return uuid.NewString()
}

func validJSON(data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("payload is not valid JSON")
	}
	return nil
}

// FileStore provides file-based storage with one JSON file per record.
type FileStore struct {
	basePath string
}

// NewFileStore creates a new FileStore and ensures the base directory exists.
func NewFileStore(basePath string) (*FileStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	return &FileStore{basePath: basePath}, nil
}

// path returns the file for id. Only UUIDs are accepted so an id can never
// escape the base directory.
func (s *FileStore) path(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return filepath.Join(s.basePath, id+".json"), nil
}

// Create stores a new record.
func (s *FileStore) Create(_ context.Context, id string, data []byte) error {
	if err := validJSON(data); err != nil {
		return err
	}
	p, err := s.path(id)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrExists
		}
		return fmt.Errorf("failed to create record file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write record file: %w", err)
	}
	return f.Close()
}

// Get loads a record.
func (s *FileStore) Get(_ context.Context, id string) ([]byte, error) {
	p, err := s.path(id)
	if err != nil {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read record file: %w", err)
	}
	return data, nil
}

// Put overwrites an existing record.
func (s *FileStore) Put(_ context.Context, id string, data []byte) error {
	if err := validJSON(data); err != nil {
		return err
	}
	p, err := s.path(id)
	if err != nil {
		return ErrNotFound
	}
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to stat record file: %w", err)
	}

	// Write through a temp file so readers never see a partial document.
	tmp, err := os.CreateTemp(s.basePath, id+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace record file: %w", err)
	}
	return nil
}
