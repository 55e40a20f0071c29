package config

import (
	"os"
	"path/filepath"
)

// Store is the opaque persistence contract for the settings document.
type Store interface {
	Load() ([]byte, error)
	Save(data []byte) error
	// Name identifies the store for diagnostics, the file path for the
	// file store.
	Name() string
}

// FileStore persists the document to one file. YAML or JSON is chosen
// by extension.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore { return &FileStore{path: path} }

func (s *FileStore) Load() ([]byte, error) { return os.ReadFile(s.path) }

func (s *FileStore) Save(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	// Write-then-rename so a crash mid-save never truncates the config.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStore) Name() string { return s.path }

// Path reports the watched file location.
func (s *FileStore) Path() string { return s.path }
