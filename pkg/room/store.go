package room

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotFound reports that a room document does not exist on disk. Surfaced
// to the user as a "create the source file" hint; never retried.
var ErrNotFound = errors.New("room: document not found")

// Store reads and writes room documents in a single directory. Layout:
// <dir>/<slug>.source.json (editable draft) and <dir>/<slug>.final.json
// (the validated document served to end-users).
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// SourcePath returns the on-disk path of a room's source document.
func (s *Store) SourcePath(slug string) string {
	return filepath.Join(s.dir, slug+".source.json")
}

// FinalPath returns the on-disk path of a room's final document.
func (s *Store) FinalPath(slug string) string {
	return filepath.Join(s.dir, slug+".final.json")
}

// LoadFinal reads and parses a room's final document.
func (s *Store) LoadFinal(slug string) (*Config, error) {
	return s.load(s.FinalPath(slug))
}

// LoadSource reads and parses a room's source document.
func (s *Store) LoadSource(slug string) (*Config, error) {
	return s.load(s.SourcePath(slug))
}

func (s *Store) load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, filepath.Base(path))
		}
		return nil, fmt.Errorf("room: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("room: parse %s: %w", filepath.Base(path), err)
	}
	return &cfg, nil
}

// WriteSource persists a room's source document. The write goes through a
// temp file and rename so a crash never leaves a half-written document.
func (s *Store) WriteSource(slug string, cfg *Config) error {
	return s.write(s.SourcePath(slug), cfg)
}

// WriteFinal persists a room's final document.
func (s *Store) WriteFinal(slug string, cfg *Config) error {
	return s.write(s.FinalPath(slug), cfg)
}

func (s *Store) write(path string, cfg *Config) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("room: create store dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("room: marshal %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("room: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("room: write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("room: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("room: replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

// LoadRoom fetches a room's final document, validates it, and adapts it into
// the engine-facing shape. Returns ErrNotFound or a *ValidationError.
func LoadRoom(store *Store, slug string) (*EngineConfig, error) {
	cfg, err := store.LoadFinal(slug)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return ToEngineConfig(cfg), nil
}
