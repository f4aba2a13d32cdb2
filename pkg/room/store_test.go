package room

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	cfg := validConfig()

	if err := store.WriteSource("demo-lab", cfg); err != nil {
		t.Fatalf("WriteSource: %v", err)
	}

	loaded, err := store.LoadSource("demo-lab")
	if err != nil {
		t.Fatalf("LoadSource: %v", err)
	}
	if loaded.ID != cfg.ID || len(loaded.Devices) != len(cfg.Devices) {
		t.Errorf("round trip lost data: %+v", loaded)
	}

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(store.SourcePath("demo-lab")))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected exactly one file after write, found %d", len(entries))
	}
}

func TestStoreNotFound(t *testing.T) {
	store := NewStore(t.TempDir())
	if _, err := store.LoadFinal("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreParseError(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	if err := os.WriteFile(store.FinalPath("bad"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := store.LoadFinal("bad")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestLoadRoom(t *testing.T) {
	store := NewStore(t.TempDir())
	cfg := validConfig()
	if err := store.WriteFinal(cfg.ID, cfg); err != nil {
		t.Fatalf("WriteFinal: %v", err)
	}

	eng, err := LoadRoom(store, cfg.ID)
	if err != nil {
		t.Fatalf("LoadRoom: %v", err)
	}
	if eng.ID != cfg.ID || len(eng.Objects) != 2 {
		t.Errorf("unexpected engine config: %+v", eng)
	}
}

func TestLoadRoomInvalidDocument(t *testing.T) {
	store := NewStore(t.TempDir())
	cfg := validConfig()
	cfg.Structure.Width = 0
	if err := store.WriteFinal(cfg.ID, cfg); err != nil {
		t.Fatalf("WriteFinal: %v", err)
	}

	_, err := LoadRoom(store, cfg.ID)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("expected validation error, got %v", err)
	}
}
