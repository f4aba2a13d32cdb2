package inventory

import (
	"os"
	"path/filepath"
	"strings"
)

// Dir serves asset existence checks against a directory on disk. Model paths
// from room documents are rooted at the web origin ("/assets/network/x.glb"),
// so lookups strip the URL-style prefix before hitting the filesystem.
type Dir struct {
	root string
}

// NewDir creates a Dir rooted at the given asset directory.
func NewDir(root string) *Dir {
	return &Dir{root: root}
}

// Exists reports whether the asset behind a normalized model path is present
// on disk.
func (d *Dir) Exists(path string) bool {
	rel := strings.TrimPrefix(path, "/")
	rel = strings.TrimPrefix(rel, "assets/")
	if rel == "" {
		return false
	}

	full := filepath.Join(d.root, filepath.FromSlash(rel))
	info, err := os.Stat(full)
	return err == nil && !info.IsDir()
}
