// Package inventory discovers the 3D asset files available to room authors
// and derives their display metadata. It also backs the publish pipeline's
// asset existence checks.
package inventory

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/netroomlab/netroom/pkg/logging"
	"github.com/netroomlab/netroom/pkg/metrics"
)

// Item is one discovered asset.
type Item struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	Emoji      string `json:"emoji"`
	SizeBytes  int64  `json:"sizeBytes"`
	Complexity int    `json:"complexity"`
}

// categoryEmoji keys display emoji off the top-level asset folder.
var categoryEmoji = map[string]string{
	"network":   "🌐",
	"servers":   "🖥️",
	"computers": "💻",
	"security":  "🛡️",
	"furniture": "🪑",
	"plants":    "🪴",
	"decor":     "🎨",
	"misc":      "📦",
}

const fallbackEmoji = "📦"

// complexityDivisor converts bytes into a rough triangle-count estimate.
const complexityDivisor = 40

// Scanner walks an asset directory tree for 3D model files.
type Scanner struct {
	root    string
	log     logging.Logger
	metrics *metrics.Registry
}

// NewScanner creates a Scanner rooted at dir. reg may be nil.
func NewScanner(dir string, log logging.Logger, reg *metrics.Registry) *Scanner {
	return &Scanner{
		root:    dir,
		log:     log.With(logging.Component("inventory")),
		metrics: reg,
	}
}

// Scan walks the asset tree and returns every .glb/.gltf file with derived
// metadata, plus the sorted list of categories seen. A missing root yields an
// empty result, not an error; unreadable subtrees and failed stats degrade to
// zero-valued fields rather than failing the whole scan.
func (s *Scanner) Scan() ([]Item, []string, error) {
	start := time.Now()

	if _, err := os.Stat(s.root); os.IsNotExist(err) {
		s.log.Warn("asset root does not exist", logging.Path(s.root))
		return []Item{}, []string{}, nil
	}

	items := make([]Item, 0, 64)
	categories := make(map[string]bool)

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Skip unreadable subtrees, keep scanning the rest.
			s.log.Warn("skipping unreadable path", logging.Path(path), logging.Error(err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !isModelFile(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		item := Item{
			ID:       rel,
			Name:     displayName(d.Name()),
			Category: topFolder(rel),
		}
		item.Emoji = categoryEmoji[item.Category]
		if item.Emoji == "" {
			item.Emoji = fallbackEmoji
		}
		if info, err := d.Info(); err == nil {
			item.SizeBytes = info.Size()
			item.Complexity = int(info.Size() / complexityDivisor)
		}

		items = append(items, item)
		categories[item.Category] = true
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	allCategories := make([]string, 0, len(categories))
	for c := range categories {
		allCategories = append(allCategories, c)
	}
	sort.Strings(allCategories)

	if s.metrics != nil {
		s.metrics.RecordInventoryScan(len(items), time.Since(start))
	}
	s.log.Debug("scan finished", logging.Count(len(items)), logging.Latency(time.Since(start)))

	return items, allCategories, nil
}

func isModelFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".glb") || strings.HasSuffix(lower, ".gltf")
}

// topFolder returns the first path segment, or "misc" for files directly in
// the root.
func topFolder(rel string) string {
	if i := strings.Index(rel, "/"); i > 0 {
		return strings.ToLower(rel[:i])
	}
	return "misc"
}

// displayName turns "core_router-v2.glb" into "Core Router V2".
func displayName(filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	base = strings.ReplaceAll(base, "_", " ")
	base = strings.ReplaceAll(base, "-", " ")

	words := strings.Fields(base)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
