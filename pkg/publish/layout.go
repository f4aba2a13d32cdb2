package publish

import (
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/netroomlab/netroom/pkg/room"
)

// WorldHint is a world-space transform captured during editing. Preserved
// verbatim in device metadata so a later re-import can restore placement even
// if local transforms were lost.
type WorldHint struct {
	Position   *room.Vec3  `json:"position,omitempty"`
	Quaternion *[4]float64 `json:"quaternion,omitempty"`
	Scale      *room.Vec3  `json:"scale,omitempty"`
	Center     *room.Vec3  `json:"center,omitempty"`
}

// LayoutEntry is a live, possibly-incomplete device placement captured in the
// editor. It exists only in browser storage until publish converts it into a
// canonical device and discards it.
type LayoutEntry struct {
	ID       string     `json:"id,omitempty"`
	Position *room.Vec3 `json:"position,omitempty"`
	Rotation *room.Vec3 `json:"rotation,omitempty"`
	Scale    *room.Vec3 `json:"scale,omitempty"`
	World    *WorldHint `json:"world,omitempty"`
	Category string     `json:"category,omitempty"`
	Model    string     `json:"model,omitempty"`
	Label    string     `json:"label,omitempty"`
	Deleted  bool       `json:"deleted,omitempty"`
}

// Layout maps transient editor object keys to their entries.
type Layout map[string]LayoutEntry

// sortedEntry pairs an entry with its map key for deterministic ordering.
type sortedEntry struct {
	Key   string
	Entry LayoutEntry
}

// idTimestampPattern matches a trailing run of at least 10 digits after a
// hyphen, the millisecond timestamp the editor embeds in generated ids.
var idTimestampPattern = regexp.MustCompile(`-(\d{10,})$`)

// entryTimestamp extracts the embedded timestamp from a generated id, or 0.
func entryTimestamp(id string) int64 {
	m := idTimestampPattern.FindStringSubmatch(id)
	if m == nil {
		return 0
	}
	ts, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0
	}
	return ts
}

// placeable filters out soft-deleted entries and entries with no model
// reference, then sorts the survivors by (embedded timestamp, key). The sort
// makes alias assignment reproducible regardless of map iteration order.
func placeable(layout Layout) []sortedEntry {
	entries := make([]sortedEntry, 0, len(layout))
	for key, e := range layout {
		if e.Deleted || e.Model == "" {
			continue
		}
		entries = append(entries, sortedEntry{Key: key, Entry: e})
	}

	sort.Slice(entries, func(i, j int) bool {
		ti := entryTimestamp(entries[i].Entry.ID)
		tj := entryTimestamp(entries[j].Entry.ID)
		if ti != tj {
			return ti < tj
		}
		return entries[i].Key < entries[j].Key
	})

	return entries
}

// knownCategories are the categories with dedicated alias handling. Anything
// else falls back to the model's folder name, or "misc".
var knownCategories = []string{
	"server", "desktop", "laptop", "switch", "router", "firewall", "earth",
}

// normalizeCategory resolves an entry's category from its explicit field or,
// failing that, from the folder path of its model reference.
func normalizeCategory(e *LayoutEntry) string {
	if e.Category != "" {
		return strings.ToLower(e.Category)
	}

	dir := strings.ToLower(path.Dir(strings.TrimPrefix(e.Model, "/")))
	if dir == "." || dir == "" {
		return "misc"
	}

	for _, seg := range strings.Split(dir, "/") {
		for _, c := range knownCategories {
			if seg == c || seg == c+"s" || seg == c+"es" {
				return c
			}
		}
	}

	// Unrecognized folder: its name is the category.
	return path.Base(dir)
}
