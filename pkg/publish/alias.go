package publish

import (
	"fmt"
	"strings"

	"github.com/netroomlab/netroom/pkg/room"
)

// Singleton categories claim exactly one canonical alias (category + "1");
// surplus entries of the same category spill into the remaining pool.
var singletonCategories = map[string]bool{
	"desktop":  true,
	"laptop":   true,
	"switch":   true,
	"router":   true,
	"firewall": true,
	"earth":    true,
}

// serverRoleOrder fixes the fill order of the four named server slots.
var serverRoleOrder = [4]string{"dns1", "pki1", "cdn1", "web1"}

// roleForLabel sniffs a server's custom label for a role keyword. Downstream
// consumers key off these exact alias strings, so the policy is preserved
// as-is rather than cleaned up.
func roleForLabel(label string) string {
	l := strings.ToLower(label)
	switch {
	case strings.Contains(l, "dns"):
		return "dns1"
	case strings.Contains(l, "pki"), strings.Contains(l, "ca"), strings.Contains(l, "certificate"):
		return "pki1"
	case strings.Contains(l, "cdn"):
		return "cdn1"
	case strings.Contains(l, "web"), strings.Contains(l, "origin"):
		return "web1"
	default:
		return ""
	}
}

// titleForDevice derives a display title from category alone (and, for
// servers, from the assigned alias). Raw model filenames never leak into
// titles.
func titleForDevice(category, alias string) string {
	if category == "server" {
		switch alias {
		case "cdn1":
			return "CDN Edge"
		case "pki1":
			return "PKI Server"
		default:
			return "Web Server"
		}
	}
	if category == "" {
		return "Device"
	}
	return strings.ToUpper(category[:1]) + category[1:]
}

// assignDevices converts the sorted placeable entries into canonical devices
// with stable, unique aliases.
func assignDevices(entries []sortedEntry) []room.Device {
	taken := make(map[string]bool)
	devices := make([]room.Device, 0, len(entries))
	var remaining []sortedEntry
	var servers []sortedEntry

	add := func(alias string, e sortedEntry, category string) {
		taken[alias] = true
		devices = append(devices, buildDevice(alias, e, category))
	}

	// Split servers from everything else; singletons claim their slot on the
	// way through.
	for _, se := range entries {
		category := normalizeCategory(&se.Entry)
		if category == "server" {
			servers = append(servers, se)
			continue
		}
		if singletonCategories[category] {
			alias := category + "1"
			if !taken[alias] {
				add(alias, se, category)
				continue
			}
		}
		remaining = append(remaining, se)
	}

	// Servers: labeled entries claim their role slot first.
	assigned := make([]bool, len(servers))
	for i, se := range servers {
		role := roleForLabel(se.Entry.Label)
		if role != "" && !taken[role] {
			add(role, se, "server")
			assigned[i] = true
		}
	}
	// Unclaimed role slots fill in fixed order from the rest.
	for _, role := range serverRoleOrder {
		if taken[role] {
			continue
		}
		for i, se := range servers {
			if assigned[i] {
				continue
			}
			add(role, se, "server")
			assigned[i] = true
			break
		}
	}
	// Whatever is left becomes serverN in encounter order.
	n := 1
	for i, se := range servers {
		if assigned[i] {
			continue
		}
		for taken[fmt.Sprintf("server%d", n)] {
			n++
		}
		add(fmt.Sprintf("server%d", n), se, "server")
		n++
	}

	// Remaining pool: category+N starting at 2 (1 for the misc catch-all),
	// skipping anything already taken.
	for _, se := range remaining {
		category := normalizeCategory(&se.Entry)
		start := 2
		if category == "misc" {
			start = 1
		}
		for i := start; ; i++ {
			alias := fmt.Sprintf("%s%d", category, i)
			if !taken[alias] {
				add(alias, se, category)
				break
			}
		}
	}

	return devices
}

// buildDevice assembles the canonical device for an assigned alias. Position
// preference: local position, then the captured world-space hint, then origin.
func buildDevice(alias string, se sortedEntry, category string) room.Device {
	e := se.Entry

	var pos room.Vec3
	switch {
	case e.Position != nil:
		pos = *e.Position
	case e.World != nil && e.World.Position != nil:
		pos = *e.World.Position
	}

	meta := map[string]any{
		"title": titleForDevice(category, alias),
	}
	if e.Label != "" {
		meta["label"] = e.Label
	}
	if e.World != nil {
		meta["world"] = e.World
	}

	return room.Device{
		Alias:    alias,
		Category: category,
		Model:    room.NormalizeModelPath(e.Model, category),
		Position: pos,
		Rotation: e.Rotation,
		Scale:    e.Scale,
		Metadata: meta,
	}
}
