// Package keys normalizes raw panel identifiers to canonical slot keys.
//
// Panel generators and legacy callers use loose names ("Floor Plan",
// "3d-render", "titleblock"). Normalize folds case and separators, then
// resolves aliases against the catalog table. Unresolved input passes
// through in folded form; deciding what to do with an unknown key belongs
// to the caller, not the normalizer.
package keys

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/genarch/sheetpress/pkg/sheet/catalog"
)

// Normalizer resolves raw panel names against a catalog's alias table.
type Normalizer struct {
	aliases   map[string]string
	canonical []string
}

// New builds a normalizer from the catalog's canonical keys and aliases.
func New(cat *catalog.Catalog) *Normalizer {
	canonical := make([]string, 0, len(cat.Panels))
	for key := range cat.Panels {
		canonical = append(canonical, key)
	}
	sort.Strings(canonical)
	return &Normalizer{
		aliases:   cat.KeyAliases,
		canonical: canonical,
	}
}

// Fold lowercases a raw name, trims surrounding whitespace, and collapses
// interior whitespace and hyphens to single underscores.
func Fold(raw string) string {
	fields := strings.FieldsFunc(strings.ToLower(strings.TrimSpace(raw)), func(r rune) bool {
		return r == ' ' || r == '\t' || r == '-' || r == '_'
	})
	return strings.Join(fields, "_")
}

// Normalize maps a raw panel name to its canonical key. Canonical keys map
// to themselves; aliases resolve through the table; anything else returns
// the folded form unchanged. Never fails.
func (n *Normalizer) Normalize(raw string) string {
	folded := Fold(raw)
	if n.isCanonical(folded) {
		return folded
	}
	if canonical, ok := n.aliases[folded]; ok {
		return canonical
	}
	return folded
}

// Known reports whether key (after normalization) is a canonical key.
func (n *Normalizer) Known(raw string) bool {
	return n.isCanonical(n.Normalize(raw))
}

func (n *Normalizer) isCanonical(key string) bool {
	i := sort.SearchStrings(n.canonical, key)
	return i < len(n.canonical) && n.canonical[i] == key
}

// Suggest returns canonical keys within edit distance 2 of the folded raw
// name, nearest first. Used for log messages when a key resolves to
// nothing; resolution itself stays exact.
func (n *Normalizer) Suggest(raw string) []string {
	folded := Fold(raw)
	if folded == "" {
		return nil
	}

	type scored struct {
		key  string
		dist int
	}
	var near []scored
	for _, key := range n.canonical {
		if d := levenshtein.ComputeDistance(folded, key); d <= 2 {
			near = append(near, scored{key, d})
		}
	}
	sort.SliceStable(near, func(i, j int) bool { return near[i].dist < near[j].dist })

	out := make([]string, len(near))
	for i, s := range near {
		out[i] = s.key
	}
	return out
}
