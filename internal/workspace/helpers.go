package workspace

import (
	"sort"

	"twig/internal/object"
	"twig/shared/types"
)

func sortedKeys(m map[string]object.ID) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortChanges(changes []shared.Change) {
	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Path < changes[j].Path
	})
}
