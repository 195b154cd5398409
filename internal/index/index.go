// Package index implements the staging area between the worktree and the
// next commit.
package index

import (
	"sort"

	"twig/internal/object"
)

// Index maps file names to the blob most recently staged for them.
type Index struct {
	entries map[string]object.ID
}

func New() *Index {
	return &Index{entries: make(map[string]object.ID)}
}

// FromEntries rebuilds an index, e.g. from persisted state.
func FromEntries(entries map[string]object.ID) *Index {
	idx := New()
	for name, id := range entries {
		idx.entries[name] = id
	}
	return idx
}

// Stage records id for name, replacing any earlier entry.
func (i *Index) Stage(name string, id object.ID) {
	i.entries[name] = id
}

// Remove drops name and reports whether it was present.
func (i *Index) Remove(name string) bool {
	if _, ok := i.entries[name]; !ok {
		return false
	}
	delete(i.entries, name)
	return true
}

func (i *Index) Lookup(name string) (object.ID, bool) {
	id, ok := i.entries[name]
	return id, ok
}

func (i *Index) Len() int {
	return len(i.entries)
}

// Snapshot returns the entries sorted by name. The index is not modified.
func (i *Index) Snapshot() []object.TreeEntry {
	out := make([]object.TreeEntry, 0, len(i.entries))
	for name, id := range i.entries {
		out = append(out, object.TreeEntry{Name: name, BlobID: id})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

// Entries returns a copy of the name -> blob mapping.
func (i *Index) Entries() map[string]object.ID {
	out := make(map[string]object.ID, len(i.entries))
	for name, id := range i.entries {
		out[name] = id
	}
	return out
}
