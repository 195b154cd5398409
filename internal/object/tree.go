package object

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"unicode/utf8"
)

// TreeEntry maps a file name to the blob holding its content.
type TreeEntry struct {
	Name   string `json:"name"`
	BlobID ID     `json:"blob_id"`
}

// Tree is a flat snapshot of the index.
type Tree struct {
	ID      ID          `json:"id"`
	Entries []TreeEntry `json:"entries"` // sorted by Name
}

// NewTree builds a tree from a name -> blob mapping.
func NewTree(entries map[string]ID) *Tree {
	list := make([]TreeEntry, 0, len(entries))
	for name, id := range entries {
		list = append(list, TreeEntry{Name: name, BlobID: id})
	}
	return NewTreeFromEntries(list)
}

// NewTreeFromEntries builds a tree from entries in any order. Later entries
// win when a name repeats.
func NewTreeFromEntries(entries []TreeEntry) *Tree {
	byName := make(map[string]ID, len(entries))
	for _, e := range entries {
		byName[e.Name] = e.BlobID
	}

	sorted := make([]TreeEntry, 0, len(byName))
	for name, id := range byName {
		sorted = append(sorted, TreeEntry{Name: name, BlobID: id})
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	t := &Tree{Entries: sorted}
	t.ID = Hash(t.Canonical())
	return t
}

// ValidName reports whether name can be recorded in a tree. JSON replaces
// invalid UTF-8 with U+FFFD, so such names would make distinct trees share
// a canonical form.
func ValidName(name string) error {
	if name == "" {
		return fmt.Errorf("name is empty")
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("name %q is not valid UTF-8", name)
	}
	return nil
}

// Canonical returns the serialization the tree ID is computed from: a JSON
// object keyed by file name in lexicographic order, e.g.
//
//	{"a.txt":"<blob id>","b.txt":"<blob id>"}
//
// It is injective only over names accepted by ValidName.
func (t *Tree) Canonical() []byte {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range t.Entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		// Marshaling a string cannot fail.
		name, _ := json.Marshal(e.Name)
		id, _ := json.Marshal(string(e.BlobID))
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(id)
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

// Lookup returns the blob ID recorded for name.
func (t *Tree) Lookup(name string) (ID, bool) {
	i := sort.Search(len(t.Entries), func(i int) bool { return t.Entries[i].Name >= name })
	if i < len(t.Entries) && t.Entries[i].Name == name {
		return t.Entries[i].BlobID, true
	}
	return "", false
}

// Map returns the entries as a name -> blob mapping.
func (t *Tree) Map() map[string]ID {
	m := make(map[string]ID, len(t.Entries))
	for _, e := range t.Entries {
		m[e.Name] = e.BlobID
	}
	return m
}

// Verify recomputes the tree ID from its entries.
func (t *Tree) Verify() error {
	if got := Hash(t.Canonical()); got != t.ID {
		return fmt.Errorf("tree %s: content hashes to %s", t.ID.Short(), got.Short())
	}
	return nil
}
