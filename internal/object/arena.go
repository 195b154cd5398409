package object

// Arena keeps every object created by a repository, keyed by ID. Adding an
// object whose ID is already present keeps the stored instance.
type Arena struct {
	blobs   map[ID]*Blob
	trees   map[ID]*Tree
	commits map[ID]*Commit
}

func NewArena() *Arena {
	return &Arena{
		blobs:   make(map[ID]*Blob),
		trees:   make(map[ID]*Tree),
		commits: make(map[ID]*Commit),
	}
}

// AddBlob stores b and returns the canonical instance for its ID.
func (a *Arena) AddBlob(b *Blob) *Blob {
	if existing, ok := a.blobs[b.ID]; ok {
		return existing
	}
	a.blobs[b.ID] = b
	return b
}

func (a *Arena) AddTree(t *Tree) *Tree {
	if existing, ok := a.trees[t.ID]; ok {
		return existing
	}
	a.trees[t.ID] = t
	return t
}

func (a *Arena) AddCommit(c *Commit) *Commit {
	if existing, ok := a.commits[c.ID]; ok {
		return existing
	}
	a.commits[c.ID] = c
	return c
}

func (a *Arena) Blob(id ID) (*Blob, bool) {
	b, ok := a.blobs[id]
	return b, ok
}

func (a *Arena) Tree(id ID) (*Tree, bool) {
	t, ok := a.trees[id]
	return t, ok
}

func (a *Arena) Commit(id ID) (*Commit, bool) {
	c, ok := a.commits[id]
	return c, ok
}

func (a *Arena) HasBlob(id ID) bool {
	_, ok := a.blobs[id]
	return ok
}

// Counts returns the number of blobs, trees and commits held.
func (a *Arena) Counts() (blobs, trees, commits int) {
	return len(a.blobs), len(a.trees), len(a.commits)
}
