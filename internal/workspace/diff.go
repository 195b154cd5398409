package workspace

import (
	"fmt"

	"twig/internal/diff"
	"twig/internal/object"
)

// FileDiff is the diff of one worktree name.
type FileDiff struct {
	Name   string
	Result *diff.DiffResult
}

// Diff compares the index with the worktree, or HEAD with the index when
// cached is set. Only names are considered when any are given. Identical
// files are left out.
func (w *Workspace) Diff(names []string, cached bool) ([]FileDiff, error) {
	head, err := w.headTree()
	if err != nil {
		return nil, fmt.Errorf("reading head tree: %w", err)
	}

	index := make(map[string]object.ID)
	for _, e := range w.Repo.Index() {
		index[e.Name] = e.BlobID
	}

	if len(names) == 0 {
		set := make(map[string]object.ID)
		for name, id := range index {
			set[name] = id
		}
		if cached {
			for name, id := range head {
				set[name] = id
			}
		}
		names = sortedKeys(set)
	}

	engine := diff.NewEngine(3)
	var out []FileDiff
	for _, name := range names {
		var oldContent, newContent []byte
		if cached {
			if oldContent, err = w.blobContent(head, name); err != nil {
				return nil, err
			}
			if newContent, err = w.blobContent(index, name); err != nil {
				return nil, err
			}
		} else {
			if _, ok := index[name]; !ok {
				continue
			}
			if oldContent, err = w.blobContent(index, name); err != nil {
				return nil, err
			}
			if w.Reader.Exists(name) {
				if newContent, err = w.Reader.Read(name); err != nil {
					return nil, err
				}
			}
		}

		result, err := engine.Diff("a/"+name, "b/"+name, oldContent, newContent)
		if err != nil {
			return nil, fmt.Errorf("diffing %s: %w", name, err)
		}
		if !result.Empty() {
			out = append(out, FileDiff{Name: name, Result: result})
		}
	}
	return out, nil
}

// blobContent returns the content name maps to in entries, or nil when the
// name is absent.
func (w *Workspace) blobContent(entries map[string]object.ID, name string) ([]byte, error) {
	id, ok := entries[name]
	if !ok {
		return nil, nil
	}
	b, err := w.Repo.Blob(id)
	if err != nil {
		return nil, err
	}
	return b.Content, nil
}
