package workspace

import (
	"context"
	"fmt"

	"twig/internal/errors"
	"twig/internal/object"
	"twig/internal/worktree"
	"twig/shared/types"

	"go.uber.org/zap"
)

// headTree returns the entries of the tree HEAD points at, or nil when
// nothing has been committed.
func (w *Workspace) headTree() (map[string]object.ID, error) {
	id, err := w.Repo.Head()
	if err != nil {
		if errors.Is(err, errors.ErrorTypeDanglingReference) {
			return nil, nil
		}
		return nil, err
	}
	c, err := w.Repo.LookupCommit(id)
	if err != nil {
		return nil, err
	}
	t, err := w.Repo.Tree(c.TreeID)
	if err != nil {
		return nil, err
	}
	return t.Map(), nil
}

// Status compares HEAD with the index and the index with the worktree.
// Staged changes come first, each group sorted by path.
func (w *Workspace) Status() ([]shared.Change, error) {
	head, err := w.headTree()
	if err != nil {
		return nil, fmt.Errorf("reading head tree: %w", err)
	}

	var staged, unstaged []shared.Change
	indexed := make(map[string]bool)

	for _, e := range w.Repo.Index() {
		indexed[e.Name] = true

		old, inHead := head[e.Name]
		switch {
		case !inHead:
			staged = append(staged, shared.Change{Path: e.Name, Type: shared.ChangeAdded, NewHash: string(e.BlobID), Staged: true})
		case old != e.BlobID:
			staged = append(staged, shared.Change{Path: e.Name, Type: shared.ChangeModified, OldHash: string(old), NewHash: string(e.BlobID), Staged: true})
		}

		if !w.Reader.Exists(e.Name) {
			unstaged = append(unstaged, shared.Change{Path: e.Name, Type: shared.ChangeDeleted, OldHash: string(e.BlobID)})
			continue
		}
		content, err := w.Reader.Read(e.Name)
		if err != nil {
			w.Logger.Warn("failed to read file", zap.String("path", e.Name), zap.Error(err))
			continue
		}
		if current := object.Hash(content); current != e.BlobID {
			unstaged = append(unstaged, shared.Change{Path: e.Name, Type: shared.ChangeModified, OldHash: string(e.BlobID), NewHash: string(current)})
		}
	}

	for _, name := range sortedKeys(head) {
		if !indexed[name] {
			staged = append(staged, shared.Change{Path: name, Type: shared.ChangeDeleted, OldHash: string(head[name]), Staged: true})
		}
	}

	files, err := worktree.Walk(w.Root, w.Root)
	if err != nil {
		return nil, err
	}
	for _, name := range files {
		if !indexed[name] {
			unstaged = append(unstaged, shared.Change{Path: name, Type: shared.ChangeUntracked})
		}
	}

	sortChanges(staged)
	sortChanges(unstaged)
	return append(staged, unstaged...), nil
}

// Watch restages indexed files whenever they are written until ctx is done.
// Files that are not in the index are left alone, and writes that leave the
// content unchanged are not reported.
func (w *Workspace) Watch(ctx context.Context, onStaged func(name string)) error {
	watcher, err := worktree.NewWatcher(w.Root, w.Logger)
	if err != nil {
		return err
	}
	defer watcher.Close()

	return watcher.Run(ctx, func(name string) error {
		_, err := w.restage(name, onStaged)
		return err
	})
}

// restage stages name again if it is in the index and reports it through
// onStaged only when its blob changed.
func (w *Workspace) restage(name string, onStaged func(name string)) (bool, error) {
	before, ok := w.Repo.Staged(name)
	if !ok {
		return false, nil
	}
	if err := w.Repo.StageFile(w.Reader, name); err != nil {
		return false, err
	}
	after, _ := w.Repo.Staged(name)
	if after == before {
		return false, nil
	}
	if onStaged != nil {
		onStaged(name)
	}
	return true, nil
}
