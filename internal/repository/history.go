package repository

import (
	"fmt"
	"iter"

	"twig/internal/errors"
	"twig/internal/object"
)

// History yields the commits reachable from master, newest first, ending
// with the commit whose parent is the root tree. It yields nothing for an
// empty repository. The sequence can be ranged over any number of times;
// each pass reads master afresh.
func (r *Repository) History() iter.Seq2[*object.Commit, error] {
	return func(yield func(*object.Commit, error) bool) {
		tip, ok, err := r.tip()
		if err != nil {
			yield(nil, fmt.Errorf("resolving history start: %w", err))
			return
		}
		if !ok {
			return
		}
		r.HistoryFrom(tip)(yield)
	}
}

// HistoryFrom yields start and its ancestors, newest first.
func (r *Repository) HistoryFrom(start object.ID) iter.Seq2[*object.Commit, error] {
	return func(yield func(*object.Commit, error) bool) {
		_, _, total := r.objects.Counts()
		current := start
		for hops := 0; ; hops++ {
			// IDs cover parent IDs, so a cycle means corrupted state.
			if hops > total {
				yield(nil, errors.Internal("walking history", fmt.Errorf("more than %d hops from %s", total, start.Short())))
				return
			}

			c, ok := r.objects.Commit(current)
			if !ok {
				yield(nil, errors.NotFound(fmt.Sprintf("commit not found: %s", current)))
				return
			}
			if !yield(c, nil) {
				return
			}

			parent, ok := c.Parent.CommitID()
			if !ok {
				return
			}
			current = parent
		}
	}
}

// Log collects up to limit commits of History. A limit of zero or less means
// no limit.
func (r *Repository) Log(limit int) ([]*object.Commit, error) {
	var out []*object.Commit
	for c, err := range r.History() {
		if err != nil {
			return out, err
		}
		out = append(out, c)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
