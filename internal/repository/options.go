package repository

import (
	"time"

	"twig/internal/index"
	"twig/internal/object"
	"twig/internal/ref"

	"go.uber.org/zap"
)

// Option configures a Repository.
type Option func(*Repository)

func WithLogger(logger *zap.Logger) Option {
	return func(r *Repository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock sets the source of commit timestamps.
func WithClock(clock func() time.Time) Option {
	return func(r *Repository) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithBackend persists every mutation through b before it is applied in
// memory.
func WithBackend(b Backend) Option {
	return func(r *Repository) {
		r.backend = b
	}
}

// WithState restores trees, commits, references, index and reflog, typically
// loaded from a Backend. Blob content is fetched from the backend on demand.
func WithState(s *State) Option {
	return func(r *Repository) {
		if s == nil {
			return
		}
		for _, t := range s.Trees {
			r.objects.AddTree(t)
		}
		for _, c := range s.Commits {
			r.objects.AddCommit(c)
		}
		for _, rf := range s.Refs {
			r.refs.Define(rf.Label, rf.Target)
		}
		if s.Index != nil {
			r.index = index.FromEntries(s.Index)
		}
		r.reflog = append(r.reflog, s.Reflog...)
	}
}

// State is the persisted form of a repository.
type State struct {
	Trees   []*object.Tree
	Commits []*object.Commit
	Refs    []ref.Reference
	Index   map[string]object.ID
	Reflog  []ReflogEntry
}
