// Package repository builds the commit history from staged content.
//
// A Repository owns the object arena, the index and the reference table. It
// is not safe for concurrent use; callers sharing one must serialize access.
package repository

import (
	"fmt"
	"time"

	"twig/internal/errors"
	"twig/internal/index"
	"twig/internal/object"
	"twig/internal/ref"

	"go.uber.org/zap"
)

// ContentProvider supplies the bytes to stage.
type ContentProvider interface {
	Content() ([]byte, error)
}

// ContentFunc adapts a function to ContentProvider.
type ContentFunc func() ([]byte, error)

func (f ContentFunc) Content() ([]byte, error) { return f() }

// Bytes is content that is already in memory.
type Bytes []byte

func (b Bytes) Content() ([]byte, error) { return b, nil }

// Reader reads worktree files by name.
type Reader interface {
	Read(name string) ([]byte, error)
}

// Backend persists repository mutations. Each method must apply all of its
// writes or none of them.
type Backend interface {
	SaveBlob(blob *object.Blob, name string) error
	RemoveIndexEntry(name string) error
	SaveCommit(tree *object.Tree, commit *object.Commit, update ReflogEntry) error
	Blob(id object.ID) (*object.Blob, error)
}

// RepoState is the position of a repository in its lifecycle.
type RepoState int

const (
	// Empty means master has never been set.
	Empty RepoState = iota
	Committed
)

func (s RepoState) String() string {
	if s == Committed {
		return "committed"
	}
	return "empty"
}

type Repository struct {
	objects *object.Arena
	index   *index.Index
	refs    *ref.Table
	reflog  []ReflogEntry
	backend Backend
	clock   func() time.Time
	logger  *zap.Logger
}

// New returns an empty repository with master unset and head aliasing it.
func New(opts ...Option) *Repository {
	r := &Repository{
		objects: object.NewArena(),
		index:   index.New(),
		refs:    ref.NewDefaultTable(),
		clock:   time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Stage records the content of name in the index. On failure the index is
// left unchanged and the error is a StagingFailure.
func (r *Repository) Stage(name string, content ContentProvider) error {
	if err := object.ValidName(name); err != nil {
		return errors.StagingFailure(name, errors.ValidationError(err.Error(), map[string]string{"name": name}))
	}

	data, err := content.Content()
	if err != nil {
		r.logger.Debug("staging failed", zap.String("name", name), zap.Error(err))
		return errors.StagingFailure(name, err)
	}

	blob := object.NewBlob(data)
	if current, ok := r.index.Lookup(name); ok && current == blob.ID {
		r.logger.Debug("already staged", zap.String("name", name), zap.String("blob", blob.ID.Short()))
		return nil
	}

	if r.backend != nil {
		if err := r.backend.SaveBlob(blob, name); err != nil {
			return errors.StagingFailure(name, errors.Internal("persisting blob", err))
		}
	}

	blob = r.objects.AddBlob(blob)
	r.index.Stage(name, blob.ID)

	r.logger.Debug("staged",
		zap.String("name", name),
		zap.String("blob", blob.ID.Short()),
		zap.Int("size", blob.Size()))
	return nil
}

// StageFile stages the worktree file name as read by rd.
func (r *Repository) StageFile(rd Reader, name string) error {
	return r.Stage(name, ContentFunc(func() ([]byte, error) {
		return rd.Read(name)
	}))
}

// Unstage removes name from the index.
func (r *Repository) Unstage(name string) error {
	if _, ok := r.index.Lookup(name); !ok {
		return errors.NotFound(fmt.Sprintf("not staged: %s", name))
	}

	if r.backend != nil {
		if err := r.backend.RemoveIndexEntry(name); err != nil {
			return errors.Internal("removing index entry", err)
		}
	}

	r.index.Remove(name)
	r.logger.Debug("unstaged", zap.String("name", name))
	return nil
}

// Commit snapshots the index into a tree, records a commit on top of the
// current master (or rooted at the tree itself for the first commit) and
// advances master to it.
func (r *Repository) Commit(message string) (object.ID, error) {
	if _, ok := r.refs.Get(ref.Master); !ok {
		return "", errors.Internal("committing", fmt.Errorf("reference %s is not defined", ref.Master))
	}

	tip, hasTip, err := r.tip()
	if err != nil {
		r.logger.Error("resolving master", zap.Error(err))
		return "", fmt.Errorf("committing: %w", err)
	}

	tree := object.NewTreeFromEntries(r.index.Snapshot())

	parent := object.RootParent(tree.ID)
	if hasTip {
		parent = object.CommitParent(tip)
	}

	commit := object.NewCommit(tree.ID, message, parent, r.clock())
	update := ReflogEntry{
		Ref:       ref.Master,
		Old:       tip,
		New:       commit.ID,
		Timestamp: commit.Timestamp,
		Reason:    commitReason(message, !hasTip),
	}

	if r.backend != nil {
		if err := r.backend.SaveCommit(tree, commit, update); err != nil {
			return "", errors.Internal("persisting commit", err)
		}
	}

	r.objects.AddTree(tree)
	r.objects.AddCommit(commit)
	if err := r.refs.Retarget(ref.Master, ref.ToCommit(commit.ID)); err != nil {
		return "", fmt.Errorf("advancing %s: %w", ref.Master, err)
	}
	r.reflog = append(r.reflog, update)

	r.logger.Info("committed",
		zap.String("commit", commit.ID.Short()),
		zap.String("tree", tree.ID.Short()),
		zap.String("parent", parent.String()),
		zap.Int("entries", len(tree.Entries)))
	return commit.ID, nil
}

// tip returns the commit master resolves to. An unset master is not an
// error: it means no commit exists yet.
func (r *Repository) tip() (object.ID, bool, error) {
	master, ok := r.refs.Get(ref.Master)
	if !ok || master.Target.IsUnset() {
		return "", false, nil
	}
	id, err := r.refs.Resolve(ref.Master)
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// CurrentCommit returns the commit master points at, if any. A master that
// fails to resolve, such as one caught in a reference cycle, is logged and
// reported as no commit; use Tip to tell the two apart.
func (r *Repository) CurrentCommit() (object.ID, bool) {
	id, ok, err := r.tip()
	if err != nil {
		r.logger.Error("resolving master", zap.Error(err))
		return "", false
	}
	return id, ok
}

// Tip is CurrentCommit with resolution errors returned instead of logged.
// An unset master yields ok == false and a nil error.
func (r *Repository) Tip() (id object.ID, ok bool, err error) {
	return r.tip()
}

// State reports Empty until master holds a commit. A master that does not
// resolve is an error, never Empty.
func (r *Repository) State() (RepoState, error) {
	_, ok, err := r.tip()
	if err != nil {
		return Empty, err
	}
	if ok {
		return Committed, nil
	}
	return Empty, nil
}

// Head resolves the head reference.
func (r *Repository) Head() (object.ID, error) {
	return r.refs.Resolve(ref.Head)
}

// Reference returns the reference named label.
func (r *Repository) Reference(label string) (ref.Reference, bool) {
	return r.refs.Get(label)
}

// References returns all references sorted by label.
func (r *Repository) References() []ref.Reference {
	labels := r.refs.Labels()
	out := make([]ref.Reference, 0, len(labels))
	for _, label := range labels {
		rf, _ := r.refs.Get(label)
		out = append(out, rf)
	}
	return out
}

// Index returns the staged entries sorted by name.
func (r *Repository) Index() []object.TreeEntry {
	return r.index.Snapshot()
}

// Staged returns the blob staged for name.
func (r *Repository) Staged(name string) (object.ID, bool) {
	return r.index.Lookup(name)
}

// Blob returns a blob from memory or, failing that, from the backend.
func (r *Repository) Blob(id object.ID) (*object.Blob, error) {
	if b, ok := r.objects.Blob(id); ok {
		return b, nil
	}
	if r.backend != nil {
		b, err := r.backend.Blob(id)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, errors.ErrorTypeNotFound) {
			return nil, fmt.Errorf("loading blob %s: %w", id.Short(), err)
		}
	}
	return nil, errors.NotFound(fmt.Sprintf("blob not found: %s", id))
}

func (r *Repository) Tree(id object.ID) (*object.Tree, error) {
	if t, ok := r.objects.Tree(id); ok {
		return t, nil
	}
	return nil, errors.NotFound(fmt.Sprintf("tree not found: %s", id))
}

// LookupCommit returns the commit with the given ID.
func (r *Repository) LookupCommit(id object.ID) (*object.Commit, error) {
	if c, ok := r.objects.Commit(id); ok {
		return c, nil
	}
	return nil, errors.NotFound(fmt.Sprintf("commit not found: %s", id))
}

// Stats reports how many objects the repository holds in memory.
func (r *Repository) Stats() (blobs, trees, commits int) {
	return r.objects.Counts()
}
