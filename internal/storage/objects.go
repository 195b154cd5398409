// internal/storage/objects.go
package storage

import (
	"fmt"
	"strings"

	"twig/internal/errors"
	"twig/internal/object"
	"twig/internal/ref"
	"twig/internal/repository"
	"twig/internal/safe"

	"github.com/dgraph-io/badger/v4"
)

const (
	prefixTree   = "tree"
	prefixCommit = "commit"
	prefixRef    = "ref"
	prefixIndex  = "index"
	prefixReflog = "reflog"
)

type treeRecord struct {
	*object.Tree
}

func (t treeRecord) GetID() string { return string(t.ID) }

type commitRecord struct {
	*object.Commit
}

func (c commitRecord) GetID() string { return string(c.ID) }

type refRecord struct {
	Label  string     `json:"label"`
	Target ref.Target `json:"target"`
}

func (r refRecord) GetID() string { return r.Label }

type indexRecord struct {
	Name   string    `json:"name"`
	BlobID object.ID `json:"blob_id"`
}

func (i indexRecord) GetID() string { return i.Name }

type reflogRecord struct {
	Seq uint64 `json:"seq"`
	repository.ReflogEntry
}

// Sequence numbers are zero padded so key order matches append order.
func (r reflogRecord) GetID() string { return fmt.Sprintf("%s:%020d", r.Ref, r.Seq) }

// RepoStore persists a repository in badger. Blob bytes go to the safe;
// everything else is a JSON record under its own key prefix.
type RepoStore struct {
	db      *badger.DB
	safe    *safe.Safe
	trees   *BadgerStore
	commits *BadgerStore
	refs    *BadgerStore
	index   *BadgerStore
	reflog  *BadgerStore
}

var _ repository.Backend = (*RepoStore)(nil)

func NewRepoStore(db *badger.DB, s *safe.Safe) *RepoStore {
	return &RepoStore{
		db:      db,
		safe:    s,
		trees:   NewBadgerStore(db, prefixTree),
		commits: NewBadgerStore(db, prefixCommit),
		refs:    NewBadgerStore(db, prefixRef),
		index:   NewBadgerStore(db, prefixIndex),
		reflog:  NewBadgerStore(db, prefixReflog),
	}
}

// SaveBlob stores the blob content and points the index entry name at it.
func (s *RepoStore) SaveBlob(blob *object.Blob, name string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		id, err := s.safe.StoreTxn(txn, blob.Content)
		if err != nil {
			return fmt.Errorf("storing content: %w", err)
		}
		if id != blob.ID {
			return fmt.Errorf("content hash mismatch: got %s, want %s", id.Short(), blob.ID.Short())
		}
		return s.index.PutTxn(txn, indexRecord{Name: name, BlobID: blob.ID})
	})
}

func (s *RepoStore) RemoveIndexEntry(name string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return s.index.DeleteTxn(txn, name)
	})
}

// SaveCommit writes tree, commit, the new master target and its reflog entry
// in a single transaction.
func (s *RepoStore) SaveCommit(tree *object.Tree, commit *object.Commit, update repository.ReflogEntry) error {
	seq, err := s.nextReflogSeq(update.Ref)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := s.trees.PutTxn(txn, treeRecord{tree}); err != nil {
			return fmt.Errorf("saving tree: %w", err)
		}
		if err := s.commits.PutTxn(txn, commitRecord{commit}); err != nil {
			return fmt.Errorf("saving commit: %w", err)
		}
		target := refRecord{Label: update.Ref, Target: ref.ToCommit(update.New)}
		if err := s.refs.PutTxn(txn, target); err != nil {
			return fmt.Errorf("saving reference: %w", err)
		}
		if err := s.reflog.PutTxn(txn, reflogRecord{Seq: seq, ReflogEntry: update}); err != nil {
			return fmt.Errorf("saving reflog: %w", err)
		}
		return nil
	})
}

// SaveRef writes a reference outside of any commit.
func (s *RepoStore) SaveRef(rf ref.Reference) error {
	return s.refs.Put(refRecord{Label: rf.Label, Target: rf.Target})
}

func (s *RepoStore) nextReflogSeq(label string) (uint64, error) {
	keys, err := s.reflog.Keys()
	if err != nil {
		return 0, err
	}
	var n uint64
	for _, k := range keys {
		if strings.HasPrefix(k, label+":") {
			n++
		}
	}
	return n, nil
}

// Blob loads blob content from the safe.
func (s *RepoStore) Blob(id object.ID) (*object.Blob, error) {
	content, err := s.safe.Get(id)
	if err != nil {
		if err == safe.ErrContentNotFound {
			return nil, errors.NotFound(fmt.Sprintf("blob not found: %s", id))
		}
		if err == safe.ErrInvalidHash {
			return nil, errors.ValidationError("invalid blob id", map[string]string{"id": string(id)})
		}
		return nil, err
	}
	return object.NewBlob(content), nil
}

// Load reads everything but blob content back into a repository.State.
// Stored trees and commits are checked against their IDs.
func (s *RepoStore) Load() (*repository.State, error) {
	state := &repository.State{Index: map[string]object.ID{}}

	var trees []*object.Tree
	if err := s.trees.List(&trees); err != nil {
		return nil, err
	}
	for _, t := range trees {
		if err := t.Verify(); err != nil {
			return nil, errors.Internal("loading trees", err)
		}
	}
	state.Trees = trees

	var commits []*object.Commit
	if err := s.commits.List(&commits); err != nil {
		return nil, err
	}
	for _, c := range commits {
		if err := c.Verify(); err != nil {
			return nil, errors.Internal("loading commits", err)
		}
	}
	state.Commits = commits

	var refs []refRecord
	if err := s.refs.List(&refs); err != nil {
		return nil, err
	}
	for _, r := range refs {
		state.Refs = append(state.Refs, ref.Reference{Label: r.Label, Target: r.Target})
	}

	var entries []indexRecord
	if err := s.index.List(&entries); err != nil {
		return nil, err
	}
	for _, e := range entries {
		state.Index[e.Name] = e.BlobID
	}

	var log []reflogRecord
	if err := s.reflog.List(&log); err != nil {
		return nil, err
	}
	for _, e := range log {
		state.Reflog = append(state.Reflog, e.ReflogEntry)
	}

	return state, nil
}
