package storage

import (
	"testing"
	"time"

	"twig/internal/errors"
	"twig/internal/object"
	"twig/internal/ref"
	"twig/internal/repository"
	"twig/internal/safe"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *badger.DB {
	t.Helper()

	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil // Disable logging for tests
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func setupRepoStore(t *testing.T) *RepoStore {
	t.Helper()

	db := setupTestDB(t)
	s, err := safe.New(db, safe.Options{Root: t.TempDir()})
	require.NoError(t, err)
	return NewRepoStore(db, s)
}

type note struct {
	ID   string `json:"id"`
	Body string `json:"body"`
}

func (n note) GetID() string { return n.ID }

func TestBadgerStore(t *testing.T) {
	store := NewBadgerStore(setupTestDB(t), "note")

	t.Run("Create", func(t *testing.T) {
		require.NoError(t, store.Create(note{ID: "a", Body: "first"}))
		assert.Error(t, store.Create(note{ID: "a", Body: "again"}))
		assert.Error(t, store.Create(note{}))
	})

	t.Run("Get", func(t *testing.T) {
		var n note
		require.NoError(t, store.Get("a", &n))
		assert.Equal(t, "first", n.Body)

		err := store.Get("missing", &n)
		assert.True(t, errors.Is(err, errors.ErrorTypeNotFound))
	})

	t.Run("Update", func(t *testing.T) {
		require.NoError(t, store.Update(note{ID: "a", Body: "edited"}))
		err := store.Update(note{ID: "b"})
		assert.True(t, errors.Is(err, errors.ErrorTypeNotFound))
	})

	t.Run("List and Keys", func(t *testing.T) {
		require.NoError(t, store.Put(note{ID: "c", Body: "third"}))

		var notes []note
		require.NoError(t, store.List(&notes))
		assert.Equal(t, []note{{ID: "a", Body: "edited"}, {ID: "c", Body: "third"}}, notes)

		keys, err := store.Keys()
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "c"}, keys)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete("a"))
		err := store.Delete("a")
		assert.True(t, errors.Is(err, errors.ErrorTypeNotFound))
	})
}

func TestRepoStore_RoundTrip(t *testing.T) {
	rs := setupRepoStore(t)

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := repository.New(
		repository.WithBackend(rs),
		repository.WithClock(func() time.Time {
			at = at.Add(time.Second)
			return at
		}),
	)

	require.NoError(t, repo.Stage("a.txt", repository.Bytes("alpha")))
	require.NoError(t, repo.Stage("b.txt", repository.Bytes("beta")))
	first, err := repo.Commit("first")
	require.NoError(t, err)

	require.NoError(t, repo.Stage("a.txt", repository.Bytes("alpha 2")))
	require.NoError(t, repo.Unstage("b.txt"))
	second, err := repo.Commit("second")
	require.NoError(t, err)

	state, err := rs.Load()
	require.NoError(t, err)
	assert.Len(t, state.Commits, 2)
	assert.Len(t, state.Trees, 2)
	assert.Equal(t, map[string]object.ID{"a.txt": object.Hash([]byte("alpha 2"))}, state.Index)
	require.Len(t, state.Reflog, 2)
	assert.Equal(t, first, state.Reflog[0].New)
	assert.Equal(t, second, state.Reflog[1].New)
	assert.Equal(t, first, state.Reflog[1].Old)

	// head is not persisted by commits, so the restored table keeps its default.
	restored := repository.New(repository.WithBackend(rs), repository.WithState(state))
	tip, ok := restored.CurrentCommit()
	require.True(t, ok)
	assert.Equal(t, second, tip)

	head, err := restored.Head()
	require.NoError(t, err)
	assert.Equal(t, second, head)

	var messages []string
	for c, err := range restored.History() {
		require.NoError(t, err)
		messages = append(messages, c.Message)
	}
	assert.Equal(t, []string{"second", "first"}, messages)

	// Blob content is loaded lazily through the safe.
	b, err := restored.Blob(object.Hash([]byte("beta")))
	require.NoError(t, err)
	assert.Equal(t, []byte("beta"), b.Content)
}

func TestRepoStore_Blob(t *testing.T) {
	rs := setupRepoStore(t)

	_, err := rs.Blob(object.Hash([]byte("nothing")))
	assert.True(t, errors.Is(err, errors.ErrorTypeNotFound))

	_, err = rs.Blob("zz")
	assert.True(t, errors.Is(err, errors.ErrorTypeValidation))

	blob := object.NewBlob([]byte("payload"))
	require.NoError(t, rs.SaveBlob(blob, "p.txt"))
	got, err := rs.Blob(blob.ID)
	require.NoError(t, err)
	assert.Equal(t, blob.Content, got.Content)
}

func TestRepoStore_SaveRef(t *testing.T) {
	rs := setupRepoStore(t)

	require.NoError(t, rs.SaveRef(ref.Reference{Label: ref.Master, Target: ref.Unset()}))
	require.NoError(t, rs.SaveRef(ref.Reference{Label: ref.Head, Target: ref.ToAlias(ref.Master)}))

	state, err := rs.Load()
	require.NoError(t, err)
	require.Len(t, state.Refs, 2)
	assert.Equal(t, ref.Head, state.Refs[0].Label)
	assert.Equal(t, ref.TargetAlias, state.Refs[0].Target.Kind())
	assert.True(t, state.Refs[1].Target.IsUnset())
}

func TestRepoStore_RemoveIndexEntry(t *testing.T) {
	rs := setupRepoStore(t)

	require.NoError(t, rs.SaveBlob(object.NewBlob([]byte("x")), "x.txt"))
	require.NoError(t, rs.RemoveIndexEntry("x.txt"))
	// Removing again is not an error.
	require.NoError(t, rs.RemoveIndexEntry("x.txt"))

	state, err := rs.Load()
	require.NoError(t, err)
	assert.Empty(t, state.Index)
}
