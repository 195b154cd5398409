package safe

import (
	"os"
	"path/filepath"
	"testing"

	"twig/internal/object"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestSafe(t *testing.T) (*Safe, *badger.DB, string) {
	t.Helper()

	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil // Disable logging for tests
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	root := t.TempDir()
	s, err := New(db, Options{Root: root, CacheSize: 8})
	require.NoError(t, err)
	return s, db, root
}

func TestSafe(t *testing.T) {
	s, _, root := setupTestSafe(t)

	t.Run("Store and Get", func(t *testing.T) {
		content := []byte("hello")
		hash, err := s.Store(content)
		require.NoError(t, err)
		assert.Equal(t, object.Hash(content), hash)

		got, err := s.Get(hash)
		require.NoError(t, err)
		assert.Equal(t, content, got)

		_, err = os.Stat(filepath.Join(root, string(hash[:2]), string(hash[2:])))
		assert.NoError(t, err)
	})

	t.Run("Duplicate content is stored once", func(t *testing.T) {
		content := []byte("twice")
		h1, err := s.Store(content)
		require.NoError(t, err)
		first, err := s.Meta(h1)
		require.NoError(t, err)

		h2, err := s.Store(content)
		require.NoError(t, err)
		assert.Equal(t, h1, h2)

		second, err := s.Meta(h1)
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Equal(t, int64(len(content)), second.Size)
	})

	t.Run("Empty content", func(t *testing.T) {
		hash, err := s.Store(nil)
		require.NoError(t, err)
		assert.Equal(t, object.Hash(nil), hash)

		got, err := s.Get(hash)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("Missing content", func(t *testing.T) {
		_, err := s.Get(object.Hash([]byte("never stored")))
		assert.ErrorIs(t, err, ErrContentNotFound)

		ok, err := s.Exists(object.Hash([]byte("never stored")))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Invalid hash", func(t *testing.T) {
		_, err := s.Get("not-a-hash")
		assert.ErrorIs(t, err, ErrInvalidHash)

		_, err = s.Exists("ABC")
		assert.ErrorIs(t, err, ErrInvalidHash)
	})
}

func TestSafe_VerifyDetectsCorruption(t *testing.T) {
	s, _, root := setupTestSafe(t)

	hash, err := s.Store([]byte("original"))
	require.NoError(t, err)
	require.NoError(t, s.Verify(hash))

	path := filepath.Join(root, string(hash[:2]), string(hash[2:]))
	require.NoError(t, os.WriteFile(path, []byte("tampered"), 0644))

	err = s.Verify(hash)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hash mismatch")
}

func TestSafe_AbortedTxnLeavesNothingVisible(t *testing.T) {
	s, db, _ := setupTestSafe(t)

	content := []byte("rolled back")
	err := db.Update(func(txn *badger.Txn) error {
		if _, err := s.StoreTxn(txn, content); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	hash := object.Hash(content)
	_, err = s.Meta(hash)
	assert.ErrorIs(t, err, ErrContentNotFound)

	ok, err := s.Exists(hash)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Get(hash)
	assert.ErrorIs(t, err, ErrContentNotFound)

	// A later committed store makes the content visible.
	_, err = s.Store(content)
	require.NoError(t, err)
	got, err := s.Get(hash)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestNew_RequiresRoot(t *testing.T) {
	_, err := New(nil, Options{})
	assert.Error(t, err)
}
