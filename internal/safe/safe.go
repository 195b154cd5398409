// internal/safe/safe.go
package safe

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"twig/internal/object"

	"github.com/dgraph-io/badger/v4"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	ErrContentNotFound = errors.New("content not found")
	ErrInvalidHash     = errors.New("invalid content hash")
)

const metaPrefix = "content:"

// ContentMeta stores metadata about stored content
type ContentMeta struct {
	Hash      object.ID `json:"hash"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Safe stores blob content once per hash: bytes in files under Root, metadata
// in badger, recently used content in an LRU cache.
type Safe struct {
	root  string
	db    *badger.DB
	cache *lru.Cache[object.ID, []byte]
}

// Options configures Safe behavior
type Options struct {
	Root      string // Root directory path
	CacheSize int    // Number of items to cache
}

// New creates a new Safe instance
func New(db *badger.DB, opts Options) (*Safe, error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("root directory is required")
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 1000
	}

	// Create content directory if it doesn't exist
	if err := os.MkdirAll(opts.Root, 0755); err != nil {
		return nil, fmt.Errorf("creating root directory: %w", err)
	}

	cache, err := lru.New[object.ID, []byte](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	return &Safe{
		root:  opts.Root,
		db:    db,
		cache: cache,
	}, nil
}

// Store saves content and returns its hash
func (s *Safe) Store(content []byte) (object.ID, error) {
	var hash object.ID
	err := s.db.Update(func(txn *badger.Txn) error {
		var err error
		hash, err = s.StoreTxn(txn, content)
		return err
	})
	if err != nil {
		return "", err
	}
	return hash, nil
}

// StoreTxn writes the content file if it is new and records its metadata in
// txn. The file write is idempotent, so an aborted txn leaves at most an
// unreferenced file behind. The cache is only filled by Get, which sees
// committed metadata alone.
func (s *Safe) StoreTxn(txn *badger.Txn, content []byte) (object.ID, error) {
	if content == nil {
		content = []byte{}
	}
	hash := object.Hash(content)

	meta, err := s.getMetaTxn(txn, hash)
	switch {
	case err == nil:
		return hash, nil
	case !errors.Is(err, ErrContentNotFound):
		return "", fmt.Errorf("checking existence: %w", err)
	}

	if err := s.writeFile(hash, content); err != nil {
		return "", err
	}

	meta = ContentMeta{
		Hash:      hash,
		Size:      int64(len(content)),
		CreatedAt: time.Now(),
	}
	if err := s.storeMetaTxn(txn, meta); err != nil {
		return "", fmt.Errorf("storing metadata: %w", err)
	}
	return hash, nil
}

func (s *Safe) writeFile(hash object.ID, content []byte) error {
	contentPath := s.contentPath(hash)
	if _, err := os.Stat(contentPath); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(contentPath), 0755); err != nil {
		return fmt.Errorf("creating content directory: %w", err)
	}

	// Write to a temp file and rename so readers never see partial content.
	tmp, err := os.CreateTemp(filepath.Dir(contentPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing content file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing content file: %w", err)
	}
	if err := os.Rename(tmpName, contentPath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming content file: %w", err)
	}
	return nil
}

// Get retrieves content by hash
func (s *Safe) Get(hash object.ID) ([]byte, error) {
	if _, err := object.ParseID(string(hash)); err != nil {
		return nil, ErrInvalidHash
	}

	// Check cache first
	if content, ok := s.cache.Get(hash); ok {
		return content, nil
	}

	if _, err := s.getMeta(hash); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(s.contentPath(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrContentNotFound
		}
		return nil, fmt.Errorf("reading content: %w", err)
	}

	if object.Hash(content) != hash {
		return nil, fmt.Errorf("content hash mismatch for %s", hash.Short())
	}

	s.cache.Add(hash, content)
	return content, nil
}

// Exists checks if content exists
func (s *Safe) Exists(hash object.ID) (bool, error) {
	if _, err := object.ParseID(string(hash)); err != nil {
		return false, ErrInvalidHash
	}

	if s.cache.Contains(hash) {
		return true, nil
	}

	_, err := s.getMeta(hash)
	if err != nil {
		if errors.Is(err, ErrContentNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Verify checks content integrity on disk, bypassing the cache.
func (s *Safe) Verify(hash object.ID) error {
	s.cache.Remove(hash)
	_, err := s.Get(hash)
	return err
}

// Meta returns the stored metadata for hash.
func (s *Safe) Meta(hash object.ID) (ContentMeta, error) {
	return s.getMeta(hash)
}

func (s *Safe) contentPath(hash object.ID) string {
	return filepath.Join(s.root, string(hash[:2]), string(hash[2:]))
}

func metaKey(hash object.ID) []byte {
	return []byte(metaPrefix + string(hash))
}

func (s *Safe) storeMetaTxn(txn *badger.Txn, meta ContentMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return txn.Set(metaKey(meta.Hash), data)
}

func (s *Safe) getMetaTxn(txn *badger.Txn, hash object.ID) (ContentMeta, error) {
	var meta ContentMeta

	item, err := txn.Get(metaKey(hash))
	if err == badger.ErrKeyNotFound {
		return meta, ErrContentNotFound
	}
	if err != nil {
		return meta, err
	}

	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &meta)
	})
	return meta, err
}

func (s *Safe) getMeta(hash object.ID) (ContentMeta, error) {
	var meta ContentMeta
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		meta, err = s.getMetaTxn(txn, hash)
		return err
	})
	return meta, err
}
