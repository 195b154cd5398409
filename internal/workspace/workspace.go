// internal/workspace/workspace.go
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"twig/internal/ref"
	"twig/internal/repository"
	"twig/internal/safe"
	"twig/internal/storage"
	"twig/internal/worktree"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

var ErrNotWorkspace = errors.New("workspace root not found")

// Workspace is a worktree together with its on-disk repository.
type Workspace struct {
	Root   string
	DB     *badger.DB
	Safe   *safe.Safe
	Store  *storage.RepoStore
	Repo   *repository.Repository
	Reader *worktree.FSReader
	Logger *zap.Logger
}

// Options configures Open.
type Options struct {
	CacheSize int // Number of blobs the safe keeps in memory
}

func metaPath(root string, elem ...string) string {
	return filepath.Join(append([]string{root, worktree.MetaDir}, elem...)...)
}

func openDB(path string) (*badger.DB, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	opts := badger.DefaultOptions(path).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// Init creates the metadata directory under root and records the default
// references: master unset, head aliasing master.
func Init(root string) error {
	if _, err := os.Stat(metaPath(root)); err == nil {
		return fmt.Errorf("already initialized: %s", metaPath(root))
	}

	dirs := []string{
		metaPath(root, "db"),
		metaPath(root, "content"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	db, err := openDB(metaPath(root, "db"))
	if err != nil {
		return err
	}
	defer db.Close()

	s, err := safe.New(db, safe.Options{Root: metaPath(root, "content")})
	if err != nil {
		return fmt.Errorf("initializing safe: %w", err)
	}
	store := storage.NewRepoStore(db, s)
	for _, rf := range []ref.Reference{
		{Label: ref.Master, Target: ref.Unset()},
		{Label: ref.Head, Target: ref.ToAlias(ref.Master)},
	} {
		if err := store.SaveRef(rf); err != nil {
			return fmt.Errorf("saving reference %s: %w", rf.Label, err)
		}
	}
	return nil
}

// Open loads the repository stored under root.
func Open(root string, logger *zap.Logger, opts Options) (*Workspace, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(metaPath(absRoot)); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotWorkspace, absRoot)
	}

	db, err := openDB(metaPath(absRoot, "db"))
	if err != nil {
		return nil, err
	}

	s, err := safe.New(db, safe.Options{Root: metaPath(absRoot, "content"), CacheSize: opts.CacheSize})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing safe: %w", err)
	}

	store := storage.NewRepoStore(db, s)
	state, err := store.Load()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("loading repository: %w", err)
	}

	repo := repository.New(
		repository.WithLogger(logger),
		repository.WithBackend(store),
		repository.WithState(state),
	)

	blobs, trees, commits := repo.Stats()
	logger.Debug("opened workspace",
		zap.String("root", absRoot),
		zap.Int("blobs", blobs),
		zap.Int("trees", trees),
		zap.Int("commits", commits),
		zap.Int("staged", len(state.Index)))

	return &Workspace{
		Root:   absRoot,
		DB:     db,
		Safe:   s,
		Store:  store,
		Repo:   repo,
		Reader: worktree.NewFSReader(absRoot),
		Logger: logger,
	}, nil
}

// FindRoot searches startDir and its parents for a worktree.
func FindRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if info, err := os.Stat(metaPath(dir)); err == nil && info.IsDir() {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", ErrNotWorkspace
}

// Add stages the files at paths. A directory, including ".", stages every
// file beneath it. It returns the names staged before any failure.
func (w *Workspace) Add(paths []string) ([]string, error) {
	var names []string
	for _, p := range paths {
		abs := p
		if !filepath.IsAbs(abs) {
			var err error
			if abs, err = filepath.Abs(p); err != nil {
				return nil, err
			}
		}

		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			found, err := worktree.Walk(w.Root, abs)
			if err != nil {
				return nil, err
			}
			names = append(names, found...)
			continue
		}

		name, err := worktree.Rel(w.Root, abs)
		if err != nil {
			return nil, err
		}
		if worktree.ShouldIgnore(name) {
			w.Logger.Debug("ignoring path", zap.String("name", name))
			continue
		}
		names = append(names, name)
	}

	staged := make([]string, 0, len(names))
	for _, name := range names {
		if err := w.Repo.StageFile(w.Reader, name); err != nil {
			return staged, err
		}
		staged = append(staged, name)
	}

	w.Logger.Info("staged paths", zap.Int("count", len(staged)))
	return staged, nil
}

// Close releases the database.
func (w *Workspace) Close() error {
	if w == nil || w.DB == nil {
		return nil
	}
	db := w.DB
	w.DB = nil
	if err := db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}
