// Package worktree adapts the working directory to the repository: it reads
// file bytes, lists stageable files and watches for edits.
package worktree

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"twig/internal/errors"
)

// MetaDir is the directory holding repository state inside a worktree.
const MetaDir = ".twig"

// FSReader reads files relative to Root.
type FSReader struct {
	Root string
}

func NewFSReader(root string) *FSReader {
	return &FSReader{Root: root}
}

// Read returns the bytes of the file at name. Any failure, including a name
// that escapes Root, is a FileRead error.
func (r *FSReader) Read(name string) ([]byte, error) {
	absPath, err := r.abs(name)
	if err != nil {
		return nil, errors.FileRead(name, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, errors.FileRead(name, err)
	}
	if info.IsDir() {
		return nil, errors.FileRead(name, fmt.Errorf("is a directory"))
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, errors.FileRead(name, err)
	}
	return content, nil
}

// Exists reports whether name is a regular file in the worktree.
func (r *FSReader) Exists(name string) bool {
	absPath, err := r.abs(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(absPath)
	return err == nil && !info.IsDir()
}

func (r *FSReader) abs(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path outside worktree")
	}
	return filepath.Join(r.Root, clean), nil
}

// Rel converts a path on disk to a worktree name.
func Rel(root, path string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("getting absolute root: %w", err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("getting absolute path: %w", err)
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return "", fmt.Errorf("getting relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the worktree %s", path, root)
	}
	return filepath.ToSlash(rel), nil
}

// ShouldIgnore reports whether a worktree name is excluded from staging.
func ShouldIgnore(name string) bool {
	if name == "" || name == "." {
		return true
	}

	for _, part := range strings.Split(filepath.ToSlash(name), "/") {
		if part == "" {
			continue
		}

		// Hidden files and directories, including MetaDir
		if strings.HasPrefix(part, ".") {
			return true
		}

		switch part {
		case "node_modules", "vendor":
			return true
		}
	}

	return false
}

// Walk returns the names of all stageable files under dir, sorted.
func Walk(root, dir string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		name, err := Rel(root, path)
		if err != nil {
			return err
		}
		if name != "." && ShouldIgnore(name) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}

	sort.Strings(names)
	return names, nil
}
