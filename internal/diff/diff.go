// internal/diff/diff.go
package diff

import (
	"github.com/pmezard/go-difflib/difflib"
)

// DiffResult is a unified diff of two versions of one file.
type DiffResult struct {
	Unified string
	Stats   struct {
		Additions int
		Deletions int
		Changes   int
	}
}

// Engine provides diffing capabilities
type Engine struct {
	contextLines int
}

// NewEngine creates a new diff engine with specified context lines
func NewEngine(contextLines int) *Engine {
	if contextLines < 0 {
		contextLines = 0
	}
	return &Engine{
		contextLines: contextLines,
	}
}

// Diff compares oldContent, labelled oldName, with newContent.
func (e *Engine) Diff(oldName, newName string, oldContent, newContent []byte) (*DiffResult, error) {
	a := difflib.SplitLines(string(oldContent))
	b := difflib.SplitLines(string(newContent))

	unified, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        a,
		B:        b,
		FromFile: oldName,
		ToFile:   newName,
		Context:  e.contextLines,
	})
	if err != nil {
		return nil, err
	}

	result := &DiffResult{Unified: unified}
	for _, op := range difflib.NewMatcher(a, b).GetOpCodes() {
		switch op.Tag {
		case 'r':
			result.Stats.Deletions += op.I2 - op.I1
			result.Stats.Additions += op.J2 - op.J1
		case 'd':
			result.Stats.Deletions += op.I2 - op.I1
		case 'i':
			result.Stats.Additions += op.J2 - op.J1
		}
	}
	result.Stats.Changes = result.Stats.Additions + result.Stats.Deletions

	return result, nil
}

// Empty reports whether the two versions were identical.
func (r *DiffResult) Empty() bool {
	return r.Stats.Changes == 0
}

// Format returns the unified diff text.
func (r *DiffResult) Format() string {
	return r.Unified
}
