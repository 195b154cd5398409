// Package shared holds the types exchanged between the server, the client
// and the CLI.
package shared

import "time"

// Change types reported by status.
const (
	ChangeAdded     = "added"
	ChangeModified  = "modified"
	ChangeDeleted   = "deleted"
	ChangeUntracked = "untracked"
)

// Change describes how one file differs between HEAD, the index and the
// worktree. Staged changes compare the index with HEAD; the rest compare the
// worktree with the index.
type Change struct {
	Path    string `json:"path"`
	Type    string `json:"type"`
	OldHash string `json:"old_hash,omitempty"`
	NewHash string `json:"new_hash,omitempty"`
	Staged  bool   `json:"staged"`
}

// StageRequest stages Content under Name. Content is base64 in JSON.
type StageRequest struct {
	Name    string `json:"name"`
	Content []byte `json:"content"`
}

type CommitRequest struct {
	Message string `json:"message"`
}

type IndexEntry struct {
	Name   string `json:"name"`
	BlobID string `json:"blob_id"`
}

type CommitView struct {
	ID         string    `json:"id"`
	TreeID     string    `json:"tree_id"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
	ParentKind string    `json:"parent_kind"`
	ParentID   string    `json:"parent_id"`
}

type TreeView struct {
	ID      string       `json:"id"`
	Entries []IndexEntry `json:"entries"`
}

type BlobView struct {
	ID      string `json:"id"`
	Size    int    `json:"size"`
	Content []byte `json:"content"`
}

type RefView struct {
	Label  string `json:"label"`
	Target string `json:"target"`
}

type HeadView struct {
	Commit string    `json:"commit,omitempty"`
	State  string    `json:"state"`
	Refs   []RefView `json:"refs"`
}

type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}
