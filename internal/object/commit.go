package object

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParentKind distinguishes the two forms of ParentRef.
type ParentKind int

const (
	// ParentRoot marks the first commit, whose parent is its own tree.
	ParentRoot ParentKind = iota + 1
	// ParentCommit links to a previous commit.
	ParentCommit
)

func (k ParentKind) String() string {
	switch k {
	case ParentRoot:
		return "root"
	case ParentCommit:
		return "commit"
	default:
		return "unknown"
	}
}

// ParentRef is the parent of a commit: a previous commit, or for the first
// commit in a history, the tree it snapshots.
type ParentRef struct {
	kind ParentKind
	id   ID
}

// CommitParent refers to a previous commit.
func CommitParent(id ID) ParentRef {
	return ParentRef{kind: ParentCommit, id: id}
}

// RootParent refers to the initial tree of a history.
func RootParent(treeID ID) ParentRef {
	return ParentRef{kind: ParentRoot, id: treeID}
}

// Kind reports which form p takes.
func (p ParentRef) Kind() ParentKind { return p.kind }

// ID is the identifier that enters the commit hash.
func (p ParentRef) ID() ID { return p.id }

// IsRoot reports whether p ends the ancestry chain.
func (p ParentRef) IsRoot() bool { return p.kind == ParentRoot }

// CommitID returns the parent commit, if any.
func (p ParentRef) CommitID() (ID, bool) {
	if p.kind != ParentCommit {
		return "", false
	}
	return p.id, true
}

func (p ParentRef) String() string {
	return fmt.Sprintf("%s(%s)", p.kind, p.id.Short())
}

type parentJSON struct {
	Kind string `json:"kind"`
	ID   ID     `json:"id"`
}

func (p ParentRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(parentJSON{Kind: p.kind.String(), ID: p.id})
}

func (p *ParentRef) UnmarshalJSON(data []byte) error {
	var raw parentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Kind {
	case "root":
		*p = RootParent(raw.ID)
	case "commit":
		*p = CommitParent(raw.ID)
	default:
		return fmt.Errorf("unknown parent kind %q", raw.Kind)
	}
	return nil
}

// Commit links a tree into the history chain.
type Commit struct {
	ID        ID        `json:"id"`
	TreeID    ID        `json:"tree_id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Parent    ParentRef `json:"parent"`
}

// NewCommit creates a commit made at the given time.
func NewCommit(treeID ID, message string, parent ParentRef, at time.Time) *Commit {
	c := &Commit{
		TreeID:    treeID,
		Message:   message,
		Timestamp: at.UTC(),
		Parent:    parent,
	}
	c.ID = Hash(c.HashInput())
	return c
}

// HashInput is message, timestamp, tree ID and parent ID concatenated in that
// order. The timestamp is rendered as decimal Unix nanoseconds. Changing this
// layout changes every commit ID.
func (c *Commit) HashInput() []byte {
	var b strings.Builder
	b.WriteString(c.Message)
	b.WriteString(strconv.FormatInt(c.Timestamp.UnixNano(), 10))
	b.WriteString(string(c.TreeID))
	b.WriteString(string(c.Parent.ID()))
	return []byte(b.String())
}

// Verify recomputes the commit ID from its fields.
func (c *Commit) Verify() error {
	if got := Hash(c.HashInput()); got != c.ID {
		return fmt.Errorf("commit %s: metadata hashes to %s", c.ID.Short(), got.Short())
	}
	return nil
}
