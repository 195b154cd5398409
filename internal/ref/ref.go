// Package ref implements named, mutable pointers into the commit history.
package ref

import (
	"encoding/json"
	"fmt"
	"sort"

	"twig/internal/errors"
	"twig/internal/object"
)

// MaxHops bounds alias resolution. Exceeding it means the table holds a cycle.
const MaxHops = 32

const (
	Master = "master"
	Head   = "head"
)

// TargetKind distinguishes the forms of Target.
type TargetKind int

const (
	TargetUnset TargetKind = iota
	TargetCommit
	TargetAlias
)

func (k TargetKind) String() string {
	switch k {
	case TargetCommit:
		return "commit"
	case TargetAlias:
		return "alias"
	default:
		return "unset"
	}
}

// Target is what a reference points at: nothing yet, a commit, or another
// reference by label.
type Target struct {
	kind   TargetKind
	commit object.ID
	alias  string
}

func Unset() Target                { return Target{} }
func ToCommit(id object.ID) Target { return Target{kind: TargetCommit, commit: id} }
func ToAlias(label string) Target  { return Target{kind: TargetAlias, alias: label} }
func (t Target) Kind() TargetKind  { return t.kind }
func (t Target) Commit() object.ID { return t.commit }
func (t Target) Alias() string     { return t.alias }
func (t Target) IsUnset() bool     { return t.kind == TargetUnset }

func (t Target) String() string {
	switch t.kind {
	case TargetCommit:
		return "commit " + t.commit.Short()
	case TargetAlias:
		return "alias " + t.alias
	default:
		return "unset"
	}
}

type targetJSON struct {
	Kind   string    `json:"kind"`
	Commit object.ID `json:"commit,omitempty"`
	Alias  string    `json:"alias,omitempty"`
}

func (t Target) MarshalJSON() ([]byte, error) {
	return json.Marshal(targetJSON{Kind: t.kind.String(), Commit: t.commit, Alias: t.alias})
}

func (t *Target) UnmarshalJSON(data []byte) error {
	var raw targetJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Kind {
	case "unset":
		*t = Unset()
	case "commit":
		*t = ToCommit(raw.Commit)
	case "alias":
		*t = ToAlias(raw.Alias)
	default:
		return fmt.Errorf("unknown target kind %q", raw.Kind)
	}
	return nil
}

// Reference is a labeled pointer.
type Reference struct {
	Label  string `json:"label"`
	Target Target `json:"target"`
}

// Table holds the references of one repository.
type Table struct {
	refs map[string]*Reference
}

func NewTable() *Table {
	return &Table{refs: make(map[string]*Reference)}
}

// NewDefaultTable returns a table with an unset master and head aliasing it.
func NewDefaultTable() *Table {
	t := NewTable()
	t.Define(Master, Unset())
	t.Define(Head, ToAlias(Master))
	return t
}

// Define creates or replaces the reference named label.
func (t *Table) Define(label string, target Target) {
	t.refs[label] = &Reference{Label: label, Target: target}
}

// Get returns a copy of the reference named label.
func (t *Table) Get(label string) (Reference, bool) {
	r, ok := t.refs[label]
	if !ok {
		return Reference{}, false
	}
	return *r, true
}

// Retarget rebinds an existing reference.
func (t *Table) Retarget(label string, target Target) error {
	r, ok := t.refs[label]
	if !ok {
		return errors.NotFound(fmt.Sprintf("reference not found: %s", label))
	}
	r.Target = target
	return nil
}

// Resolve follows aliases from label until a commit is reached.
func (t *Table) Resolve(label string) (object.ID, error) {
	current := label
	for hops := 0; hops <= MaxHops; hops++ {
		r, ok := t.refs[current]
		if !ok {
			return "", errors.DanglingReference(current)
		}
		switch r.Target.kind {
		case TargetCommit:
			return r.Target.commit, nil
		case TargetAlias:
			current = r.Target.alias
		default:
			return "", errors.DanglingReference(current)
		}
	}
	return "", errors.ReferenceCycle(label, MaxHops)
}

// Labels returns the defined labels in sorted order.
func (t *Table) Labels() []string {
	labels := make([]string, 0, len(t.refs))
	for label := range t.refs {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Clone returns an independent copy of the table.
func (t *Table) Clone() *Table {
	c := NewTable()
	for label, r := range t.refs {
		c.refs[label] = &Reference{Label: label, Target: r.Target}
	}
	return c
}
