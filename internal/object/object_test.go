package object

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  ID
	}{
		{name: "hello", input: []byte("hello"), want: "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"},
		{name: "empty", input: []byte{}, want: "da39a3ee5e6b4b0d3255bfef95601890afd80709"},
		{name: "nil", input: nil, want: "da39a3ee5e6b4b0d3255bfef95601890afd80709"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Hash(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Hash(tt.input), "hash must be stable across calls")
			assert.Len(t, string(got), IDLen)
		})
	}
}

func TestParseID(t *testing.T) {
	id, err := ParseID("aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d")
	require.NoError(t, err)
	assert.Equal(t, "aaf4c61d", id.Short())

	for _, bad := range []string{"", "abc", strings.Repeat("z", IDLen), strings.ToUpper("aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d")} {
		_, err := ParseID(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestBlob(t *testing.T) {
	content := []byte("hello")
	b := NewBlob(content)
	assert.Equal(t, Hash([]byte("hello")), b.ID)
	assert.Equal(t, 5, b.Size())

	// Mutating the caller's slice must not change the blob.
	content[0] = 'j'
	assert.Equal(t, "hello", string(b.Content))

	assert.Equal(t, b.ID, NewBlob([]byte("hello")).ID)
	assert.NotEqual(t, b.ID, NewBlob([]byte("world")).ID)
}

func TestTreeDeterminism(t *testing.T) {
	a := Hash([]byte("a"))
	b := Hash([]byte("b"))
	c := Hash([]byte("c"))

	t1 := NewTreeFromEntries([]TreeEntry{{"a.txt", a}, {"b.txt", b}, {"c.txt", c}})
	t2 := NewTreeFromEntries([]TreeEntry{{"c.txt", c}, {"a.txt", a}, {"b.txt", b}})
	t3 := NewTree(map[string]ID{"b.txt": b, "c.txt": c, "a.txt": a})

	assert.Equal(t, t1.ID, t2.ID)
	assert.Equal(t, t1.ID, t3.ID)
	assert.Equal(t, []string{"a.txt", "b.txt", "c.txt"}, names(t3))

	different := NewTree(map[string]ID{"a.txt": b, "b.txt": a, "c.txt": c})
	assert.NotEqual(t, t1.ID, different.ID)
}

func TestTreeCanonical(t *testing.T) {
	empty := NewTree(nil)
	assert.Equal(t, "{}", string(empty.Canonical()))
	assert.Equal(t, Hash([]byte("{}")), empty.ID)
	assert.Empty(t, empty.Entries)

	id := Hash([]byte("x"))
	tree := NewTree(map[string]ID{"z": id, "a \"q\"": id})
	assert.Equal(t, `{"a \"q\"":"`+string(id)+`","z":"`+string(id)+`"}`, string(tree.Canonical()))
	require.NoError(t, tree.Verify())

	got, ok := tree.Lookup("z")
	assert.True(t, ok)
	assert.Equal(t, id, got)
	_, ok = tree.Lookup("missing")
	assert.False(t, ok)
}

func TestValidName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"a.txt", false},
		{"dir/ünïcode.txt", false},
		{"", true},
		{"a\xff", true},
		{"a\xfe", true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.name), func(t *testing.T) {
			if tt.wantErr {
				assert.Error(t, ValidName(tt.name))
			} else {
				assert.NoError(t, ValidName(tt.name))
			}
		})
	}

	// Both names collapse to "a\ufffd" in JSON, which is why they are rejected.
	id := Hash([]byte("x"))
	assert.Equal(t,
		NewTree(map[string]ID{"a\xff": id}).Canonical(),
		NewTree(map[string]ID{"a\xfe": id}).Canonical())
}

func TestCommitIdentity(t *testing.T) {
	tree := NewTree(map[string]ID{"a.txt": Hash([]byte("hello"))})
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	root := NewCommit(tree.ID, "init", RootParent(tree.ID), at)
	require.NoError(t, root.Verify())
	assert.True(t, root.Parent.IsRoot())
	assert.Equal(t, tree.ID, root.Parent.ID())

	want := Hash([]byte("init" + "1709294400000000000" + string(tree.ID) + string(tree.ID)))
	assert.Equal(t, want, root.ID)

	t.Run("each field changes the id", func(t *testing.T) {
		other := NewTree(nil)
		variants := []*Commit{
			NewCommit(tree.ID, "other", RootParent(tree.ID), at),
			NewCommit(tree.ID, "init", RootParent(tree.ID), at.Add(time.Nanosecond)),
			NewCommit(other.ID, "init", RootParent(tree.ID), at),
			NewCommit(tree.ID, "init", CommitParent(root.ID), at),
		}
		for i, v := range variants {
			assert.NotEqual(t, root.ID, v.ID, "variant %d", i)
		}
	})

	t.Run("same inputs same id", func(t *testing.T) {
		again := NewCommit(tree.ID, "init", RootParent(tree.ID), at.In(time.FixedZone("x", 3600)))
		assert.Equal(t, root.ID, again.ID)
	})
}

func TestCommitJSON(t *testing.T) {
	tree := NewTree(nil)
	root := NewCommit(tree.ID, "init", RootParent(tree.ID), time.Unix(0, 123456789))
	child := NewCommit(tree.ID, "next", CommitParent(root.ID), time.Unix(1, 0))

	data, err := json.Marshal(child)
	require.NoError(t, err)

	var decoded Commit
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.NoError(t, decoded.Verify())
	parent, ok := decoded.Parent.CommitID()
	assert.True(t, ok)
	assert.Equal(t, root.ID, parent)

	var bad ParentRef
	assert.Error(t, json.Unmarshal([]byte(`{"kind":"tag","id":"x"}`), &bad))
}

func TestArenaDeduplicates(t *testing.T) {
	a := NewArena()
	first := a.AddBlob(NewBlob([]byte("same")))
	second := a.AddBlob(NewBlob([]byte("same")))
	assert.Same(t, first, second)

	a.AddTree(NewTree(nil))
	a.AddTree(NewTree(nil))
	blobs, trees, commits := a.Counts()
	assert.Equal(t, 1, blobs)
	assert.Equal(t, 1, trees)
	assert.Equal(t, 0, commits)
}

func names(t *Tree) []string {
	out := make([]string, len(t.Entries))
	for i, e := range t.Entries {
		out[i] = e.Name
	}
	return out
}
