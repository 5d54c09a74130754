package asar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func walkTree(t *testing.T) *Node {
	t.Helper()
	root := NewDir()
	mustAdd(t, root, "b", NewFile(&Entry{Size: 1, Offset: 0}))
	sub := NewDir()
	mustAdd(t, root, "sub", sub)
	mustAdd(t, sub, "d", NewFile(&Entry{Size: 1, Offset: 1}))
	mustAdd(t, sub, "c", NewFile(&Entry{Size: 2, Unpacked: true}))
	deep := NewDir()
	mustAdd(t, sub, "deep", deep)
	mustAdd(t, deep, "e", NewFile(&Entry{Size: 1, Offset: 2}))
	mustAdd(t, root, "a", NewFile(&Entry{Size: 1, Offset: 3}))
	return root
}

func TestWalkOrder(t *testing.T) {
	t.Parallel()

	paths, _ := collectEntries(t, walkTree(t), false)
	// Depth-first pre-order in insertion order, not sorted.
	assert.Equal(t, []string{"b", "sub/d", "sub/c", "sub/deep/e", "a"}, paths)
}

func TestWalkSkipUnpacked(t *testing.T) {
	t.Parallel()

	paths, entries := collectEntries(t, walkTree(t), true)
	assert.Equal(t, []string{"b", "sub/d", "sub/deep/e", "a"}, paths)
	for _, e := range entries {
		assert.False(t, e.Unpacked)
	}
}

func TestWalkRestartable(t *testing.T) {
	t.Parallel()

	seq := Walk(walkTree(t), false)

	var first []string
	for p := range seq {
		first = append(first, p)
	}
	var second []string
	for p := range seq {
		second = append(second, p)
	}
	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestWalkEarlyBreak(t *testing.T) {
	t.Parallel()

	var got []string
	for p := range Walk(walkTree(t), false) {
		got = append(got, p)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"b", "sub/d"}, got)
}

func TestWalkEmptyDir(t *testing.T) {
	t.Parallel()

	paths, _ := collectEntries(t, NewDir(), false)
	assert.Empty(t, paths)
}
