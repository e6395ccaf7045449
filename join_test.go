package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinPartitionReusesPatternPerfectSubrange(t *testing.T) {
	s := newStore[rune](0)
	a := s.InsertAtom('a')
	b := s.InsertAtom('b')
	c := s.InsertAtom('c')
	abc, err := s.InsertPattern([]Token{a, b, c})
	require.NoError(t, err)

	root := s.Vertex(abc.Index)
	root.RLock()
	tok, err := s.joinPartition(root, Partition{Start: 1, End: 2, Kind: PartitionInfix})
	root.RUnlock()
	require.NoError(t, err)

	assert.Equal(t, b.Index, tok.Index, "a partition perfectly bounded in an existing pattern must reuse that token, not wrap it")
}

func TestJoinSplitCreatesWrapperForUnperfectCut(t *testing.T) {
	s := newStore[rune](0)
	a := s.InsertAtom('a')
	b := s.InsertAtom('b')
	c := s.InsertAtom('c')
	d := s.InsertAtom('d')
	ab, err := s.InsertPattern([]Token{a, b})
	require.NoError(t, err)
	abcd, err := s.InsertPattern([]Token{ab, c, d})
	require.NoError(t, err)

	root := s.Vertex(abcd.Index)
	root.RLock()
	plan := computeSplitPlan[rune](s, root, 1, 3)
	root.RUnlock()

	require.Equal(t, ModeInfix, plan.Mode)

	target, err := s.JoinSplit(plan)
	require.NoError(t, err)

	// The joined token must cover exactly "bc": width 2, distinct from both
	// ab and any pre-existing vertex.
	assert.EqualValues(t, 2, target.Width)
	assert.NotEqual(t, ab.Index, target.Index)

	wrapper := s.Vertex(target.Index)
	require.NotNil(t, wrapper)
	wrapper.RLock()
	pats := wrapper.Patterns()
	wrapper.RUnlock()
	require.Len(t, pats, 1)
	assert.Equal(t, b.Index, pats[0].Tokens[0].Index)
	assert.Equal(t, c.Index, pats[0].Tokens[1].Index)

	// The root must now carry an additional alternative pattern [a, bc, d].
	root.RLock()
	rootPats := root.Patterns()
	root.RUnlock()
	require.Len(t, rootPats, 2)
	stitched := rootPats[1]
	require.Len(t, stitched.Tokens, 3)
	assert.Equal(t, a.Index, stitched.Tokens[0].Index)
	assert.Equal(t, target.Index, stitched.Tokens[1].Index)
	assert.Equal(t, d.Index, stitched.Tokens[2].Index)
}

func TestJoinSplitNoOpWhenTargetSpansWholeRoot(t *testing.T) {
	s := newStore[rune](0)
	a := s.InsertAtom('a')
	b := s.InsertAtom('b')
	ab, err := s.InsertPattern([]Token{a, b})
	require.NoError(t, err)

	root := s.Vertex(ab.Index)
	root.RLock()
	plan := computeSplitPlan[rune](s, root, 0, 2)
	root.RUnlock()

	target, err := s.JoinSplit(plan)
	require.NoError(t, err)
	assert.Equal(t, ab.Index, target.Index)
}
