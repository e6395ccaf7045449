package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matchedCursor(tok Token) *Cursor {
	root := PatternRoot{Tokens: []Token{tok}}
	path := NewRolePath(root, RoleEnd, 0)
	return &Cursor{Path: path, Position: 0, Phase: PhaseMatched}
}

func TestStepFoundMatchOnEqualIndex(t *testing.T) {
	s := newStore[rune](0)
	a := s.InsertAtom('a')

	st := newCompareState[rune](matchedCursor(a), matchedCursor(a), a)
	verdict, matched := compare[rune](s, st)

	assert.Equal(t, verdictFoundMatch, verdict)
	require.NotNil(t, matched)
	assert.Equal(t, PhaseMatched, matched.child.Active().Phase)
	assert.Equal(t, PhaseMatched, matched.query.Active().Phase)
}

func TestStepMismatchOnDifferentAtoms(t *testing.T) {
	s := newStore[rune](0)
	a := s.InsertAtom('a')
	b := s.InsertAtom('b')

	st := newCompareState[rune](matchedCursor(a), matchedCursor(b), a)
	verdict, _ := compare[rune](s, st)

	assert.Equal(t, verdictMismatch, verdict)
}

func TestCompareDecomposesWiderGraphSide(t *testing.T) {
	s := newStore[rune](0)
	a := s.InsertAtom('a')
	b := s.InsertAtom('b')
	ab, err := s.InsertPattern([]Token{a, b})
	require.NoError(t, err)

	// Graph side is the composite "ab"; query side is the bare atom "a".
	// Since width(ab) > width(a), the graph side must decompose down to its
	// prefix child "a" before a match is found.
	st := newCompareState[rune](matchedCursor(ab), matchedCursor(a), ab)
	verdict, matched := compare[rune](s, st)

	require.Equal(t, verdictFoundMatch, verdict)
	assert.Equal(t, a, matched.child.Active().Path.LeafToken())
}

func TestCompareDecomposesWiderQuerySide(t *testing.T) {
	s := newStore[rune](0)
	a := s.InsertAtom('a')
	b := s.InsertAtom('b')
	ab, err := s.InsertPattern([]Token{a, b})
	require.NoError(t, err)

	st := newCompareState[rune](matchedCursor(a), matchedCursor(ab), ab)
	verdict, matched := compare[rune](s, st)

	require.Equal(t, verdictFoundMatch, verdict)
	assert.Equal(t, a, matched.query.Active().Path.LeafToken())
	assert.EqualValues(t, 1, matched.query.Active().Position, "query position measured from checkpoint (0) plus the matched prefix child's width")
}

func TestCompareTriesWidestPrefixFirst(t *testing.T) {
	s := newStore[rune](0)
	a := s.InsertAtom('a')
	b := s.InsertAtom('b')
	c := s.InsertAtom('c')
	ab, err := s.InsertPattern([]Token{a, b})
	require.NoError(t, err)
	abc, err := s.InsertPattern([]Token{ab, c})
	require.NoError(t, err)
	// A second, narrower alternative pattern whose head token is the bare
	// atom "a" rather than the wider "ab".
	require.NoError(t, s.AddPatternWithUpdate(abc, []Token{a, b, c}))

	// Query side asks for the wide prefix child directly: it should be
	// found via the widest-first alternative ("ab") without ever trying the
	// narrower one.
	st := newCompareState[rune](matchedCursor(abc), matchedCursor(ab), abc)
	verdict, matched := compare[rune](s, st)

	require.Equal(t, verdictFoundMatch, verdict)
	assert.Equal(t, ab, matched.child.Active().Path.LeafToken())
}
