package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertAtomInterns(t *testing.T) {
	s := newStore[rune](0)
	a1 := s.InsertAtom('a')
	a2 := s.InsertAtom('a')
	b := s.InsertAtom('b')

	assert.Equal(t, a1, a2)
	assert.NotEqual(t, a1.Index, b.Index)
	assert.EqualValues(t, 1, a1.Width)
	assert.Equal(t, 2, s.Len())
}

func TestInsertPatternRejectsEmptyAndSingle(t *testing.T) {
	s := newStore[rune](0)
	a := s.InsertAtom('a')

	_, err := s.InsertPattern(nil)
	assert.ErrorIs(t, err, ErrEmptyPattern)

	_, err = s.InsertPattern([]Token{a})
	var single *SingleIndexError
	require.ErrorAs(t, err, &single)
	assert.Equal(t, a, single.Token)
}

func TestInsertPatternDedupes(t *testing.T) {
	s := newStore[rune](0)
	a := s.InsertAtom('a')
	b := s.InsertAtom('b')

	ab1, err := s.InsertPattern([]Token{a, b})
	require.NoError(t, err)
	ab2, err := s.InsertPattern([]Token{a, b})
	require.NoError(t, err)

	assert.Equal(t, ab1, ab2)
	assert.Equal(t, 3, s.Len(), "a, b and ab should be the only vertices")

	v := s.Vertex(ab1.Index)
	require.Equal(t, 1, v.PatternCount())
	p := v.Patterns()[0]
	assert.Equal(t, []Token{a, b}, p.Tokens)

	// Back-edges: both a and b must now list ab as a parent.
	av := s.Vertex(a.Index)
	edge, ok := av.ParentOf(ab1.Index)
	require.True(t, ok)
	assert.Equal(t, []SubLocation{{Pattern: p.ID, Sub: 0}}, edge.Locations)

	bv := s.Vertex(b.Index)
	edge, ok = bv.ParentOf(ab1.Index)
	require.True(t, ok)
	assert.Equal(t, []SubLocation{{Pattern: p.ID, Sub: 1}}, edge.Locations)
}

func TestInsertPatternsAddsAlternatives(t *testing.T) {
	s := newStore[rune](0)
	a := s.InsertAtom('a')
	b := s.InsertAtom('b')
	c := s.InsertAtom('c')

	ab, err := s.InsertPattern([]Token{a, b})
	require.NoError(t, err)

	abc, err := s.InsertPatterns([][]Token{
		{ab, c},
		{a, b, c},
	})
	require.NoError(t, err)

	v := s.Vertex(abc.Index)
	require.Equal(t, 2, v.PatternCount())
	assert.Equal(t, []Token{ab, c}, v.Patterns()[0].Tokens)
	assert.Equal(t, []Token{a, b, c}, v.Patterns()[1].Tokens)
}

func TestInsertPatternsRejectsWidthMismatch(t *testing.T) {
	s := newStore[rune](0)
	a := s.InsertAtom('a')
	b := s.InsertAtom('b')
	c := s.InsertAtom('c')

	_, err := s.InsertPatterns([][]Token{
		{a, b},
		{c},
	})
	var integrity *VertexIntegrityError
	assert.ErrorAs(t, err, &integrity)
}

func TestAppendToPatternInPlace(t *testing.T) {
	s := newStore[rune](0)
	a := s.InsertAtom('a')
	b := s.InsertAtom('b')
	c := s.InsertAtom('c')

	ab, err := s.InsertPattern([]Token{a, b})
	require.NoError(t, err)

	v := s.Vertex(ab.Index)
	pid := v.Patterns()[0].ID

	extended, ok := s.AppendToPattern(ab, pid, []Token{c})
	require.True(t, ok)
	assert.EqualValues(t, 3, extended.Width)

	p, ok := v.Pattern(pid)
	require.True(t, ok)
	assert.Equal(t, []Token{a, b, c}, p.Tokens)

	cv := s.Vertex(c.Index)
	edge, ok := cv.ParentOf(ab.Index)
	require.True(t, ok)
	assert.Equal(t, []SubLocation{{Pattern: pid, Sub: 2}}, edge.Locations)
}

func TestAppendToPatternRefusesWhenNotSole(t *testing.T) {
	s := newStore[rune](0)
	a := s.InsertAtom('a')
	b := s.InsertAtom('b')
	c := s.InsertAtom('c')

	ab, err := s.InsertPattern([]Token{a, b})
	require.NoError(t, err)

	// Give ab a second alternative pattern so its children mapping has
	// len != 1 and append must refuse.
	require.NoError(t, s.AddPatternWithUpdate(ab, []Token{a, b}))
	_ = c

	v := s.Vertex(ab.Index)
	pid := v.Patterns()[0].ID
	_, ok := s.AppendToPattern(ab, pid, []Token{c})
	assert.False(t, ok)
}

func TestReplaceInPatternRenumbersShiftedChildren(t *testing.T) {
	s := newStore[rune](0)
	a := s.InsertAtom('a')
	b := s.InsertAtom('b')
	c := s.InsertAtom('c')
	d := s.InsertAtom('d')

	abcd, err := s.InsertPattern([]Token{a, b, c, d})
	require.NoError(t, err)

	v := s.Vertex(abcd.Index)
	pid := v.Patterns()[0].ID

	bc, err := s.InsertPattern([]Token{b, c})
	require.NoError(t, err)

	err = s.ReplaceInPattern(abcd, pid, 1, 3, []Token{bc})
	require.NoError(t, err)

	p, ok := v.Pattern(pid)
	require.True(t, ok)
	assert.Equal(t, []Token{a, bc, d}, p.Tokens)

	// d shifted from sub-index 3 to sub-index 2.
	dv := s.Vertex(d.Index)
	edge, ok := dv.ParentOf(abcd.Index)
	require.True(t, ok)
	assert.Equal(t, []SubLocation{{Pattern: pid, Sub: 2}}, edge.Locations)

	// b and c no longer point directly at abcd; they point at bc instead,
	// and bc points at abcd.
	bv := s.Vertex(b.Index)
	_, ok = bv.ParentOf(abcd.Index)
	assert.False(t, ok)
	_, ok = bv.ParentOf(bc.Index)
	assert.True(t, ok)

	bcv := s.Vertex(bc.Index)
	_, ok = bcv.ParentOf(abcd.Index)
	assert.True(t, ok)
}

func TestReplaceInPatternRejectsWidthChange(t *testing.T) {
	s := newStore[rune](0)
	a := s.InsertAtom('a')
	b := s.InsertAtom('b')
	c := s.InsertAtom('c')

	abc, err := s.InsertPattern([]Token{a, b, c})
	require.NoError(t, err)
	v := s.Vertex(abc.Index)
	pid := v.Patterns()[0].ID

	err = s.ReplaceInPattern(abc, pid, 0, 2, []Token{a})
	var integrity *VertexIntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.Equal(t, "I1", integrity.Invariant)
}
