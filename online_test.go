package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Extending an exclusive root never mutates the vertex it grew from: the
// narrower root (ab) survives as its own vertex, and the wider one (abc)
// carries both the straightforward extension and the overlap-bundled
// regrouping as alternative patterns (spec §4.7, §8 S5).
func TestOnlineManagerAppendTokenExtendsExclusivePattern(t *testing.T) {
	s := newStore[rune](0)
	a := s.InsertAtom('a')
	b := s.InsertAtom('b')
	c := s.InsertAtom('c')

	m := NewOnlineManager[rune](s)
	_, err := m.AppendToken(a)
	require.NoError(t, err)
	ab, err := m.AppendToken(b)
	require.NoError(t, err)
	root, err := m.AppendToken(c)
	require.NoError(t, err)

	require.EqualValues(t, 3, root.Width)

	abV := s.Vertex(ab.Index)
	abV.RLock()
	assert.Equal(t, []Token{a, b}, abV.Patterns()[0].Tokens, "ab must still stand on its own")
	abV.RUnlock()

	v := s.Vertex(root.Index)
	v.RLock()
	defer v.RUnlock()
	require.Equal(t, 2, v.PatternCount())
	var sawBundled, sawLiteral bool
	for _, p := range v.Patterns() {
		switch {
		case len(p.Tokens) == 2 && p.Tokens[0].Index == a.Index && p.Tokens[1].Width == 2:
			sawBundled = true
		case len(p.Tokens) == 2 && p.Tokens[0].Index == ab.Index && p.Tokens[1].Index == c.Index:
			sawLiteral = true
		}
	}
	assert.True(t, sawBundled, "expected an [a, bc] decomposition")
	assert.True(t, sawLiteral, "expected an [ab, c] decomposition")
}

func TestOnlineManagerCommitStateWithoutOverlap(t *testing.T) {
	s := newStore[rune](0)
	a := s.InsertAtom('a')
	b := s.InsertAtom('b')
	c := s.InsertAtom('c')

	m := NewOnlineManager[rune](s)
	_, err := m.AppendToken(a)
	require.NoError(t, err)
	_, err = m.AppendToken(b)
	require.NoError(t, err)
	_, err = m.AppendToken(c)
	require.NoError(t, err)

	root, err := m.CommitState()
	require.NoError(t, err)

	v := s.Vertex(root.Index)
	v.RLock()
	defer v.RUnlock()
	require.GreaterOrEqual(t, v.PatternCount(), 1)
}

// S5: online read of the atom stream a, a, a. After three appends the root
// denotes aaa; aa must still exist with decomposition [a,a], and aaa must
// carry both [a,aa] and [aa,a] as alternative decompositions.
func TestOnlineManagerReadStreamRepeatedAtomMatchesS5(t *testing.T) {
	s := newStore[rune](0)
	a := s.InsertAtom('a')

	m := NewOnlineManager[rune](s)
	_, err := m.AppendToken(a)
	require.NoError(t, err)
	aa, err := m.AppendToken(a)
	require.NoError(t, err)
	require.EqualValues(t, 2, aa.Width)
	aaa, err := m.AppendToken(a)
	require.NoError(t, err)
	require.EqualValues(t, 3, aaa.Width)

	root, err := m.CommitState()
	require.NoError(t, err)
	assert.Equal(t, aaa.Index, root.Index)

	aaV := s.Vertex(aa.Index)
	aaV.RLock()
	require.Equal(t, 1, aaV.PatternCount())
	assert.Equal(t, []Token{a, a}, aaV.Patterns()[0].Tokens)
	aaV.RUnlock()

	aaaV := s.Vertex(aaa.Index)
	aaaV.RLock()
	defer aaaV.RUnlock()
	require.Equal(t, 2, aaaV.PatternCount())
	var sawAAA1, sawAAA2 bool
	for _, p := range aaaV.Patterns() {
		if len(p.Tokens) != 2 {
			continue
		}
		switch {
		case p.Tokens[0].Width == 1 && p.Tokens[1].Width == 2:
			sawAAA1 = true
		case p.Tokens[0].Width == 2 && p.Tokens[1].Width == 1:
			sawAAA2 = true
		}
	}
	assert.True(t, sawAAA1, "expected a [a, aa] decomposition")
	assert.True(t, sawAAA2, "expected a [aa, a] decomposition")
}

func TestOnlineManagerDetectsCursorOverlap(t *testing.T) {
	s := newStore[rune](0)
	a := s.InsertAtom('a')
	b := s.InsertAtom('b')

	overlap := s.detectOverlap(a, []Token{a, b})
	assert.True(t, overlap, "an atomic root equal to the band's first token is a cursor overlap")

	noOverlap := s.detectOverlap(a, []Token{b})
	assert.False(t, noOverlap)
}
