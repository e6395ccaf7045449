package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRolePathAppendPop(t *testing.T) {
	root := PatternRoot{Tokens: []Token{{Index: 1, Width: 1}, {Index: 2, Width: 2}}}
	p := NewRolePath(root, RoleStart, 1)

	assert.Equal(t, Token{Index: 2, Width: 2}, p.LeafToken())

	step := DescentStep{
		Loc:       ChildLocation{ParentToken: Token{Index: 2, Width: 2}, At: SubLocation{Sub: 0}},
		Token:     Token{Index: 3, Width: 1},
		EnteredAt: 1,
	}
	p.Append(step)
	assert.Equal(t, Token{Index: 3, Width: 1}, p.LeafToken())

	popped, ok := p.Pop()
	require.True(t, ok)
	assert.Equal(t, step, popped)

	_, ok = p.Pop()
	assert.False(t, ok)
}

func TestRolePathMoveRootIndex(t *testing.T) {
	root := PatternRoot{Tokens: []Token{{Index: 1, Width: 1}, {Index: 2, Width: 1}}}
	p := NewRolePath(root, RoleEnd, 0)

	assert.True(t, p.MoveRootIndex(Forward))
	assert.Equal(t, 1, p.RootEntry)
	assert.False(t, p.MoveRootIndex(Forward))

	assert.True(t, p.MoveRootIndex(Backward))
	assert.Equal(t, 0, p.RootEntry)
	assert.False(t, p.MoveRootIndex(Backward))
}

func TestRolePathSimplifyStart(t *testing.T) {
	parent := Token{Index: 10, Width: 3}
	pid := newPatternId()
	pattern := &Pattern{ID: pid, Tokens: []Token{{Index: 1, Width: 1}, {Index: 2, Width: 2}}}

	root := PatternRoot{Tokens: []Token{parent}}
	p := NewRolePath(root, RoleStart, 0)
	p.Append(DescentStep{
		Loc:   ChildLocation{ParentToken: parent, At: SubLocation{Pattern: pid, Sub: 0}},
		Token: pattern.Tokens[0],
	})

	lookup := func(pt Token, id PatternId) (*Pattern, bool) {
		if pt == parent && id == pid {
			return pattern, true
		}
		return nil, false
	}
	p.Simplify(lookup)
	assert.Empty(t, p.Steps, "descending to the first token of a Start path is redundant")
}

func TestRolePathSimplifyEndKeepsNonBoundarySteps(t *testing.T) {
	parent := Token{Index: 10, Width: 3}
	pid := newPatternId()
	pattern := &Pattern{ID: pid, Tokens: []Token{{Index: 1, Width: 1}, {Index: 2, Width: 2}}}

	root := PatternRoot{Tokens: []Token{parent}}
	p := NewRolePath(root, RoleEnd, 0)
	p.Append(DescentStep{
		Loc:   ChildLocation{ParentToken: parent, At: SubLocation{Pattern: pid, Sub: 0}},
		Token: pattern.Tokens[0],
	})

	lookup := func(pt Token, id PatternId) (*Pattern, bool) {
		if pt == parent && id == pid {
			return pattern, true
		}
		return nil, false
	}
	p.Simplify(lookup)
	assert.Len(t, p.Steps, 1, "sub-index 0 is not the End boundary of a 2-token pattern")
}

func TestRolePathClone(t *testing.T) {
	root := PatternRoot{Tokens: []Token{{Index: 1, Width: 1}}}
	p := NewRolePath(root, RoleStart, 0)
	p.Append(DescentStep{Token: Token{Index: 2, Width: 1}})

	c := p.Clone()
	c.Pop()
	assert.Len(t, p.Steps, 1, "cloning must not let mutations of the clone leak back")
	assert.Empty(t, c.Steps)
}
