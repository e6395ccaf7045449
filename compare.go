package graph

import "sort"

// compareMode records which side of a compareState was most recently
// decomposed: graphMajor means the graph-side composite was broken into its
// prefix children; queryMajor means the query-side composite was
// (spec §4.3 "State").
type compareMode int

const (
	graphMajor compareMode = iota
	queryMajor
)

// compareVerdict is one of the three conclusive outcomes a single step can
// produce. The state machine itself never fails (spec §4.3 "Failure
// semantics"); only these three verdicts are possible.
type compareVerdict int

const (
	verdictFoundMatch compareVerdict = iota
	verdictMismatch
	verdictPrefixes
)

// compareState pairs a graph-side candidate path with a query-side candidate
// cursor, both anchored at a shared target vertex, tracking which side was
// most recently decomposed (spec §4.3 "State"). child and query are
// Checkpointed so that every further decomposition can measure its query
// position from the original checkpoint rather than the previous candidate,
// preventing cumulative drift across alternative branches.
type compareState[A comparable] struct {
	child  *Checkpointed
	query  *Checkpointed
	target Token
	mode   compareMode
}

// newCompareState starts a fresh comparison of one top-level token pair:
// childCheckpoint and queryCheckpoint must both already be in the Matched
// phase (the last confirmed position on each side).
func newCompareState[A comparable](childCheckpoint, queryCheckpoint *Cursor, target Token) *compareState[A] {
	child := NewCheckpointed(childCheckpoint)
	query := NewCheckpointed(queryCheckpoint)
	child.StartCandidate()
	query.StartCandidate()
	return &compareState[A]{child: child, query: query, target: target, mode: graphMajor}
}

// prefixChild is one alternative head token of a composite leaf: the pattern
// it belongs to, paired with the token itself.
type prefixChild struct {
	pattern PatternId
	token   Token
}

// prefixChildren lists leaf's prefix children — the head token of every
// child pattern recorded on leaf's vertex — sorted widest-first, since the
// BFS prefers the most informative decomposition first (spec §4.3 "Prefix
// decomposition").
func prefixChildren[A comparable](s *Store[A], leaf Token) []prefixChild {
	v := s.Vertex(leaf.Index)
	if v == nil {
		return nil
	}
	v.RLock()
	patterns := v.Patterns()
	out := make([]prefixChild, 0, len(patterns))
	for _, p := range patterns {
		if len(p.Tokens) == 0 {
			continue
		}
		out = append(out, prefixChild{pattern: p.ID, token: p.Tokens[0]})
	}
	v.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].token.Width > out[j].token.Width })
	return out
}

// decomposeGraph replaces the graph-side leaf by each of its prefix
// children, leaving the query side's atom position unchanged (spec §4.3:
// "GraphMajor descent leaves the query cursor's atom_position at the
// checkpoint's position").
func decomposeGraph[A comparable](s *Store[A], st *compareState[A], leaf Token) []*compareState[A] {
	kids := prefixChildren(s, leaf)
	out := make([]*compareState[A], 0, len(kids))
	for _, pc := range kids {
		path := st.child.Active().Path.Clone()
		path.Append(DescentStep{
			Loc:       ChildLocation{ParentToken: leaf, At: SubLocation{Pattern: pc.pattern, Sub: 0}},
			Token:     pc.token,
			EnteredAt: st.child.Checkpoint.Position,
		})
		cand := &Cursor{Path: path, Position: st.child.Checkpoint.Position, Phase: PhaseCandidate}
		out = append(out, &compareState[A]{
			child:  &Checkpointed{Checkpoint: st.child.Checkpoint, Candidate: cand},
			query:  st.query,
			target: st.target,
			mode:   graphMajor,
		})
	}
	return out
}

// decomposeQuery replaces the query-side leaf by each of its prefix
// children, advancing the query cursor's atom position by the chosen
// child's width measured from the checkpoint (spec §4.3: "measured from the
// checkpoint, not from the previous candidate, to prevent cumulative drift
// across alternative branches").
func decomposeQuery[A comparable](s *Store[A], st *compareState[A], leaf Token) []*compareState[A] {
	kids := prefixChildren(s, leaf)
	out := make([]*compareState[A], 0, len(kids))
	for _, pc := range kids {
		path := st.query.Active().Path.Clone()
		pos := st.query.Checkpoint.Position + AtomPosition(pc.token.Width)
		path.Append(DescentStep{
			Loc:       ChildLocation{ParentToken: leaf, At: SubLocation{Pattern: pc.pattern, Sub: 0}},
			Token:     pc.token,
			EnteredAt: pos,
		})
		cand := &Cursor{Path: path, Position: pos, Phase: PhaseCandidate}
		out = append(out, &compareState[A]{
			child:  st.child,
			query:  &Checkpointed{Checkpoint: st.query.Checkpoint, Candidate: cand},
			target: st.target,
			mode:   queryMajor,
		})
	}
	return out
}

// step reads the leaf tokens of both sides and applies the table of spec
// §4.3: equal indices found a match; two mismatched atoms conclude a
// mismatch; anything wider is decomposed into prefix children and queued.
func step[A comparable](s *Store[A], st *compareState[A]) (compareVerdict, []*compareState[A]) {
	g := st.child.Active().Path.LeafToken()
	q := st.query.Active().Path.LeafToken()

	if g.Index == q.Index {
		st.child.Active().MarkMatch()
		st.query.Active().MarkMatch()
		return verdictFoundMatch, nil
	}

	switch {
	case g.Width == 1 && q.Width == 1:
		st.child.Active().MarkMismatch()
		st.query.Active().MarkMismatch()
		return verdictMismatch, nil

	case g.Width == q.Width:
		next := append(decomposeGraph(s, st, g), decomposeQuery(s, st, q)...)
		if len(next) == 0 {
			return verdictMismatch, nil
		}
		return verdictPrefixes, next

	case g.Width > q.Width:
		next := decomposeGraph(s, st, g)
		if len(next) == 0 {
			return verdictMismatch, nil
		}
		return verdictPrefixes, next

	default: // g.Width < q.Width
		next := decomposeQuery(s, st, q)
		if len(next) == 0 {
			return verdictMismatch, nil
		}
		return verdictPrefixes, next
	}
}

// trailingSiblings returns, deepest decomposition first, the children a
// graphMajor/queryMajor step decomposed leaf into but left unconsumed:
// decomposeGraph/decomposeQuery always descend into a pattern's head child
// (Sub 0), so whatever else that pattern holds is still owed before the slot
// the path's root token occupies can be called fully matched (spec §8 S2,
// "partial composite consumption" — a FoundMatch against one prefix child
// must not be mistaken for a match against the whole composite).
func trailingSiblings[A comparable](s *Store[A], path *RolePath) []Token {
	var out []Token
	for i := len(path.Steps) - 1; i >= 0; i-- {
		step := path.Steps[i]
		v := s.Vertex(step.Loc.ParentToken.Index)
		if v == nil {
			continue
		}
		v.RLock()
		p, ok := v.Pattern(step.Loc.At.Pattern)
		var rest []Token
		if ok && step.Loc.At.Sub+1 < len(p.Tokens) {
			rest = append([]Token(nil), p.Tokens[step.Loc.At.Sub+1:]...)
		}
		v.RUnlock()
		out = append(out, rest...)
	}
	return out
}

// compare drains the BFS queue seeded by initial, returning the first
// FoundMatch reached in queue order; a Mismatch only ends its own branch, and
// verdictMismatch is returned once the queue drains (spec §4.3 "the queue is
// drained in order, producing a BFS over decompositions that terminates
// because every step strictly reduces the widths of the involved leaves").
func compare[A comparable](s *Store[A], initial *compareState[A]) (compareVerdict, *compareState[A]) {
	queue := []*compareState[A]{initial}
	for len(queue) > 0 {
		st := queue[0]
		queue = queue[1:]

		v, next := step(s, st)
		switch v {
		case verdictFoundMatch:
			return verdictFoundMatch, st
		case verdictPrefixes:
			queue = append(queue, next...)
		}
	}
	return verdictMismatch, nil
}
