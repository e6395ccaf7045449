package graph

import "sort"

// TracePos locates a cut within one child pattern: the index of the token
// the cut falls inside, and how far into that token's span the cut lands.
// InnerOffset is nil exactly when the cut coincides with the token's own
// start offset — a perfect split in that pattern (spec §4.6 "TracePos").
type TracePos struct {
	SubIndex    int
	InnerOffset *uint32
}

// Perfect reports whether this trace position already aligns with a child
// boundary and therefore needs no wrapper vertex for this pattern.
func (t TracePos) Perfect() bool {
	return t.InnerOffset == nil
}

// Cut is one atom-offset inside a root vertex at which the split engine
// must introduce a sub-vertex boundary, together with how that offset lands
// inside each of the root's child patterns (spec §4.6 "Cut").
type Cut struct {
	Offset uint32
	Traces map[PatternId]TracePos
}

// RootMode classifies where the target range sits relative to its cuts
// (spec §4.6 "Root mode").
type RootMode int

const (
	ModePrefix RootMode = iota
	ModePostfix
	ModeInfix
)

func (m RootMode) String() string {
	switch m {
	case ModePrefix:
		return "prefix"
	case ModePostfix:
		return "postfix"
	default:
		return "infix"
	}
}

// tracePosInPattern locates offset within pattern p, returning false if
// offset is 0 or at or beyond width(p): neither edge of the pattern is a
// boundary to introduce (offset 0 is the root's own start, width(p) its end).
func tracePosInPattern(p *Pattern, offset uint32) (TracePos, bool) {
	if offset == 0 {
		return TracePos{}, false
	}
	offs := p.cumulativeOffsets()
	for i, start := range offs {
		end := start + p.Tokens[i].Width
		if offset == start {
			return TracePos{SubIndex: i}, true
		}
		if offset > start && offset < end {
			inner := offset - start
			return TracePos{SubIndex: i, InnerOffset: &inner}, true
		}
	}
	// offset == width(p): the right edge of the pattern, not an internal
	// boundary of this pattern.
	return TracePos{}, false
}

// computeCut builds the Cut at offset by locating its trace position in
// every child pattern recorded on root. Callers must hold at least a read
// lock on root.
func computeCut[A comparable](root *Vertex[A], offset uint32) Cut {
	traces := make(map[PatternId]TracePos)
	for _, p := range root.Patterns() {
		if tp, ok := tracePosInPattern(p, offset); ok {
			traces[p.ID] = tp
		}
	}
	return Cut{Offset: offset, Traces: traces}
}

// SplitPlan is the split engine's output for one target range inside one
// root vertex: the cuts required at the range's boundaries, the root mode
// they imply, and — per Open Question Q2 — any additional inner cuts
// cascaded from an unperfect boundary split, keyed by the vertex they must
// be applied to.
type SplitPlan struct {
	Root        Token
	Mode        RootMode
	StartOffset uint32
	EndOffset   uint32
	LeftCut     *Cut
	RightCut    *Cut
	// Cascades holds, for every composite child token exposed by an
	// unperfect cut, the recursive split required inside that child's own
	// patterns (spec §4.6 "Inner-offset propagation").
	Cascades []*SplitPlan
}

// RequiresWrapper reports whether pid needs a wrapper vertex at this cut:
// true iff the pattern crosses the cut and the cut is unperfect in it
// (spec §4.6 "Required partitions").
func (c *Cut) RequiresWrapper(pid PatternId) bool {
	tp, ok := c.Traces[pid]
	return ok && !tp.Perfect()
}

// computeSplitPlan computes the cuts bounding [startOffset, endOffset) inside
// root's span and cascades inner-offset propagation for any unperfect cut
// found (spec §4.6). startOffset/endOffset are atom offsets, 0 <= start <
// end <= width(root).
func computeSplitPlan[A comparable](s *Store[A], root *Vertex[A], startOffset, endOffset uint32) *SplitPlan {
	plan := &SplitPlan{
		Root:        root.Token(),
		StartOffset: startOffset,
		EndOffset:   endOffset,
	}

	needLeft := startOffset > 0
	needRight := endOffset < root.width

	switch {
	case needLeft && needRight:
		plan.Mode = ModeInfix
	case needRight:
		plan.Mode = ModePrefix
	case needLeft:
		plan.Mode = ModePostfix
	default:
		plan.Mode = ModeInfix // degenerate: target spans the whole root, no cuts needed
	}

	if needLeft {
		cut := computeCut(root, startOffset)
		plan.LeftCut = &cut
		plan.Cascades = append(plan.Cascades, cascadeCut(s, root, cut)...)
	}
	if needRight {
		cut := computeCut(root, endOffset)
		plan.RightCut = &cut
		plan.Cascades = append(plan.Cascades, cascadeCut(s, root, cut)...)
	}

	return plan
}

// cascadeCut recurses into every composite token an unperfect cut lands
// inside, splitting that token's own patterns at the corresponding inner
// offset. Recursion terminates because InnerOffset only exists on tokens of
// width > 1 and each descent targets a strictly narrower token
// (spec §4.6 "Inner-offset propagation").
func cascadeCut[A comparable](s *Store[A], root *Vertex[A], cut Cut) []*SplitPlan {
	var out []*SplitPlan
	seen := make(map[VertexIndex]struct{})
	for pid, tp := range cut.Traces {
		if tp.Perfect() {
			continue
		}
		p, ok := root.Pattern(pid)
		if !ok {
			continue
		}
		child := p.Tokens[tp.SubIndex]
		if child.Width <= 1 {
			continue // an atom cannot be cut any further
		}
		if _, dup := seen[child.Index]; dup {
			continue
		}
		seen[child.Index] = struct{}{}

		cv := s.Vertex(child.Index)
		if cv == nil {
			continue
		}
		cv.RLock()
		inner := computeSplitPlan(s, cv, *tp.InnerOffset, *tp.InnerOffset)
		cv.RUnlock()
		// endOffset == startOffset here, so the inner plan's left and right
		// cuts coincide at the single offset this descent is responsible
		// for; the plan is kept whenever that offset produced a cut.
		if inner.LeftCut != nil {
			out = append(out, inner)
		}
	}
	// Deterministic order for callers that diff plans in tests.
	sort.Slice(out, func(i, j int) bool { return out[i].Root.Index < out[j].Root.Index })
	return out
}
