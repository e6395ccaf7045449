package graph

import "sort"

// PartitionKind classifies a join partition by its position among a root's
// cuts (spec §4.7 "Prefix partition / Infix partition / Postfix partition").
type PartitionKind int

const (
	PartitionPrefix PartitionKind = iota
	PartitionInfix
	PartitionPostfix
)

// Partition is one contiguous atom span, bounded by consecutive cuts (or a
// root edge), that the join engine reduces to a single canonical token.
type Partition struct {
	Start, End uint32
	Kind       PartitionKind
}

// partitionsFor lays out the partitions implied by plan's cuts against
// rootWidth, in left-to-right order.
func partitionsFor(plan *SplitPlan, rootWidth uint32) []Partition {
	bounds := []uint32{0}
	if plan.LeftCut != nil {
		bounds = append(bounds, plan.LeftCut.Offset)
	}
	if plan.RightCut != nil {
		bounds = append(bounds, plan.RightCut.Offset)
	}
	bounds = append(bounds, rootWidth)
	sort.Slice(bounds, func(i, j int) bool { return bounds[i] < bounds[j] })

	dedup := bounds[:1]
	for _, b := range bounds[1:] {
		if b != dedup[len(dedup)-1] {
			dedup = append(dedup, b)
		}
	}

	parts := make([]Partition, 0, len(dedup)-1)
	for i := 0; i+1 < len(dedup); i++ {
		kind := PartitionInfix
		if i == 0 {
			kind = PartitionPrefix
		}
		if i == len(dedup)-2 {
			kind = PartitionPostfix
		}
		parts = append(parts, Partition{Start: dedup[i], End: dedup[i+1], Kind: kind})
	}
	return parts
}

// boundarySubIndex reports the sub-index at which offset falls exactly on a
// token boundary of p (including the pattern's own edges), and whether such
// a boundary exists.
func boundarySubIndex(p *Pattern, offset uint32) (int, bool) {
	if offset == 0 {
		return 0, true
	}
	offs := p.cumulativeOffsets()
	for i, start := range offs {
		if start == offset {
			return i, true
		}
	}
	if offset == p.width() {
		return len(p.Tokens), true
	}
	return 0, false
}

func (s *Store[A]) insertOrSingle(tokens []Token) (Token, error) {
	if len(tokens) == 1 {
		return tokens[0], nil
	}
	return s.InsertPattern(tokens)
}

// splitToken returns the left and right halves of token at the given
// atom offset into it, creating or reusing vertices for each half. An
// unperfect split recurses into the crossing grandchild, the descent
// strictly narrowing each time (spec §4.6 "Inner-offset propagation",
// §4.7 "split tokens substituted by their left / right halves").
func (s *Store[A]) splitToken(token Token, offset uint32) (left, right Token, err error) {
	if offset == 0 {
		return Token{}, token, nil
	}
	if offset == token.Width {
		return token, Token{}, nil
	}

	v := s.Vertex(token.Index)
	if v == nil {
		return Token{}, Token{}, ErrInvalidChild
	}
	v.RLock()
	patterns := v.Patterns()
	v.RUnlock()
	if len(patterns) == 0 {
		return Token{}, Token{}, ErrInvalidChild // an atom cannot be split
	}
	p := patterns[0]

	tp, ok := tracePosInPattern(p, offset)
	if !ok {
		return Token{}, Token{}, ErrInvalidChild
	}

	if tp.Perfect() {
		left, err = s.insertOrSingle(p.Tokens[:tp.SubIndex])
		if err != nil {
			return Token{}, Token{}, err
		}
		right, err = s.insertOrSingle(p.Tokens[tp.SubIndex:])
		return left, right, err
	}

	crossing := p.Tokens[tp.SubIndex]
	childLeft, childRight, err := s.splitToken(crossing, *tp.InnerOffset)
	if err != nil {
		return Token{}, Token{}, err
	}

	leftTokens := append(append([]Token(nil), p.Tokens[:tp.SubIndex]...), childLeft)
	rightTokens := append([]Token{childRight}, p.Tokens[tp.SubIndex+1:]...)

	left, err = s.insertOrSingle(leftTokens)
	if err != nil {
		return Token{}, Token{}, err
	}
	right, err = s.insertOrSingle(rightTokens)
	return left, right, err
}

// splitTokenRange returns the middle slice of token spanning
// [innerStart, innerEnd), for a token that strictly contains a join
// partition's boundaries on both sides.
func (s *Store[A]) splitTokenRange(token Token, innerStart, innerEnd uint32) (Token, error) {
	left, _, err := s.splitToken(token, innerEnd)
	if err != nil {
		return Token{}, err
	}
	_, mid, err := s.splitToken(left, innerStart)
	if err != nil {
		return Token{}, err
	}
	return mid, nil
}

// buildWrapperPattern constructs the token sequence covering [start, end)
// as seen through pattern p, splitting any token that straddles a boundary
// into its left/right half (or middle slice, if it straddles both).
func (s *Store[A]) buildWrapperPattern(p *Pattern, start, end uint32) ([]Token, error) {
	offs := p.cumulativeOffsets()
	var out []Token
	for i, t := range p.Tokens {
		tStart := offs[i]
		tEnd := tStart + t.Width
		if tEnd <= start || tStart >= end {
			continue
		}
		switch {
		case tStart >= start && tEnd <= end:
			out = append(out, t)
		case tStart < start && tEnd <= end:
			_, right, err := s.splitToken(t, start-tStart)
			if err != nil {
				return nil, err
			}
			out = append(out, right)
		case tStart >= start && tEnd > end:
			left, _, err := s.splitToken(t, end-tStart)
			if err != nil {
				return nil, err
			}
			out = append(out, left)
		default:
			mid, err := s.splitTokenRange(t, start-tStart, end-tStart)
			if err != nil {
				return nil, err
			}
			out = append(out, mid)
		}
	}
	return out, nil
}

// joinPartition reduces one partition of root to a single canonical token.
// If some child pattern already has perfect boundaries at both ends of the
// partition, the smallest such sub-range names the canonical token directly
// (spec §4.7 "pattern-perfect", §8 B2: no wrapper is created in this case).
// Otherwise a wrapper vertex is created whose standard pattern is built from
// the first crossing pattern, plus one alternative per other crossing
// pattern.
func (s *Store[A]) joinPartition(root *Vertex[A], part Partition) (Token, error) {
	root.RLock()
	patterns := root.Patterns()
	root.RUnlock()

	var best []Token
	for _, p := range patterns {
		startSub, startOk := boundarySubIndex(p, part.Start)
		endSub, endOk := boundarySubIndex(p, part.End)
		if !startOk || !endOk || startSub >= endSub {
			continue
		}
		sub := p.Tokens[startSub:endSub]
		if best == nil || len(sub) < len(best) {
			best = sub
		}
	}
	if best != nil {
		return s.insertOrSingle(best)
	}

	if len(patterns) == 0 {
		return Token{}, ErrNoTokenPatterns
	}

	standard, err := s.buildWrapperPattern(patterns[0], part.Start, part.End)
	if err != nil {
		return Token{}, err
	}
	wrapper, err := s.insertOrSingle(standard)
	if err != nil {
		return Token{}, err
	}
	if len(standard) < 2 {
		return wrapper, nil // the partition reduced to an existing single token
	}

	for _, p := range patterns[1:] {
		alt, err := s.buildWrapperPattern(p, part.Start, part.End)
		if err != nil || len(alt) < 2 {
			continue
		}
		_ = s.AddPatternWithUpdate(wrapper, alt)
	}
	return wrapper, nil
}

// JoinSplit executes the join engine for one split plan: every partition
// between plan's cuts is reduced to a canonical token, then a new root
// pattern records the full decomposition in partition order — the joined
// target token surrounded by its edge partitions, as dictated by root mode
// (spec §4.7 "Root-level stitching"). Pre-existing root patterns are left
// intact. It returns the token for the target partition itself.
func (s *Store[A]) JoinSplit(plan *SplitPlan) (Token, error) {
	if plan.LeftCut == nil && plan.RightCut == nil {
		return plan.Root, nil
	}

	root := s.Vertex(plan.Root.Index)
	if root == nil {
		return Token{}, ErrInvalidPattern
	}

	parts := partitionsFor(plan, root.Width())
	tokens := make([]Token, len(parts))
	var target Token
	haveTarget := false
	for i, part := range parts {
		tok, err := s.joinPartition(root, part)
		if err != nil {
			return Token{}, err
		}
		tokens[i] = tok
		if part.Start == plan.StartOffset && part.End == plan.EndOffset {
			target = tok
			haveTarget = true
		}
	}
	if !haveTarget {
		return Token{}, ErrInvalidChild
	}

	if len(tokens) >= 2 {
		if err := s.AddPatternWithUpdate(plan.Root, tokens); err != nil {
			return Token{}, err
		}
	}
	return target, nil
}
