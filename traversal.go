package graph

import "sort"

// occurrence names one place a token appears as a child: the parent token
// that contains it, and the (pattern, sub_index) slot within that parent
// (spec §4.4 "one per (parent, pattern_id, sub_index) occurrence").
type occurrence struct {
	Parent    Token
	PatternID PatternId
	Sub       int
}

// parentOccurrences enumerates every occurrence of token as a child of some
// other vertex, in the order the search driver relies on for determinism:
// parents in insertion order of the parent map, and within one parent,
// occurrences by ascending sub_index (spec §4.4 "Ordering").
func parentOccurrences[A comparable](s *Store[A], token Token) []occurrence {
	v := s.Vertex(token.Index)
	if v == nil {
		return nil
	}

	type edge struct {
		parent Token
		locs   []SubLocation
	}

	v.RLock()
	parentIdx := v.Parents()
	edges := make([]edge, 0, len(parentIdx))
	for _, pidx := range parentIdx {
		pe, ok := v.ParentOf(pidx)
		if !ok {
			continue
		}
		pv := s.Vertex(pidx)
		if pv == nil {
			continue
		}
		locs := append([]SubLocation(nil), pe.Locations...)
		edges = append(edges, edge{parent: pv.Token(), locs: locs})
	}
	v.RUnlock()

	out := make([]occurrence, 0, len(edges))
	for _, e := range edges {
		sort.SliceStable(e.locs, func(i, j int) bool { return e.locs[i].Sub < e.locs[j].Sub })
		for _, loc := range e.locs {
			out = append(out, occurrence{Parent: e.parent, PatternID: loc.Pattern, Sub: loc.Sub})
		}
	}
	return out
}

// genParentBatch returns the parent occurrences of the query's lead token
// (spec §4.4 "gen_parent_batch"). The search driver does not call it: it
// seeds its FIFO through Store.seedRootCandidates, which calls
// parentOccurrences directly.
func genParentBatch[A comparable](s *Store[A], leadToken Token) []occurrence {
	return parentOccurrences(s, leadToken)
}

// nextBatch enumerates the parent occurrences of a root that has gone
// ChildExhausted (spec §4.4 "next_batch"). The search driver widens through
// Store.seedRootCandidates instead and does not call it.
func nextBatch[A comparable](s *Store[A], root Token) []occurrence {
	return parentOccurrences(s, root)
}
