package graph

import (
	"sort"

	"github.com/mvvarga/patterngraph/internal/seqs"
)

// Reason names why a search terminated (spec §3 "Response").
type Reason int

const (
	ReasonQueryExhausted Reason = iota
	ReasonMismatch
	ReasonChildExhausted
)

func (r Reason) String() string {
	switch r {
	case ReasonQueryExhausted:
		return "query_exhausted"
	case ReasonChildExhausted:
		return "child_exhausted"
	default:
		return "mismatch"
	}
}

// PathCoverage classifies how much of a root's child pattern the matched
// range spans (spec §3 "Response").
type PathCoverage int

const (
	CoverageComplete PathCoverage = iota
	CoveragePrefix
	CoveragePostfix
	CoverageRange
)

func (c PathCoverage) String() string {
	switch c {
	case CoverageComplete:
		return "complete"
	case CoveragePrefix:
		return "prefix"
	case CoveragePostfix:
		return "postfix"
	default:
		return "range"
	}
}

func coverageOf(startEntry, endEntry, patternLen int) PathCoverage {
	atStart := startEntry == 0
	atEnd := endEntry == patternLen-1
	switch {
	case atStart && atEnd:
		return CoverageComplete
	case atStart:
		return CoveragePrefix
	case atEnd:
		return CoveragePostfix
	default:
		return CoverageRange
	}
}

// TraceCache records, per vertex visited during a search, the query
// positions at which it was visited bottom-up (while exploring root
// candidates via parent batches) or top-down (while comparing the root's
// next pattern slot). Positions are recorded as indices into the query's
// token sequence, which equal atom offsets only when every query token is an
// atom. The split engine does not read it; InsertOrGetComplete reports
// CrossedAt for the root in a debug record (spec §3 "trace cache", §9
// "Generic collection substitutions").
type TraceCache struct {
	bottomUp map[VertexIndex]map[AtomPosition]struct{}
	topDown  map[VertexIndex]map[AtomPosition]struct{}
}

func newTraceCache() *TraceCache {
	return &TraceCache{
		bottomUp: make(map[VertexIndex]map[AtomPosition]struct{}),
		topDown:  make(map[VertexIndex]map[AtomPosition]struct{}),
	}
}

func (c *TraceCache) recordBottomUp(v VertexIndex, pos AtomPosition) {
	if c.bottomUp[v] == nil {
		c.bottomUp[v] = make(map[AtomPosition]struct{})
	}
	c.bottomUp[v][pos] = struct{}{}
}

func (c *TraceCache) recordTopDown(v VertexIndex, pos AtomPosition) {
	if c.topDown[v] == nil {
		c.topDown[v] = make(map[AtomPosition]struct{})
	}
	c.topDown[v][pos] = struct{}{}
}

// Has reports whether v was ever visited, in either direction.
func (c *TraceCache) Has(v VertexIndex) bool {
	if _, ok := c.bottomUp[v]; ok {
		return true
	}
	_, ok := c.topDown[v]
	return ok
}

func sortedPositions(m map[VertexIndex]map[AtomPosition]struct{}, v VertexIndex) []AtomPosition {
	set, ok := m[v]
	if !ok {
		return nil
	}
	out := make([]AtomPosition, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CrossedAt reports whether v was visited at the same atom position from
// both the bottom-up pass (walking up from the query's lead token) and the
// top-down pass (descending back from a matched root): the signal that this
// vertex's own children, not just its ancestry, must be considered by the
// split engine when carving out a new boundary (SPEC_FULL.md §5, "trace
// cache keyed bottom-up vs top-down").
func (c *TraceCache) CrossedAt(v VertexIndex) bool {
	return seqs.Overlap(sortedPositions(c.bottomUp, v), sortedPositions(c.topDown, v))
}

// Response is the result of a search (spec §3 "Response").
type Response struct {
	// Cursor is the query cursor at the last confirmed checkpoint (or at
	// exhaustion, for a Complete/QueryExhausted result).
	Cursor *Cursor
	// Coverage classifies the matched span against Root's pattern.
	Coverage PathCoverage
	// Reason names why the search stopped.
	Reason Reason
	// Root is the largest vertex found to cover (some span of) the query.
	Root Token
	// PatternID names which of Root's child patterns the match ran against.
	PatternID PatternId
	// StartIndex/EndIndex are the inclusive sub_index bounds, within
	// Root's pattern, of the matched span.
	StartIndex int
	EndIndex   int
	// Trace is the bottom-up/top-down visitation record collected during
	// the search, consumed by insert to build an InitInterval.
	Trace *TraceCache
}

// InitInterval is the hand-off from search to insert (spec §3
// "InitInterval"): a root vertex, the trace cache populated while finding
// it, and a non-zero end bound.
type InitInterval struct {
	Root     Token
	Cache    *TraceCache
	EndBound AtomPosition
}

// NewInitInterval validates and constructs an InitInterval. It is rejected
// if end_bound is zero or the cache has no entry for the root vertex
// (spec §3 "InitInterval", scenario S6).
func NewInitInterval(root Token, cache *TraceCache, endBound AtomPosition) (*InitInterval, error) {
	if endBound == 0 {
		return nil, ErrInvalidEndBound
	}
	if cache == nil || !cache.Has(root.Index) {
		return nil, ErrInvalidEndBound
	}
	return &InitInterval{Root: root, Cache: cache, EndBound: endBound}, nil
}

// rootCandidate is one in-flight attempt to match the query against a
// particular child pattern of a particular root vertex (spec §4.5 "root
// candidate").
type rootCandidate struct {
	root       Token
	patternID  PatternId
	pattern    []Token
	startEntry int
	endEntry   int
	queryEnd   int // index into the query slice matched through, inclusive

	// pendingGraph holds the unconsumed trailing children of the pattern
	// slot at endEntry+1, left over when compare only matched its head
	// child; endEntry does not advance past that slot until pendingGraph
	// drains (spec §8 S2).
	pendingGraph []Token
	// pendingQuery holds the unconsumed trailing children of the query
	// token at queryEnd+1, symmetric to pendingGraph.
	pendingQuery []Token
}

// directVertex reports whether some vertex's own canonical pattern exactly
// equals query, letting Search return it immediately instead of discovering
// it by climbing parents one query atom at a time (spec §8 S4: once bc
// exists as its own vertex, searching [b,c] must find it directly).
func (s *Store[A]) directVertex(query []Token) (Token, PatternId, []Token, bool) {
	sig := signature(query)
	idx, ok := s.patternSig.Load(sig)
	if !ok {
		return Token{}, PatternId{}, nil, false
	}
	v := s.Vertex(idx)
	if v == nil {
		return Token{}, PatternId{}, nil, false
	}
	v.RLock()
	defer v.RUnlock()
	for _, p := range v.Patterns() {
		if signature(p.Tokens) == sig {
			return v.Token(), p.ID, append([]Token(nil), p.Tokens...), true
		}
	}
	return Token{}, PatternId{}, nil, false
}

// Search locates the largest ancestor vertex that covers query, following
// the BFS-over-root-candidates driver of spec §4.5.
func (s *Store[A]) Search(query []Token) (*Response, error) {
	if len(query) == 0 {
		return nil, ErrEmptyPattern
	}
	if len(query) == 1 {
		return nil, &SingleIndexError{Token: query[0]}
	}

	trace := newTraceCache()

	if root, pid, tokens, ok := s.directVertex(query); ok {
		rc := rootCandidate{root: root, patternID: pid, pattern: tokens, startEntry: 0, endEntry: len(tokens) - 1, queryEnd: len(query) - 1}
		return s.respond(rc, query, ReasonQueryExhausted, trace), nil
	}

	queue := s.seedRootCandidates(query[0], 0, trace)
	if len(queue) == 0 {
		return nil, ErrNoMatch
	}

	for len(queue) > 0 {
		rc := queue[0]
		queue = queue[1:]

		for {
			usingPendingQuery := len(rc.pendingQuery) > 0
			usingPendingGraph := len(rc.pendingGraph) > 0

			nextQueryIdx := rc.queryEnd + 1
			nextGraphIdx := rc.endEntry + 1

			var queryLeaf Token
			if usingPendingQuery {
				queryLeaf = rc.pendingQuery[0]
			} else {
				if nextQueryIdx >= len(query) {
					return s.respond(rc, query, ReasonQueryExhausted, trace), nil
				}
				queryLeaf = query[nextQueryIdx]
			}

			var graphLeaf Token
			childExhausted := false
			if usingPendingGraph {
				graphLeaf = rc.pendingGraph[0]
			} else {
				childExhausted = nextGraphIdx >= len(rc.pattern)
				if !childExhausted {
					graphLeaf = rc.pattern[nextGraphIdx]
				}
			}

			verdict := verdictMismatch
			if !childExhausted {
				trace.recordTopDown(rc.root.Index, AtomPosition(nextQueryIdx))

				cs := newCompareState[A](
					&Cursor{Path: NewRolePath(PatternRoot{Tokens: []Token{graphLeaf}}, RoleEnd, 0), Position: AtomPosition(rc.queryEnd), Phase: PhaseMatched},
					&Cursor{Path: NewRolePath(PatternRoot{Tokens: []Token{queryLeaf}}, RoleEnd, 0), Position: AtomPosition(rc.queryEnd), Phase: PhaseMatched},
					graphLeaf,
				)
				var finalSt *compareState[A]
				verdict, finalSt = compare[A](s, cs)

				if verdict == verdictFoundMatch {
					graphRem := trailingSiblings(s, finalSt.child.Active().Path)
					queryRem := trailingSiblings(s, finalSt.query.Active().Path)

					if usingPendingGraph {
						rc.pendingGraph = rc.pendingGraph[1:]
					}
					if usingPendingQuery {
						rc.pendingQuery = rc.pendingQuery[1:]
					}
					rc.pendingGraph = append(append([]Token(nil), graphRem...), rc.pendingGraph...)
					rc.pendingQuery = append(append([]Token(nil), queryRem...), rc.pendingQuery...)

					if len(rc.pendingGraph) == 0 {
						rc.endEntry = nextGraphIdx
					}
					if len(rc.pendingQuery) == 0 {
						rc.queryEnd = nextQueryIdx
					}
					continue
				}
			}

			progressed := rc.endEntry > rc.startEntry
			canWiden := rc.startEntry == 0 && !usingPendingGraph
			if (childExhausted || !progressed) && canWiden {
				wider := s.seedRootCandidates(rc.root, rc.queryEnd, trace)
				if len(wider) > 0 {
					queue = append(queue, wider...)
					break
				}
			}
			if childExhausted || progressed {
				if progressed || rc.startEntry == 0 {
					reason := ReasonMismatch
					if childExhausted {
						reason = ReasonChildExhausted
					}
					return s.respond(rc, query, reason, trace), nil
				}
			}
			// Mismatch, zero progress, no wider context to try (or this
			// candidate only ever covered a suffix of its own pattern and
			// so can't stand in for the whole child when climbing): this
			// branch is a dead end. Abandon it and let the BFS try the
			// next queued root candidate.
			break
		}
	}

	return nil, ErrNoMatch
}

// seedRootCandidates enumerates the occurrences of token as a child of some
// other vertex and turns each into a rootCandidate carrying queryEnd
// forward unchanged (spec §4.4 gen_parent_batch / next_batch).
func (s *Store[A]) seedRootCandidates(token Token, queryEnd int, trace *TraceCache) []rootCandidate {
	occs := parentOccurrences(s, token)
	out := make([]rootCandidate, 0, len(occs))
	for _, occ := range occs {
		v := s.Vertex(occ.Parent.Index)
		if v == nil {
			continue
		}
		v.RLock()
		p, ok := v.Pattern(occ.PatternID)
		var tokens []Token
		if ok {
			tokens = append([]Token(nil), p.Tokens...)
		}
		v.RUnlock()
		if !ok {
			continue
		}
		trace.recordBottomUp(occ.Parent.Index, AtomPosition(queryEnd))
		out = append(out, rootCandidate{
			root:       occ.Parent,
			patternID:  occ.PatternID,
			pattern:    tokens,
			startEntry: occ.Sub,
			endEntry:   occ.Sub,
			queryEnd:   queryEnd,
		})
	}
	return out
}

func (s *Store[A]) respond(rc rootCandidate, query []Token, reason Reason, trace *TraceCache) *Response {
	cov := coverageOf(rc.startEntry, rc.endEntry, len(rc.pattern))

	// On-mismatch path correction (Open Question Q1): clamp the reported
	// query cursor to checkpoint + actually-matched atoms, never beyond.
	matchedThrough := rc.queryEnd
	if matchedThrough >= len(query) {
		matchedThrough = len(query) - 1
	}

	cursorPath := NewRolePath(PatternRoot{Tokens: query}, RoleEnd, matchedThrough)
	cursor := &Cursor{Path: cursorPath, Position: AtomPosition(widthSum(query[:matchedThrough+1])), Phase: PhaseMatched}

	return &Response{
		Cursor:     cursor,
		Coverage:   cov,
		Reason:     reason,
		Root:       rc.root,
		PatternID:  rc.patternID,
		StartIndex: rc.startEntry,
		EndIndex:   rc.endEntry,
		Trace:      trace,
	}
}
