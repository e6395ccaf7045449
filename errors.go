package graph

import (
	"errors"
	"fmt"
)

// Sentinel errors returned at the API boundary (spec §7, "Invalid input") and
// for graph-integrity lookup failures. Callers should use errors.Is against
// these, not string matching, exactly as fox's ErrRouteNotFound/ErrRouteExist
// are meant to be consumed.
var (
	// ErrEmptyPattern is returned when search or insert is called with a
	// zero-token pattern.
	ErrEmptyPattern = errors.New("graph: empty pattern")

	// ErrInvalidEndBound is returned when an InitInterval carries a zero
	// end_bound, or when its trace cache has no entry for the root vertex.
	ErrInvalidEndBound = errors.New("graph: invalid end bound")

	// ErrNoMatch is returned by search when no root candidate, however
	// partial, could be explored (e.g. the lead atom was never interned).
	ErrNoMatch = errors.New("graph: no match")

	// ErrInvalidPattern is returned when a PatternId does not name a pattern
	// on the vertex it is looked up against.
	ErrInvalidPattern = errors.New("graph: invalid pattern id")

	// ErrInvalidChild is returned when a sub_index does not name a token
	// inside the pattern it is looked up against.
	ErrInvalidChild = errors.New("graph: invalid child index")

	// ErrNoTokenPatterns is returned when a vertex with no children mapping
	// is asked for a child pattern.
	ErrNoTokenPatterns = errors.New("graph: vertex has no child patterns")

	// ErrReasoningParent is returned when a ChildLocation names a parent
	// vertex that does not, in fact, contain the expected child at that
	// location.
	ErrReasoningParent = errors.New("graph: cannot reason about parent at this index")

	// ErrConcurrentWrite is raised if two write operations (Insert/Read) are
	// attempted concurrently; like fox's Tree, write paths are not
	// serialized internally and must be serialized by the caller.
	ErrConcurrentWrite = errors.New("graph: concurrent write detected")
)

// SingleIndexError is returned by Search (and surfaced by Insert) when the
// query pattern reduces to a single token: the caller should use the token
// itself rather than search or insert for it. It wraps [ErrSingleIndex] so
// callers can use errors.As to recover the token. It carries only the token;
// no partial path is recorded.
type SingleIndexError struct {
	// Token is the would-be token the single-element pattern denotes.
	Token Token
}

func (e *SingleIndexError) Error() string {
	return fmt.Sprintf("graph: pattern is a single token %v, use it directly", e.Token)
}

// Unwrap returns the sentinel value [ErrSingleIndex].
func (e *SingleIndexError) Unwrap() error {
	return ErrSingleIndex
}

// ErrSingleIndex is the sentinel wrapped by [SingleIndexError].
var ErrSingleIndex = errors.New("graph: single-element pattern")

// VertexIntegrityError reports a violation of one of the invariants I1-I5 of
// spec §3, detected while validating a mutation before it is committed. The
// operation that produced it is aborted and the store is left unmodified, as
// required by spec §7 ("Invariant violations").
type VertexIntegrityError struct {
	// Vertex is the index of the vertex that failed validation.
	Vertex VertexIndex
	// Invariant names the violated invariant, e.g. "I1".
	Invariant string
	// Detail gives a human-readable explanation.
	Detail string
}

func (e *VertexIntegrityError) Error() string {
	return fmt.Sprintf("graph: vertex %d violates invariant %s: %s", e.Vertex, e.Invariant, e.Detail)
}

// Unwrap allows errors.Is(err, ErrVertexIntegrity).
func (e *VertexIntegrityError) Unwrap() error {
	return ErrVertexIntegrity
}

// ErrVertexIntegrity is the sentinel wrapped by [VertexIntegrityError].
var ErrVertexIntegrity = errors.New("graph: vertex integrity violation")
