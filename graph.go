package graph

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Graph is the public entry point: a hypergraph-of-patterns store plus the
// search/insert/read operations layered over it, wired with optional
// structured tracing (spec §6 "Public API").
type Graph[A comparable] struct {
	store  *Store[A]
	online *OnlineManager[A]
	tracer *tracer
	cfg    *config
}

// NewGraph constructs an empty graph.
func NewGraph[A comparable](opts ...GraphOption) *Graph[A] {
	cfg := defaultConfig()
	for _, o := range opts {
		o.apply(cfg)
	}
	s := newStore[A](cfg.internShards)
	return &Graph[A]{
		store:  s,
		online: NewOnlineManager[A](s),
		tracer: newTracer(cfg.logHandler),
		cfg:    cfg,
	}
}

// InsertAtom interns a single atom, returning its token (spec §4.1
// "insert_atom").
func (g *Graph[A]) InsertAtom(atom A) Token {
	return g.store.InsertAtom(atom)
}

// Insert stores pattern as a new vertex, or returns the existing token for
// an identical pattern (spec §6 "insert").
func (g *Graph[A]) Insert(ctx context.Context, pattern []Token) (Token, error) {
	start := time.Now()
	tok, err := g.store.InsertPattern(pattern)
	lvl := slog.LevelInfo
	if err != nil {
		lvl = slog.LevelWarn
	}
	g.tracer.summary(ctx, "insert", start, lvl, slog.Int("width", len(pattern)))
	return tok, err
}

// Search locates the largest ancestor vertex covering query (spec §6
// "search").
func (g *Graph[A]) Search(ctx context.Context, query []Token) (*Response, error) {
	start := time.Now()
	resp, err := g.store.Search(query)
	if err != nil {
		g.tracer.summary(ctx, "search", start, slog.LevelWarn, slog.String("error", err.Error()))
		return nil, err
	}
	g.tracer.summary(ctx, "search", start, responseLevel(resp.Coverage, resp.Reason),
		slog.String("coverage", resp.Coverage.String()),
		slog.String("reason", resp.Reason.String()),
	)
	return resp, nil
}

// InsertOrGetComplete searches for pattern first and, only if the result is
// not already Complete, falls through to the split/join engine to carve out
// a vertex covering exactly pattern (spec §5 "found-complete shortcut",
// grounded on original_source's `insert_or_get_complete`). A single-token
// pattern yields that token itself.
func (g *Graph[A]) InsertOrGetComplete(ctx context.Context, pattern []Token) (Token, *Response, error) {
	resp, err := g.Search(ctx, pattern)
	if err != nil {
		var single *SingleIndexError
		if errors.As(err, &single) {
			return single.Token, nil, nil
		}
		if errors.Is(err, ErrNoMatch) {
			tok, insertErr := g.Insert(ctx, pattern)
			return tok, nil, insertErr
		}
		return Token{}, nil, err
	}
	if resp.Coverage == CoverageComplete && resp.Reason == ReasonQueryExhausted {
		return resp.Root, resp, nil
	}

	root := g.store.Vertex(resp.Root.Index)
	if root == nil {
		return Token{}, resp, ErrInvalidPattern
	}

	p, ok := root.Pattern(resp.PatternID)
	if !ok {
		return Token{}, resp, ErrInvalidPattern
	}
	offs := p.cumulativeOffsets()
	startOffset := offs[resp.StartIndex]
	endOffset := offs[resp.EndIndex] + p.Tokens[resp.EndIndex].Width

	g.tracer.step(ctx, "split candidate",
		slog.Uint64("root", uint64(resp.Root.Index)),
		slog.Bool("trace_crossed", resp.Trace.CrossedAt(resp.Root.Index)),
	)

	root.RLock()
	plan := computeSplitPlan[A](g.store, root, startOffset, endOffset)
	root.RUnlock()

	tok, err := g.store.JoinSplit(plan)
	return tok, resp, err
}

// FindAncestor searches for pattern and reports whether the match reaches
// all the way to some vertex's own full span (spec §6 "find_ancestor").
func (g *Graph[A]) FindAncestor(ctx context.Context, pattern []Token) (Token, bool, error) {
	resp, err := g.Search(ctx, pattern)
	if err != nil {
		return Token{}, false, err
	}
	return resp.Root, resp.Coverage == CoverageComplete, nil
}

// FindParent searches for pattern and returns the immediate parent vertex
// the match was found within, regardless of coverage (spec §6
// "find_parent").
func (g *Graph[A]) FindParent(ctx context.Context, pattern []Token) (Token, error) {
	resp, err := g.Search(ctx, pattern)
	if err != nil {
		return Token{}, err
	}
	return resp.Root, nil
}

// FindSequence interns each atom of chars and searches for the resulting
// token sequence (spec §6 "find_sequence").
func (g *Graph[A]) FindSequence(ctx context.Context, chars []A) (*Response, error) {
	query := make([]Token, len(chars))
	for i, c := range chars {
		query[i] = g.store.InsertAtom(c)
	}
	return g.Search(ctx, query)
}

// ReadSequence streams chars into the online root manager one atom at a
// time and commits the resulting band, returning the new root token
// (spec §6 "read_sequence").
func (g *Graph[A]) ReadSequence(ctx context.Context, chars []A) (Token, error) {
	start := time.Now()
	for _, c := range chars {
		tok := g.store.InsertAtom(c)
		if _, err := g.online.AppendToken(tok); err != nil {
			return Token{}, err
		}
	}
	root, err := g.online.CommitState()
	lvl := slog.LevelInfo
	if err != nil {
		lvl = slog.LevelWarn
	}
	g.tracer.summary(ctx, "read_sequence", start, lvl, slog.Int("atoms", len(chars)))
	return root, err
}

// Vertex exposes direct vertex lookup for callers that already hold a
// Token, e.g. to inspect a pattern after Search or Insert.
func (g *Graph[A]) Vertex(index VertexIndex) *Vertex[A] {
	return g.store.Vertex(index)
}

// Len returns the number of vertices currently in the graph.
func (g *Graph[A]) Len() int {
	return g.store.Len()
}
