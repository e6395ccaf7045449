package graph

// OnlineManager streams tokens into a graph incrementally, maintaining the
// current root (the largest vertex built so far from the stream) and the
// band of tokens accumulated since the last commit (spec §4.8 "Online root
// manager").
type OnlineManager[A comparable] struct {
	store *Store[A]
	root  *Token
	band  []Token

	// preBandRoot snapshots root as it stood before the current band began
	// accumulating, so CommitState can reconcile the whole band against the
	// root that predates it rather than the live, incrementally-appended
	// one AppendToken has since produced.
	preBandRoot *Token
}

// NewOnlineManager creates an online manager with no standing root yet.
func NewOnlineManager[A comparable](s *Store[A]) *OnlineManager[A] {
	return &OnlineManager[A]{store: s}
}

// Root returns the current root token, if any token has been appended yet.
func (m *OnlineManager[A]) Root() (Token, bool) {
	if m.root == nil {
		return Token{}, false
	}
	return *m.root, true
}

// Band returns the tokens accumulated since the last commit, for callers
// that want to inspect pending state before committing.
func (m *OnlineManager[A]) Band() []Token {
	return append([]Token(nil), m.band...)
}

// firstRootExclusivePattern returns the token sequence of the root's sole
// child pattern, and whether the root is in fact exclusively owned (a
// single child pattern, no parents recorded against it yet).
func (m *OnlineManager[A]) firstRootExclusivePattern() ([]Token, bool) {
	rv := m.store.Vertex(m.root.Index)
	if rv == nil {
		return nil, false
	}
	rv.RLock()
	defer rv.RUnlock()
	if rv.PatternCount() != 1 || len(rv.Parents()) != 0 {
		return nil, false
	}
	return append([]Token(nil), rv.Patterns()[0].Tokens...), true
}

// extendExclusiveRoot folds t into root's sole existing pattern by recording
// both the straightforward extension [root, t] and the overlap-bundled
// regrouping that replaces the pattern's last child with its combination
// with t: e.g. root = aa = [a,a] extended by a third a yields aaa with
// patterns [aa,a] and [a,aa], the latter reusing aa itself wherever its own
// canonical signature recurs. This mirrors the O1/O2 alternative-decomposition
// bookkeeping the join engine performs at commit time (spec §4.7), applied
// here at append time so the narrower root the pattern grew from keeps
// standing as its own vertex instead of being mutated away (spec §8 S5).
func (s *Store[A]) extendExclusiveRoot(root Token, pattern []Token, t Token) (Token, error) {
	last := pattern[len(pattern)-1]
	innerNew, err := s.insertOrSingle([]Token{last, t})
	if err != nil {
		return Token{}, err
	}

	bundled := append(append([]Token(nil), pattern[:len(pattern)-1]...), innerNew)
	next, err := s.insertOrSingle(bundled)
	if err != nil {
		return Token{}, err
	}

	if err := s.AddPatternWithUpdate(next, []Token{root, t}); err != nil {
		return Token{}, err
	}
	return next, nil
}

// AppendToken folds one more token into the standing root: the root becomes
// t if there is none yet; if the root is still exclusively owned (a single
// child pattern, no parents recorded against it) a wider vertex is built by
// extendExclusiveRoot and the old root vertex is left unchanged; otherwise a
// fresh [root, t] pattern is inserted (spec §4.8 "append_token").
func (m *OnlineManager[A]) AppendToken(t Token) (Token, error) {
	if len(m.band) == 0 {
		m.preBandRoot = nil
		if m.root != nil {
			snap := *m.root
			m.preBandRoot = &snap
		}
	}
	m.band = append(m.band, t)

	if m.root == nil {
		m.root = &t
		return t, nil
	}

	if pattern, ok := m.firstRootExclusivePattern(); ok {
		next, err := m.store.extendExclusiveRoot(*m.root, pattern, t)
		if err != nil {
			return Token{}, err
		}
		m.root = &next
		return next, nil
	}

	next, err := m.store.InsertPattern([]Token{*m.root, t})
	if err != nil {
		return Token{}, err
	}
	m.root = &next
	return next, nil
}

// firstChild returns the head token of t's first recorded child pattern,
// and whether t is in fact composite.
func (s *Store[A]) firstChild(t Token) (Token, bool) {
	v := s.Vertex(t.Index)
	if v == nil {
		return Token{}, false
	}
	v.RLock()
	defer v.RUnlock()
	pats := v.Patterns()
	if len(pats) == 0 || len(pats[0].Tokens) == 0 {
		return Token{}, false
	}
	return pats[0].Tokens[0], true
}

// detectOverlap reports whether root and the incoming band exhibit a
// cursor overlap (O1: root is atomic and equals band's first token) or a
// compound overlap (O2: root's last child equals the first child of band's
// first token), per spec §4.7.
func (s *Store[A]) detectOverlap(root Token, band []Token) bool {
	if len(band) == 0 {
		return false
	}
	if root.Width == 1 {
		return root.Index == band[0].Index
	}

	v := s.Vertex(root.Index)
	if v == nil {
		return false
	}
	v.RLock()
	pats := v.Patterns()
	v.RUnlock()
	if len(pats) == 0 {
		return false
	}
	last := pats[0].Tokens[len(pats[0].Tokens)-1]

	bandHeadChild, ok := s.firstChild(band[0])
	if !ok {
		return false
	}
	return last.Index == bandHeadChild.Index
}

// CommitState collapses the accumulated band into a single append pattern
// against the standing root, applying the overlap rules of spec §4.7: when
// an overlap is detected, both the literal (non-deduplicating) decomposition
// and the overlap-aware decomposition are inserted, so that every
// decomposition the engine has witnessed remains recorded even though only
// one vertex exists per true atom span. It returns the new root token.
func (m *OnlineManager[A]) CommitState() (Token, error) {
	if len(m.band) == 0 {
		if m.root == nil {
			return Token{}, ErrEmptyPattern
		}
		return *m.root, nil
	}
	band := m.band
	preRoot := m.preBandRoot
	m.band = nil
	m.preBandRoot = nil

	if preRoot == nil {
		// The band started with no standing root at all: AppendToken already
		// folded every one of its tokens into m.root incrementally (directly,
		// then via extendExclusiveRoot/InsertPattern), so root already denotes
		// the band's full span. Re-inserting band from scratch here would
		// build a second, flat-pattern vertex for the same atom span
		// (spec §8 S5: aaa must carry only its two witnessed
		// decompositions, not a third).
		return *m.root, nil
	}

	root := *preRoot
	if !m.store.detectOverlap(root, band) || len(band) < 2 {
		bundled, err := m.store.insertOrSingle(append([]Token{root}, band...))
		if err != nil {
			return Token{}, err
		}
		m.root = &bundled
		return bundled, nil
	}

	// Overlap-aware decomposition: extendedRoot absorbs the overlapping
	// atom plus the next token; rest covers whatever remains of band.
	extendedRoot, err := m.store.insertOrSingle([]Token{root, band[1]})
	if err != nil {
		return Token{}, err
	}

	var literal Token
	if len(band) > 2 {
		rest, err := m.store.insertOrSingle(band[2:])
		if err != nil {
			return Token{}, err
		}
		literal, err = m.store.insertOrSingle([]Token{extendedRoot, rest})
		if err != nil {
			return Token{}, err
		}
	} else {
		literal = extendedRoot
	}

	// The naive (non-deduplicating) decomposition: root followed by the
	// whole band bundled as presented, overlap atom included.
	bundledBand, err := m.store.insertOrSingle(band)
	if err != nil {
		return Token{}, err
	}
	if _, err := m.store.insertOrSingle([]Token{root, bundledBand}); err != nil {
		return Token{}, err
	}

	m.root = &literal
	return literal, nil
}
