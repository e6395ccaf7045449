package graph

import "fmt"

// Phase tracks whether a cursor's current position is a confirmed match
// point, a tentative trial, or a rejected trial (spec §3 "Cursor").
// Transitions are one-way: Candidate -> Matched, Candidate -> Mismatched.
type Phase int

const (
	PhaseCandidate Phase = iota
	PhaseMatched
	PhaseMismatched
)

func (p Phase) String() string {
	switch p {
	case PhaseMatched:
		return "matched"
	case PhaseMismatched:
		return "mismatched"
	default:
		return "candidate"
	}
}

// Cursor is a (path, atom position, phase) triple: the query-side or
// graph-side position under comparison (spec §3 "Cursor", §4.2).
type Cursor struct {
	Path     *RolePath
	Position AtomPosition
	Phase    Phase
}

// NewCandidateCursor creates a fresh cursor in the Candidate phase.
func NewCandidateCursor(path *RolePath, pos AtomPosition) *Cursor {
	return &Cursor{Path: path, Position: pos, Phase: PhaseCandidate}
}

// MarkMatch promotes a Candidate cursor to Matched. It panics if the cursor
// is not currently a Candidate: the phase-state machine is enforced at
// runtime since Go has no first-class type state, but the transition is
// still one-way and every call site in this package only ever calls it on a
// freshly-compared candidate.
func (c *Cursor) MarkMatch() {
	if c.Phase != PhaseCandidate {
		panic(fmt.Sprintf("graph: internal error: MarkMatch on a %s cursor", c.Phase))
	}
	c.Phase = PhaseMatched
}

// MarkMismatch demotes a Candidate cursor to Mismatched.
func (c *Cursor) MarkMismatch() {
	if c.Phase != PhaseCandidate {
		panic(fmt.Sprintf("graph: internal error: MarkMismatch on a %s cursor", c.Phase))
	}
	c.Phase = PhaseMismatched
}

// Clone returns an independent copy of the cursor, including its path.
func (c *Cursor) Clone() *Cursor {
	return &Cursor{Path: c.Path.Clone(), Position: c.Position, Phase: c.Phase}
}

// Checkpointed couples a Matched checkpoint cursor with an optional
// Candidate cursor under trial. All advance steps of the comparison state
// machine operate on the candidate while the checkpoint stays immutable
// until the candidate is confirmed (spec §3 "Checkpointed").
type Checkpointed struct {
	Checkpoint *Cursor
	Candidate  *Cursor
}

// NewCheckpointed creates a Checkpointed cursor with no candidate yet.
func NewCheckpointed(checkpoint *Cursor) *Checkpointed {
	if checkpoint.Phase != PhaseMatched {
		panic("graph: internal error: checkpoint must start in the Matched phase")
	}
	return &Checkpointed{Checkpoint: checkpoint}
}

// StartCandidate begins a new trial from the current checkpoint.
func (c *Checkpointed) StartCandidate() *Cursor {
	cand := c.Checkpoint.Clone()
	cand.Phase = PhaseCandidate
	c.Candidate = cand
	return cand
}

// ConfirmMatch slides the candidate over the checkpoint: the candidate must
// already be Matched (spec §4.2 "confirm_match").
func (c *Checkpointed) ConfirmMatch() {
	if c.Candidate == nil || c.Candidate.Phase != PhaseMatched {
		panic("graph: internal error: ConfirmMatch requires a Matched candidate")
	}
	c.Checkpoint = c.Candidate
	c.Candidate = nil
}

// Reject drops the candidate, leaving the checkpoint untouched
// (spec §4.2 "reject").
func (c *Checkpointed) Reject() {
	if c.Candidate == nil || c.Candidate.Phase != PhaseMismatched {
		panic("graph: internal error: Reject requires a Mismatched candidate")
	}
	c.Candidate = nil
}

// Active returns the cursor the comparison state machine should currently be
// reasoning about: the candidate if one is in flight, otherwise the
// checkpoint itself.
func (c *Checkpointed) Active() *Cursor {
	if c.Candidate != nil {
		return c.Candidate
	}
	return c.Checkpoint
}
