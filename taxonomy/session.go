/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package taxonomy

import (
	"fmt"
	"slices"
)

// State tracks where a guessing session stands. Solved and Failed are
// terminal, every further operation on the session returns ErrSessionOver.
type State int

const (
	// StateSearching means no feedback has been applied yet.
	StateSearching State = iota

	// StateNarrowed means at least one round of feedback has shrunk the
	// candidate set.
	StateNarrowed

	// StateSolved means a guess was confirmed correct.
	StateSolved

	// StateFailed means feedback eliminated every candidate.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateSearching:
		return "searching"
	case StateNarrowed:
		return "narrowed"
	case StateSolved:
		return "solved"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the session has ended.
func (s State) Terminal() bool {
	return s == StateSolved || s == StateFailed
}

// Round records one guess and the feedback it earned. Clade is NoNode when
// the guess was confirmed correct.
type Round struct {
	Guess   NodeID
	Clade   NodeID
	Correct bool
}

// Session walks one game of narrowing candidates against a shared Tree. The
// candidate set only ever shrinks, and the round history is append-only, so
// a session cannot be rewound. Sessions are not safe for concurrent use.
type Session struct {
	tree       *Tree
	restricted NodeID
	candidates []NodeID
	excluded   map[NodeID]bool
	history    []Round
	state      State
	offPath    bool
}

type sessionOptions struct {
	clade      string
	exclusions []string
	offPath    bool
}

// SessionOption configures a new Session.
type SessionOption func(*sessionOptions)

// WithClade restricts the initial candidates to the species beneath the
// named clade. Unknown clade names fail session creation with an
// InvalidCladeError.
func WithClade(name string) SessionOption {
	return func(o *sessionOptions) {
		o.clade = name
	}
}

// WithExclusions removes the named species from the initial candidates,
// for example species already burned in earlier games. Names absent from
// the tree fail session creation rather than being silently dropped.
func WithExclusions(names ...string) SessionOption {
	return func(o *sessionOptions) {
		o.exclusions = append(o.exclusions, names...)
	}
}

// WithOffPathGuesses lets NextGuess propose species already ruled out as
// answers. An off-path guess can never be correct, but its feedback can
// split the surviving candidates more evenly.
func WithOffPathGuesses() SessionOption {
	return func(o *sessionOptions) {
		o.offPath = true
	}
}

// NewSession starts a session over the whole tree, or over a clade when so
// configured. Starting with zero candidates is an error.
func NewSession(t *Tree, opts ...SessionOption) (*Session, error) {
	var options sessionOptions
	for _, opt := range opts {
		opt(&options)
	}

	restricted := t.Root()

	if options.clade != "" {
		id, err := t.Clade(options.clade)
		if err != nil {
			return nil, &InvalidCladeError{Name: options.clade}
		}

		restricted = id
	}

	excluded := make(map[NodeID]bool)

	for _, name := range options.exclusions {
		id, err := t.Lookup(name)
		if err != nil {
			return nil, fmt.Errorf("exclusion: %w", err)
		}

		excluded[id] = true
	}

	var candidates []NodeID
	for _, id := range t.subtree(restricted) {
		if !excluded[id] {
			candidates = append(candidates, id)
		}
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w under clade %q", ErrNoCandidates, t.Name(restricted))
	}

	return &Session{
		tree:       t,
		restricted: restricted,
		candidates: candidates,
		excluded:   excluded,
		state:      StateSearching,
		offPath:    options.offPath,
	}, nil
}

// NextGuess scores the current candidates and returns the minimax guess for
// this round.
func (s *Session) NextGuess() (Guess, error) {
	if s.state.Terminal() {
		return Guess{Species: NoNode}, ErrSessionOver
	}

	pool := s.candidates
	if s.offPath {
		pool = s.tree.Leaves()
	}

	return bestGuess(s.tree, s.candidates, pool, s.excluded)
}

// ApplyFeedback records that guessing the given species revealed the given
// clade, and narrows the candidates accordingly. Feedback that leaves no
// candidate fails the session permanently and returns an
// InconsistentFeedbackError.
func (s *Session) ApplyFeedback(guess, clade NodeID) error {
	if s.state.Terminal() {
		return ErrSessionOver
	}

	s.history = append(s.history, Round{Guess: guess, Clade: clade})
	s.excluded[guess] = true

	next, err := ApplyFeedback(s.tree, s.candidates, guess, clade)
	if err != nil {
		s.state = StateFailed

		return err
	}

	s.candidates = next
	s.state = StateNarrowed

	return nil
}

// ApplyCorrect records that the given guess was the answer and ends the
// session.
func (s *Session) ApplyCorrect(guess NodeID) error {
	if s.state.Terminal() {
		return ErrSessionOver
	}

	s.history = append(s.history, Round{Guess: guess, Clade: NoNode, Correct: true})
	s.excluded[guess] = true
	s.candidates = []NodeID{guess}
	s.state = StateSolved

	return nil
}

// State returns the session's current state.
func (s *Session) State() State {
	return s.state
}

// Tree returns the tree the session runs against.
func (s *Session) Tree() *Tree {
	return s.tree
}

// Clade returns the clade the candidates were restricted to, the tree root
// when unrestricted.
func (s *Session) Clade() NodeID {
	return s.restricted
}

// Candidates returns a copy of the surviving candidate set.
func (s *Session) Candidates() []NodeID {
	return slices.Clone(s.candidates)
}

// Rounds returns the number of guesses made so far.
func (s *Session) Rounds() int {
	return len(s.history)
}

// History returns a copy of every round played so far, in order.
func (s *Session) History() []Round {
	return slices.Clone(s.history)
}
