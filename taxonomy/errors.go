/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package taxonomy

import (
	"errors"
	"fmt"
)

// Parse errors
var (
	// ErrEmptyTree indicates that the tree source contained no usable lines.
	ErrEmptyTree = errors.New("empty tree")

	// ErrMalformedTree indicates that the tree source violated the indentation
	// hierarchy (for example, a depth jump of more than one level).
	ErrMalformedTree = errors.New("malformed tree")
)

// Query errors
var (
	// ErrNotFound indicates that a species or clade name is absent from the tree.
	ErrNotFound = errors.New("name not found")

	// ErrInvalidClade indicates that a clade restriction names an unknown clade.
	ErrInvalidClade = errors.New("invalid clade restriction")
)

// Session errors
var (
	// ErrNoCandidates indicates that no candidate species remain to choose from.
	ErrNoCandidates = errors.New("no candidates remain")

	// ErrInconsistentFeedback indicates that applying feedback eliminated every
	// candidate, meaning the feedback contradicts the tree.
	ErrInconsistentFeedback = errors.New("feedback eliminates every candidate")

	// ErrSessionOver indicates an operation on a solved or failed session.
	ErrSessionOver = errors.New("session already ended")
)

// ParseError describes why tree construction failed, including the offending
// line when one exists. It unwraps to ErrEmptyTree or ErrMalformedTree.
type ParseError struct {
	Line   int    // 1-based line number, 0 if not line-specific
	Text   string // offending line, verbatim
	Reason string

	err error
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("parse tree: %s", e.Reason)
	}
	return fmt.Sprintf("parse tree: line %d %q: %s", e.Line, e.Text, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.err
}

// NotFoundError reports a species or clade name missing from the tree, so a
// list/tree mismatch can be surfaced instead of silently dropped.
type NotFoundError struct {
	Kind string // "species" or "clade"
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found in tree", e.Kind, e.Name)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// InvalidCladeError rejects a clade restriction before any round starts.
type InvalidCladeError struct {
	Name string
}

func (e *InvalidCladeError) Error() string {
	return fmt.Sprintf("clade restriction %q not found in tree", e.Name)
}

func (e *InvalidCladeError) Unwrap() error {
	return ErrInvalidClade
}

// InconsistentFeedbackError reports feedback that no remaining candidate can
// satisfy. The session that produced it is failed rather than guessing blindly.
type InconsistentFeedbackError struct {
	Guess string
	Clade string
}

func (e *InconsistentFeedbackError) Error() string {
	return fmt.Sprintf("no candidate shares ancestor %q with guess %q", e.Clade, e.Guess)
}

func (e *InconsistentFeedbackError) Unwrap() error {
	return ErrInconsistentFeedback
}
