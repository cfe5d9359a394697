package etl

import (
	"errors"
	"fmt"
)

// Kind classifies transform outcomes so call sites can branch on a finite
// set instead of matching error text. Transform stages return these as plain
// error values; they are expected results of bad or missing data, not
// programming faults.
type Kind int

const (
	// KindEmptyInput: structurally valid input with zero rows.
	KindEmptyInput Kind = iota + 1
	// KindInvalidInput: not a table, or a ragged/ill-typed collection.
	KindInvalidInput
	// KindArityMismatch: the fact assembler did not receive exactly the
	// expected dimension tables.
	KindArityMismatch
	// KindJoinEmpty: all joins executed but matched zero rows. A data
	// quality signal, distinct from KindEmptyInput.
	KindJoinEmpty
	// KindUpstreamMissing: required dimension or fact data is absent before
	// a dependent step.
	KindUpstreamMissing
	// KindPersistence: the store rejected a read or write. The driver error
	// is attached as the cause.
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindEmptyInput:
		return "empty_input"
	case KindInvalidInput:
		return "invalid_input"
	case KindArityMismatch:
		return "arity_mismatch"
	case KindJoinEmpty:
		return "join_produced_no_rows"
	case KindUpstreamMissing:
		return "upstream_missing"
	case KindPersistence:
		return "persistence_failure"
	default:
		return "unknown"
	}
}

// Error is a classified pipeline error. Op names the stage that produced it.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Msg != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a classified error for a stage. Packages layered above the
// transforms (ingest, rebuild orchestration) use it to tag their own
// outcomes with the same taxonomy.
func NewError(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// WrapError attaches a cause, preserving it for errors.Is/As.
func WrapError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func newError(kind Kind, op, msg string) *Error        { return NewError(kind, op, msg) }
func wrapError(kind Kind, op string, err error) *Error { return WrapError(kind, op, err) }

// KindOf extracts the Kind from err, or 0 when err is not a pipeline error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsEmptyInput(err error) bool      { return KindOf(err) == KindEmptyInput }
func IsInvalidInput(err error) bool    { return KindOf(err) == KindInvalidInput }
func IsArityMismatch(err error) bool   { return KindOf(err) == KindArityMismatch }
func IsJoinEmpty(err error) bool       { return KindOf(err) == KindJoinEmpty }
func IsUpstreamMissing(err error) bool { return KindOf(err) == KindUpstreamMissing }
func IsPersistence(err error) bool     { return KindOf(err) == KindPersistence }
