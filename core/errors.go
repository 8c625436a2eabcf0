package lisper

import (
	"errors"
	"fmt"
)

// Sentinels classify a failure. They are matched with errors.Is; the text a
// host displays is always the Reason of the wrapping *Error.
var (
	ErrEmptyInput           = errors.New("empty input")
	ErrUnterminatedList     = errors.New("unterminated list")
	ErrUnexpectedCloseParen = errors.New("unexpected close paren")
	ErrUnboundSymbol        = errors.New("unbound symbol")
	ErrUnexpectedCallable   = errors.New("unexpected callable")
	ErrEmptyExpression      = errors.New("empty expression")
	ErrArity                = errors.New("arity mismatch")
	ErrInvalidCondition     = errors.New("invalid condition")
	ErrUnknownOperator      = errors.New("unknown operator")
	ErrNotCallable          = errors.New("not callable")
	ErrInvalidCallHead      = errors.New("invalid call head")
)

// Error is the only error kind the interpreter returns.
type Error struct {
	Reason string
	kind   error
}

func (e *Error) Error() string { return e.Reason }

func (e *Error) Unwrap() error { return e.kind }

func reasonf(kind error, format string, args ...any) *Error {
	return &Error{Reason: fmt.Sprintf(format, args...), kind: kind}
}

func arityError(form string, expected int, got int, shape string) *Error {
	noun := "args"
	if expected == 1 {
		noun = "arg"
	}
	if shape != "" {
		return reasonf(ErrArity, "%s: expected %d %s (%s), got %d", form, expected, noun, shape, got)
	}
	return reasonf(ErrArity, "%s: expected %d %s, got %d", form, expected, noun, got)
}
