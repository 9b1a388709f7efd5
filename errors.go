// Copyright (c) 2026 Silvano DAL ZILIO
//
// MIT License

package medd

import "fmt"

// Code identifies one member of the closed set of error conditions that
// operations in this library can report.
type Code int

const (
	// InsufficientMemory is reported when a node table or arena cannot grow,
	// even after a garbage collection cycle.
	InsufficientMemory Code = iota
	// InvalidVariable is reported when a variable handle is outside the
	// domain.
	InvalidVariable
	// InvalidLevel is reported when a level is outside the forest, or primed
	// in a forest that is not a relation.
	InvalidLevel
	// InvalidAssignment is reported for out-of-bound values in minterms, or
	// for a bound change that would truncate live values.
	InvalidAssignment
	// InvalidOperation is reported when an operation is applied to values it
	// is not defined on, such as a division by zero.
	InvalidOperation
	// TypeMismatch is reported when an operand kind (range or labeling) is
	// disallowed by the operation.
	TypeMismatch
	// DomainMismatch is reported when edges from different domains are mixed.
	DomainMismatch
	// ForestMismatch is reported when an operation receives operands from the
	// wrong forest.
	ForestMismatch
	// NotImplemented is reported when an operation is undefined for the
	// reduction rule or policies of the forest.
	NotImplemented
	// UnknownOperation is reported by the generic Apply entry point for
	// unregistered operation names.
	UnknownOperation
	// InvalidArgument is reported for malformed arguments, such as a
	// permutation that is not one.
	InvalidArgument
	// Miscellaneous covers internal errors that have no better code.
	Miscellaneous
)

var codenames = map[Code]string{
	InsufficientMemory: "insufficient memory",
	InvalidVariable:    "invalid variable",
	InvalidLevel:       "invalid level",
	InvalidAssignment:  "invalid assignment",
	InvalidOperation:   "invalid operation",
	TypeMismatch:       "type mismatch",
	DomainMismatch:     "domain mismatch",
	ForestMismatch:     "forest mismatch",
	NotImplemented:     "not implemented",
	UnknownOperation:   "unknown operation",
	InvalidArgument:    "invalid argument",
	Miscellaneous:      "miscellaneous",
}

func (c Code) String() string {
	return codenames[c]
}

// Error is the error type returned by all fallible operations. It pairs a
// Code from the taxonomy with a human readable message.
type Error struct {
	Code Code
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Code.String()
	}
	return e.Code.String() + ": " + e.Msg
}

// Is reports equality on the code alone, so that errors.Is can match against
// a bare &Error{Code: c}.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func errf(c Code, format string, a ...interface{}) *Error {
	return &Error{Code: c, Msg: fmt.Sprintf(format, a...)}
}
