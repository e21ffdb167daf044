package engine

import (
	"errors"
	"fmt"
)

// EvalError is a failure while evaluating one rule against one record.
//
// Evaluation errors never abort a run: the engine recovers them per rule,
// counts them, and treats the rule as not fired for that record.
type EvalError struct {
	// Code identifies the error category.
	Code EvalErrorCode

	// RuleID identifies the rule being evaluated.
	RuleID string

	// Field is the record field involved, if any.
	Field string

	// Message is a human-readable description.
	Message string
}

// EvalErrorCode categorizes evaluation errors.
type EvalErrorCode string

const (
	// ErrCodeTypeMismatch indicates operands of incompatible types.
	ErrCodeTypeMismatch EvalErrorCode = "TYPE_MISMATCH"

	// ErrCodeBadLiteral indicates a rule literal that does not parse as
	// the field's type.
	ErrCodeBadLiteral EvalErrorCode = "BAD_LITERAL"

	// ErrCodeUnknownReference indicates a context date or keyword list that
	// is not defined.
	ErrCodeUnknownReference EvalErrorCode = "UNKNOWN_REFERENCE"

	// ErrCodePanic indicates a recovered panic.
	ErrCodePanic EvalErrorCode = "PANIC"
)

// Error implements the error interface.
func (e *EvalError) Error() string {
	switch {
	case e.RuleID != "" && e.Field != "":
		return fmt.Sprintf("%s: %s (rule=%s, field=%s)", e.Code, e.Message, e.RuleID, e.Field)
	case e.RuleID != "":
		return fmt.Sprintf("%s: %s (rule=%s)", e.Code, e.Message, e.RuleID)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// ErrorCode returns the EvalErrorCode of err, or "" when err is not an
// EvalError. Uses errors.As to handle wrapped errors.
func ErrorCode(err error) EvalErrorCode {
	var ee *EvalError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

func typeMismatch(field, format string, args ...any) *EvalError {
	return &EvalError{Code: ErrCodeTypeMismatch, Field: field, Message: fmt.Sprintf(format, args...)}
}

func badLiteral(field, literal, want string) *EvalError {
	return &EvalError{Code: ErrCodeBadLiteral, Field: field, Message: fmt.Sprintf("literal %q is not a %s", literal, want)}
}

func unknownReference(kind, name string) *EvalError {
	return &EvalError{Code: ErrCodeUnknownReference, Message: fmt.Sprintf("%s %q is not defined", kind, name)}
}
