package config

import "fmt"

// Configuration error codes (C001-C099).
const (
	ErrUnreadable    = "C001" // file could not be read
	ErrMalformed     = "C002" // YAML did not parse
	ErrReferenceDate = "C003" // reference date missing or not YYYY-MM-DD
	ErrDateFormat    = "C004" // unsupported date format directive
	ErrSeverity      = "C005" // unknown severity name
	ErrAlias         = "C006" // alias rule without match or canonical name, or a chained canonical
	ErrFieldList     = "C007" // consistency field lists are inconsistent
)

// Error is a configuration problem.
type Error struct {
	Code    string
	Path    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Path, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}
