package install

import (
	"errors"
	"fmt"
)

// Code classifies install failures.
type Code string

const (
	// CodeMissingTarget means the application's install directory could not be found.
	CodeMissingTarget Code = "MISSING_TARGET"
	// CodeIO means a filesystem operation failed.
	CodeIO Code = "IO_FAILURE"
	// CodeMalformedArchive means the archive was readable but unusable, for
	// example because no mod name can be derived from it.
	CodeMalformedArchive Code = "MALFORMED_ARCHIVE"
)

// Sentinels for errors.Is. They match any *Error with the same code.
var (
	ErrMissingTarget    = &Error{Code: CodeMissingTarget}
	ErrIO               = &Error{Code: CodeIO}
	ErrMalformedArchive = &Error{Code: CodeMalformedArchive}
)

// Error is the failure returned by Install. Op names the step that failed.
type Error struct {
	Code Code
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op == "" && e.Err == nil:
		return string(e.Code)
	case e.Err == nil:
		return fmt.Sprintf("%s failed", e.Op)
	case e.Op == "":
		return e.Err.Error()
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on code. A malformed archive also counts as an IO failure.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	if e.Code == t.Code {
		return true
	}
	return e.Code == CodeMalformedArchive && t.Code == CodeIO
}

// wrap tags err with the operation that produced it.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: CodeIO, Op: op, Err: err}
}

func malformed(op string, err error) error {
	return &Error{Code: CodeMalformedArchive, Op: op, Err: err}
}
