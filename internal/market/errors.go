package market

import (
	"errors"
	"fmt"
)

// ErrNoBars is returned when the input holds a header but no rows.
var ErrNoBars = errors.New("market: no bars in input")

// MalformedInputError reports an unparsable or missing input field. It is
// fatal for the whole run.
type MalformedInputError struct {
	Line  int
	Field string
	Value string
	Err   error
}

func (e *MalformedInputError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("malformed input: field %s: %v", e.Field, e.Err)
	}
	if e.Value == "" {
		return fmt.Sprintf("malformed input at line %d: field %s: %v", e.Line, e.Field, e.Err)
	}
	return fmt.Sprintf("malformed input at line %d: field %s (%q): %v", e.Line, e.Field, e.Value, e.Err)
}

func (e *MalformedInputError) Unwrap() error {
	return e.Err
}

var (
	errMissingColumn = errors.New("required column missing from header")
	errMissingValue  = errors.New("required value is empty")
	errNegative      = errors.New("value must not be negative")
	errNotFinite     = errors.New("value must be a finite number")
)
