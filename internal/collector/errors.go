package collector

import (
	"errors"
	"fmt"
)

var (
	// ErrNoData means no observation source was supplied at all.
	ErrNoData = errors.New("no observation data supplied")
	// ErrMissingField is matched by every MissingFieldError.
	ErrMissingField = errors.New("missing field")
	// ErrInvalidField is matched by every InvalidFieldError.
	ErrInvalidField = errors.New("invalid field")
)

// MissingFieldError reports an observation that lacks a required field.
// Row is 1-based over data rows; 0 means the header or the whole payload.
type MissingFieldError struct {
	Row   int
	Field string
}

func (e *MissingFieldError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("missing required field %q", e.Field)
	}
	return fmt.Sprintf("row %d: missing required field %q", e.Row, e.Field)
}

func (e *MissingFieldError) Is(target error) bool { return target == ErrMissingField }

// InvalidFieldError reports a field that is present but cannot be used.
type InvalidFieldError struct {
	Row   int
	Field string
	Value string
	Err   error
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("row %d: field %q value %q: %v", e.Row, e.Field, e.Value, e.Err)
}

func (e *InvalidFieldError) Is(target error) bool { return target == ErrInvalidField }

func (e *InvalidFieldError) Unwrap() error { return e.Err }
