package monitoring

import (
	"errors"
	"fmt"
)

// ErrInvalidID is returned when an identifier cannot be used as a single node name.
var ErrInvalidID = errors.New("monitoring: invalid identifier")

// ParseError is returned when a stored value cannot be decoded, such as a retry count that is
// not a number or a job status that is not a known state.
type ParseError struct {
	Path  string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("monitoring: malformed value %q at [%s]: %v", e.Value, e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
