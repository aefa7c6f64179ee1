package apptype

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every layer. Callers classify failures with
// errors.Is / errors.As rather than string matching.
var (
	// ErrNotFound is returned when a referenced entity or relationship does
	// not exist, including entities already removed by the cleanup sweep.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned for malformed requests: unknown enum
	// values, empty title/content, mismatched embedding dimensions, reused
	// identifiers, or a full domain.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInconsistent signals internal state drift, such as an index entry
	// pointing at an entity the store no longer holds.
	ErrInconsistent = errors.New("inconsistent state")
)

// DependencyError wraps a failure from an external dependency (embedding
// provider, database) with the operation that hit it.
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: dependency failure: %v", e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }
