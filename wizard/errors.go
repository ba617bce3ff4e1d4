package wizard

import (
	"errors"
	"fmt"
)

// ErrDisposed is returned by operations invoked after Dispose.
var ErrDisposed = errors.New("wizard: service disposed")

// ErrNotReady is returned by CreateProject while the brief lacks the
// required fields or confidence.
var ErrNotReady = errors.New("wizard: brief is not ready for project creation")

// AnalysisError tags a collaborator failure. It is also recorded as the
// top-level conversation error so the consumer can offer a retry.
type AnalysisError struct {
	Op  string
	Err error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("wizard: %s: %v", e.Op, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }
