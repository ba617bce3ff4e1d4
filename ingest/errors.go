// Package ingest validates, scans and extracts content from user-supplied
// attachments before they may enter the brief.
package ingest

import (
	"fmt"
	"strings"
)

// ValidationError reports a malformed upload. It is recorded per file and
// never aborts the rest of a batch.
type ValidationError struct {
	File   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("ingest: %s: %s", e.File, e.Reason)
}

// SecurityError reports a threat-scan hit. The file is rejected, the batch
// continues.
type SecurityError struct {
	File    string
	Threats []string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("ingest: %s: scan flagged: %s", e.File, strings.Join(e.Threats, ", "))
}

// LimitExceededError reports that a batch would push the session past the
// attachment cap. The whole batch is rejected before any per-file work.
type LimitExceededError struct {
	Limit     int
	Requested int
	Existing  int
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("ingest: %d files requested with %d already uploaded exceeds the limit of %d",
		e.Requested, e.Existing, e.Limit)
}
