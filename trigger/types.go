// Package trigger decides whether a direct edit to the brief deserves an
// unsolicited AI comment. It debounces rapid edits, classifies the change,
// and adapts its willingness to respond based on past dismissals.
package trigger

import "github.com/c360studio/briefwizard/brief"

// Type classifies why a brief change might warrant a comment.
type Type string

// Trigger types, roughly ordered by severity.
const (
	ConflictingRequirements Type = "conflicting-requirements"
	SignificantPivot        Type = "significant-pivot"
	ScopeExpansion          Type = "scope-expansion"
	MissingImplications     Type = "missing-implications"
	ClarificationNeeded     Type = "clarification-needed"
	SuggestionOpportunity   Type = "suggestion-opportunity"
)

// Priority ranks how strongly a trigger asks for a response.
type Priority string

// Trigger priorities.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Trigger is a detected brief change judged significant enough to possibly
// warrant an AI comment.
type Trigger struct {
	Type          Type            `json:"type"`
	Field         brief.FieldName `json:"field"`
	PreviousValue string          `json:"previous_value"`
	NewValue      string          `json:"new_value"`
	Significance  string          `json:"significance"`
	Priority      Priority        `json:"priority"`
}
