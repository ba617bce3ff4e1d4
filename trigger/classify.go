package trigger

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/c360studio/briefwizard/brief"
)

// Classification thresholds. Growth is measured in characters between the
// baseline snapshot and the value present when the debounce timer fires.
const (
	objectiveGrowthThreshold   = 50
	descriptionChangeThreshold = 100
	longRoadmapPhases          = 6
	lowConfidenceThreshold     = 0.5
)

var (
	// deadlineVocab marks objectives that carry schedule pressure; scope
	// growth against a stated deadline reads as a conflict, not ambition.
	deadlineVocab = regexp.MustCompile(`(?i)\b(deadline|due|by (monday|tuesday|wednesday|thursday|friday|saturday|sunday|january|february|march|april|may|june|july|august|september|october|november|december|q[1-4])|within \d+|in \d+ (days?|weeks?|months?))\b`)

	// lifecycleVocab marks deliverables that imply process the brief may
	// not account for yet (environments, sign-off, operations).
	lifecycleVocab = regexp.MustCompile(`(?i)\b(review|testing|tests|qa|deploy|deployment|release|launch|monitoring|staging)\b`)
)

// classify compares the baseline snapshot against the edited state for one
// field and returns a partially-filled trigger (type, field, values). The
// second return is false when the change is not worth commenting on.
func classify(prev, next brief.State, field brief.FieldName) (Trigger, bool) {
	t := Trigger{Field: field}
	switch field {
	case brief.FieldProjectType:
		if prev.Type.Value == next.Type.Value {
			return t, false
		}
		// A project type change is always a pivot.
		t.Type = SignificantPivot
		t.PreviousValue = prev.Type.Value
		t.NewValue = next.Type.Value
		return t, true

	case brief.FieldObjective:
		oldV, newV := prev.Objective.Value, next.Objective.Value
		t.PreviousValue, t.NewValue = oldV, newV
		growth := len(newV) - len(oldV)
		switch {
		case growth > objectiveGrowthThreshold && deadlineVocab.MatchString(newV):
			t.Type = ConflictingRequirements
		case growth > objectiveGrowthThreshold:
			t.Type = ScopeExpansion
		case growth < -objectiveGrowthThreshold:
			t.Type = ClarificationNeeded
		default:
			return t, false
		}
		return t, true

	case brief.FieldDescription:
		oldV, newV := prev.Description.Value, next.Description.Value
		delta := len(newV) - len(oldV)
		if delta < 0 {
			delta = -delta
		}
		if delta <= descriptionChangeThreshold {
			return t, false
		}
		t.Type = SignificantPivot
		t.PreviousValue = oldV
		t.NewValue = newV
		return t, true

	case brief.FieldDeliverables:
		oldItems := prev.KeyDeliverables.Value
		newItems := next.KeyDeliverables.Value
		t.PreviousValue = strings.Join(oldItems, "; ")
		t.NewValue = strings.Join(newItems, "; ")
		added := difference(newItems, oldItems)
		removed := difference(oldItems, newItems)
		switch {
		case anyMatch(added, lifecycleVocab):
			t.Type = MissingImplications
		case len(added) > 0:
			t.Type = SuggestionOpportunity
		case len(removed) > 0:
			t.Type = ClarificationNeeded
		default:
			return t, false
		}
		return t, true

	case brief.FieldProjectName:
		oldV, newV := prev.Name.Value, next.Name.Value
		if oldV == "" || strings.EqualFold(strings.TrimSpace(oldV), strings.TrimSpace(newV)) {
			return t, false
		}
		t.Type = ClarificationNeeded
		t.PreviousValue = oldV
		t.NewValue = newV
		return t, true

	case brief.FieldRoadmap:
		oldN := phaseCount(prev.Roadmap.Value)
		newN := phaseCount(next.Roadmap.Value)
		t.PreviousValue = fmt.Sprintf("%d phases", oldN)
		t.NewValue = fmt.Sprintf("%d phases", newN)
		if newN > oldN {
			t.Type = ScopeExpansion
			return t, true
		}
		return t, false
	}
	return t, false
}

func phaseCount(r *brief.Roadmap) int {
	if r == nil {
		return 0
	}
	return len(r.Phases)
}

func difference(a, b []string) []string {
	seen := make(map[string]bool, len(b))
	for _, s := range b {
		seen[strings.ToLower(strings.TrimSpace(s))] = true
	}
	var out []string
	for _, s := range a {
		if !seen[strings.ToLower(strings.TrimSpace(s))] {
			out = append(out, s)
		}
	}
	return out
}

func anyMatch(items []string, re *regexp.Regexp) bool {
	for _, s := range items {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// significanceBase holds the rationale template per trigger type.
var significanceBase = map[Type]string{
	ConflictingRequirements: "the expanded %s now competes with the schedule constraints it already states",
	SignificantPivot:        "this change to %s reads like a pivot away from what the brief has assumed so far",
	ScopeExpansion:          "the %s grew considerably, which usually means the scope is widening",
	MissingImplications:     "the new %s entries imply process work the rest of the brief does not mention yet",
	ClarificationNeeded:     "the edit to %s removed or reshaped earlier intent and may need clarifying",
	SuggestionOpportunity:   "the edit to %s opens room for concrete suggestions",
}

// significance builds the human-readable rationale: a base template per
// type plus contextual factors from the current brief state.
func significance(tt Type, field brief.FieldName, state brief.State) string {
	s := fmt.Sprintf(significanceBase[tt], string(field))
	if state.OverallConfidence < lowConfidenceThreshold {
		s += "; overall confidence is still low, so this may reshape the whole brief"
	}
	if rm := state.Roadmap.Value; rm != nil && len(rm.Phases) > longRoadmapPhases {
		s += "; the roadmap is already long and may need consolidating"
	}
	return s
}

// priorityFor ranks a classified trigger. Conflicts and pivots are always
// high; scope and implication findings are high on the objective field and
// medium elsewhere; the rest are low.
func priorityFor(tt Type, field brief.FieldName) Priority {
	switch tt {
	case ConflictingRequirements, SignificantPivot:
		return PriorityHigh
	case ScopeExpansion, MissingImplications:
		if field == brief.FieldObjective {
			return PriorityHigh
		}
		return PriorityMedium
	default:
		return PriorityLow
	}
}
