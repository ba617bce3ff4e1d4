package trigger

import (
	"strings"
	"testing"

	"github.com/c360studio/briefwizard/brief"
)

func stateWithObjective(v string) brief.State {
	return brief.State{Objective: brief.Field[string]{Value: v, Valid: true}}
}

func TestClassify_ObjectiveGrowth(t *testing.T) {
	short := strings.Repeat("a", 40)
	long := strings.Repeat("b", 130)

	tests := []struct {
		name     string
		oldV     string
		newV     string
		wantType Type
		wantOK   bool
	}{
		{"growth beyond threshold", short, long, ScopeExpansion, true},
		{"growth with deadline words", short, long + " due in 2 weeks", ConflictingRequirements, true},
		{"large shrink", long, short, ClarificationNeeded, true},
		{"small change", short, short + " plus", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := classify(stateWithObjective(tt.oldV), stateWithObjective(tt.newV), brief.FieldObjective)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.Type != tt.wantType {
				t.Errorf("type = %q, want %q", got.Type, tt.wantType)
			}
		})
	}
}

func TestClassify_ObjectiveScopeExpansionIsHighPriority(t *testing.T) {
	// An objective growing from 40 to 130 characters with no deadline
	// vocabulary is a scope expansion, and on the objective field that
	// carries high priority.
	prev := stateWithObjective(strings.Repeat("x", 40))
	next := stateWithObjective(strings.Repeat("y", 130))
	got, ok := classify(prev, next, brief.FieldObjective)
	if !ok || got.Type != ScopeExpansion {
		t.Fatalf("classify = %+v ok=%v", got, ok)
	}
	if pri := priorityFor(got.Type, brief.FieldObjective); pri != PriorityHigh {
		t.Errorf("priority = %q, want high", pri)
	}
}

func TestClassify_ProjectTypeChangeIsAlwaysPivot(t *testing.T) {
	prev := brief.State{Type: brief.Field[string]{Value: "web-app"}}
	next := brief.State{Type: brief.Field[string]{Value: "api"}}
	got, ok := classify(prev, next, brief.FieldProjectType)
	if !ok || got.Type != SignificantPivot {
		t.Fatalf("classify = %+v ok=%v", got, ok)
	}
	if pri := priorityFor(got.Type, brief.FieldProjectType); pri != PriorityHigh {
		t.Errorf("priority = %q, want high", pri)
	}
}

func TestClassify_DescriptionDelta(t *testing.T) {
	prev := brief.State{Description: brief.Field[string]{Value: strings.Repeat("d", 20)}}
	next := brief.State{Description: brief.Field[string]{Value: strings.Repeat("d", 150)}}
	got, ok := classify(prev, next, brief.FieldDescription)
	if !ok || got.Type != SignificantPivot {
		t.Fatalf("classify = %+v ok=%v", got, ok)
	}
	// Under the threshold: no trigger.
	small := brief.State{Description: brief.Field[string]{Value: strings.Repeat("d", 60)}}
	if _, ok := classify(prev, small, brief.FieldDescription); ok {
		t.Error("expected no trigger for a 40 character delta")
	}
}

func TestClassify_Deliverables(t *testing.T) {
	mk := func(items ...string) brief.State {
		return brief.State{KeyDeliverables: brief.Field[[]string]{Value: items}}
	}
	tests := []struct {
		name     string
		oldItems brief.State
		newItems brief.State
		wantType Type
		wantOK   bool
	}{
		{"lifecycle vocabulary", mk("api"), mk("api", "deployment runbook"), MissingImplications, true},
		{"plain addition", mk("api"), mk("api", "admin dashboard"), SuggestionOpportunity, true},
		{"removal", mk("api", "docs"), mk("api"), ClarificationNeeded, true},
		{"no change", mk("api"), mk("api"), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := classify(tt.oldItems, tt.newItems, brief.FieldDeliverables)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.Type != tt.wantType {
				t.Errorf("type = %q, want %q", got.Type, tt.wantType)
			}
		})
	}
}

func TestSignificance_ContextualFactors(t *testing.T) {
	state := stateWithObjective("x")
	state.OverallConfidence = 0.2
	state.Roadmap = brief.Field[*brief.Roadmap]{Value: &brief.Roadmap{
		Phases: make([]brief.RoadmapPhase, 8),
	}}
	s := significance(ScopeExpansion, brief.FieldObjective, state)
	if !strings.Contains(s, "confidence is still low") {
		t.Errorf("missing low-confidence factor: %q", s)
	}
	if !strings.Contains(s, "roadmap is already long") {
		t.Errorf("missing long-roadmap factor: %q", s)
	}

	confident := stateWithObjective("x")
	confident.OverallConfidence = 0.9
	s = significance(ScopeExpansion, brief.FieldObjective, confident)
	if strings.Contains(s, "confidence is still low") {
		t.Errorf("unexpected low-confidence factor: %q", s)
	}
}
