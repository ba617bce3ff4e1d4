package trigger

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/c360studio/briefwizard/brief"
)

const testDebounce = 20 * time.Millisecond

// collector gathers emitted triggers across timer goroutines.
type collector struct {
	mu       sync.Mutex
	triggers []Trigger
	ch       chan Trigger
}

func newCollector() *collector {
	return &collector{ch: make(chan Trigger, 16)}
}

func (c *collector) emit(t Trigger) {
	c.mu.Lock()
	c.triggers = append(c.triggers, t)
	c.mu.Unlock()
	c.ch <- t
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.triggers)
}

func (c *collector) wait(t *testing.T) Trigger {
	t.Helper()
	select {
	case trig := <-c.ch:
		return trig
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for trigger")
		return Trigger{}
	}
}

// settle waits long enough for any pending debounce window to elapse.
func settle() { time.Sleep(10 * testDebounce) }

func newTestAnalyzer(freq Frequency, maxResponses int) *Analyzer {
	return NewAnalyzer(Config{
		DebounceDelay:          testDebounce,
		MaxResponsesPerSession: maxResponses,
		Frequency:              freq,
	}, nil)
}

// seedBaseline delivers a first edit so the analyzer has a snapshot.
func seedBaseline(a *Analyzer, state brief.State) {
	a.AnalyzeChange(state, brief.FieldObjective, func(Trigger) {})
	settle()
}

func TestAnalyzer_FirstEditIsBaselineOnly(t *testing.T) {
	a := newTestAnalyzer(FrequencyHigh, 5)
	c := newCollector()
	a.AnalyzeChange(stateWithObjective(strings.Repeat("x", 200)), brief.FieldObjective, c.emit)
	settle()
	if c.count() != 0 {
		t.Errorf("first edit emitted %d triggers, want 0", c.count())
	}
}

func TestAnalyzer_DebounceLastEditWins(t *testing.T) {
	a := newTestAnalyzer(FrequencyHigh, 5)
	seedBaseline(a, stateWithObjective("short objective"))

	c := newCollector()
	// Rapid successive edits inside one debounce window. Only the final
	// value may be analyzed, and exactly one cycle may run.
	intermediate := stateWithObjective(strings.Repeat("i", 300))
	final := stateWithObjective("short objective plus " + strings.Repeat("f", 80))
	a.AnalyzeChange(intermediate, brief.FieldObjective, c.emit)
	a.AnalyzeChange(final, brief.FieldObjective, c.emit)

	got := c.wait(t)
	settle()
	if c.count() != 1 {
		t.Fatalf("emitted %d triggers, want exactly 1", c.count())
	}
	if got.NewValue != final.Objective.Value {
		t.Errorf("analyzed %q, want the final edit", got.NewValue)
	}
	if got.Type != ScopeExpansion {
		t.Errorf("type = %q", got.Type)
	}
}

func TestAnalyzer_SupersededEditNeverFires(t *testing.T) {
	a := newTestAnalyzer(FrequencyHigh, 5)
	seedBaseline(a, stateWithObjective("base"))

	c := newCollector()
	a.AnalyzeChange(stateWithObjective(strings.Repeat("x", 300)), brief.FieldObjective, c.emit)
	a.CancelPending()
	settle()
	if c.count() != 0 {
		t.Errorf("cancelled edit still fired %d times", c.count())
	}
}

func TestAnalyzer_SessionResponseCap(t *testing.T) {
	const maxResponses = 2
	a := newTestAnalyzer(FrequencyHigh, maxResponses)

	types := []string{"web-app", "api", "cli-tool", "library", "mobile-app", "other"}
	emitted := 0
	var mu sync.Mutex
	for _, pt := range types {
		a.AnalyzeChange(brief.State{Type: brief.Field[string]{Value: pt}}, brief.FieldProjectType, func(Trigger) {
			mu.Lock()
			emitted++
			mu.Unlock()
		})
		settle()
	}
	mu.Lock()
	defer mu.Unlock()
	// First edit is the baseline; every later type change is a pivot, but
	// only maxResponses responses may go out.
	if emitted != maxResponses {
		t.Errorf("emitted %d responses, want %d", emitted, maxResponses)
	}
	if a.ResponseCount() > maxResponses {
		t.Errorf("response count %d exceeds cap", a.ResponseCount())
	}
}

func TestAnalyzer_DismissalSuppressesType(t *testing.T) {
	a := newTestAnalyzer(FrequencyHigh, 10)
	seedBaseline(a, stateWithObjective("v1"))

	c := newCollector()
	a.AnalyzeChange(stateWithObjective("v1 "+strings.Repeat("a", 100)), brief.FieldObjective, c.emit)
	first := c.wait(t)
	if first.Type != ScopeExpansion {
		t.Fatalf("first trigger = %q", first.Type)
	}

	a.LearnFromDismissal(ScopeExpansion)

	a.AnalyzeChange(stateWithObjective("v1 "+strings.Repeat("b", 300)), brief.FieldObjective, c.emit)
	settle()
	if c.count() != 1 {
		t.Errorf("scope-expansion emitted again after dismissal, %d total", c.count())
	}
}

func TestAnalyzer_FrequencyGatesMediumPriority(t *testing.T) {
	// At the low tier only high priority triggers respond. A deliverables
	// addition is medium priority and must be swallowed.
	a := newTestAnalyzer(FrequencyLow, 10)
	mk := func(items ...string) brief.State {
		return brief.State{KeyDeliverables: brief.Field[[]string]{Value: items}}
	}
	seedBaseline(a, mk("api"))

	c := newCollector()
	a.AnalyzeChange(mk("api", "testing suite"), brief.FieldDeliverables, c.emit)
	settle()
	if c.count() != 0 {
		t.Fatalf("medium priority trigger emitted at low tier")
	}

	// High priority still gets through.
	a.AnalyzeChange(brief.State{Type: brief.Field[string]{Value: "api"}}, brief.FieldProjectType, func(Trigger) {})
	settle()
	a.AnalyzeChange(brief.State{Type: brief.Field[string]{Value: "web-app"}}, brief.FieldProjectType, c.emit)
	got := c.wait(t)
	if got.Type != SignificantPivot {
		t.Errorf("type = %q", got.Type)
	}
}

func TestAnalyzer_ResetSession(t *testing.T) {
	a := newTestAnalyzer(FrequencyHigh, 10)
	seedBaseline(a, stateWithObjective("v1"))

	c := newCollector()
	a.AnalyzeChange(stateWithObjective("v1 "+strings.Repeat("a", 100)), brief.FieldObjective, c.emit)
	c.wait(t)
	a.LearnFromDismissal(ScopeExpansion)

	a.ResetSession()
	if a.ResponseCount() != 0 {
		t.Errorf("response count survived reset: %d", a.ResponseCount())
	}
	if a.Frequency() != FrequencyHigh {
		t.Errorf("frequency survived reset: %q", a.Frequency())
	}

	// After reset the next edit is a baseline again, and the previously
	// dismissed type responds once more.
	seedBaseline(a, stateWithObjective("v2"))
	a.AnalyzeChange(stateWithObjective("v2 "+strings.Repeat("c", 100)), brief.FieldObjective, c.emit)
	got := c.wait(t)
	if got.Type != ScopeExpansion {
		t.Errorf("type after reset = %q", got.Type)
	}
}
