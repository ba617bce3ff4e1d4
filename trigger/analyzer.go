package trigger

import (
	"log/slog"
	"sync"
	"time"

	"github.com/c360studio/briefwizard/brief"
)

// Config tunes one analyzer instance.
type Config struct {
	// DebounceDelay is the quiet period after a direct edit before the
	// change is evaluated. Only the last edit within the window counts.
	DebounceDelay time.Duration

	// MaxResponsesPerSession caps emitted triggers per session. Further
	// triggers are silently suppressed, never surfaced as errors.
	MaxResponsesPerSession int

	// Frequency is the starting willingness tier.
	Frequency Frequency
}

func (c Config) withDefaults() Config {
	if c.DebounceDelay <= 0 {
		c.DebounceDelay = 2 * time.Second
	}
	if c.MaxResponsesPerSession <= 0 {
		c.MaxResponsesPerSession = 5
	}
	if c.Frequency == "" {
		c.Frequency = FrequencyMedium
	}
	return c
}

type pendingChange struct {
	state brief.State
	field brief.FieldName
	emit  func(Trigger)
}

// Analyzer observes direct user edits to the brief and decides whether an
// unsolicited AI comment is warranted. One instance lives per wizard
// session; all state is guarded by a single mutex, and at most one debounce
// timer is ever live.
type Analyzer struct {
	mu     sync.Mutex
	cfg    Config
	timer  Timer
	logger *slog.Logger

	prev          *brief.State
	pending       *pendingChange
	responseCount int
	suppressed    map[Type]bool
	policy        *Policy
}

// NewAnalyzer creates an analyzer for a fresh session.
func NewAnalyzer(cfg Config, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &Analyzer{
		cfg:        cfg,
		logger:     logger,
		suppressed: make(map[Type]bool),
		policy:     NewPolicy(cfg.Frequency),
	}
}

// AnalyzeChange records a direct edit and (re)starts the debounce window.
// Any previously pending edit is superseded: when the window elapses, only
// the change passed to the most recent call is evaluated, and emit is
// invoked with the trigger if the analyzer decides to respond. emit runs on
// the timer goroutine.
func (a *Analyzer) AnalyzeChange(state brief.State, field brief.FieldName, emit func(Trigger)) {
	a.mu.Lock()
	a.pending = &pendingChange{state: state, field: field, emit: emit}
	delay := a.cfg.DebounceDelay
	a.mu.Unlock()
	a.timer.Schedule(a.fire, delay)
}

func (a *Analyzer) fire() {
	a.mu.Lock()
	p := a.pending
	a.pending = nil
	if p == nil {
		a.mu.Unlock()
		return
	}
	trig, ok := a.evaluateLocked(p.state, p.field)
	a.mu.Unlock()
	if ok {
		p.emit(trig)
	}
}

// evaluateLocked runs the full decision pipeline for one settled edit.
// The caller holds a.mu.
func (a *Analyzer) evaluateLocked(state brief.State, field brief.FieldName) (Trigger, bool) {
	// The first edit of a session only establishes the baseline.
	if a.prev == nil {
		a.prev = &state
		return Trigger{}, false
	}
	prev := *a.prev
	a.prev = &state

	if a.responseCount >= a.cfg.MaxResponsesPerSession {
		a.logger.Debug("trigger suppressed: session response limit reached",
			slog.String("field", string(field)),
			slog.Int("count", a.responseCount))
		return Trigger{}, false
	}

	t, ok := classify(prev, state, field)
	if !ok {
		return Trigger{}, false
	}
	if a.suppressed[t.Type] {
		a.logger.Debug("trigger suppressed: type dismissed earlier this session",
			slog.String("type", string(t.Type)))
		return Trigger{}, false
	}
	t.Significance = significance(t.Type, field, state)
	t.Priority = priorityFor(t.Type, field)
	if !a.policy.ShouldRespond(t.Priority) {
		a.logger.Debug("trigger below willingness tier",
			slog.String("type", string(t.Type)),
			slog.String("priority", string(t.Priority)),
			slog.String("frequency", string(a.policy.Frequency())))
		return Trigger{}, false
	}
	a.responseCount++
	a.policy.RecordResponse()
	return t, true
}

// LearnFromDismissal suppresses the dismissed trigger type for the rest of
// the session and lets the adaptive policy demote its willingness tier.
func (a *Analyzer) LearnFromDismissal(tt Type) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.suppressed[tt] = true
	a.policy.RecordDismissal()
	a.logger.Debug("learned from dismissal",
		slog.String("type", string(tt)),
		slog.String("frequency", string(a.policy.Frequency())))
}

// ResponseCount returns how many triggers were emitted this session.
func (a *Analyzer) ResponseCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.responseCount
}

// Frequency returns the current willingness tier.
func (a *Analyzer) Frequency() Frequency {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.policy.Frequency()
}

// CancelPending drops any edit waiting in the debounce window.
func (a *Analyzer) CancelPending() {
	a.timer.Cancel()
	a.mu.Lock()
	a.pending = nil
	a.mu.Unlock()
}

// ResetSession clears the baseline snapshot, counters and learned
// suppressions, returning the analyzer to its initial state.
func (a *Analyzer) ResetSession() {
	a.timer.Cancel()
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = nil
	a.prev = nil
	a.responseCount = 0
	a.suppressed = make(map[Type]bool)
	a.policy.Reset()
}
