package trigger

// Frequency is the analyzer's willingness tier for medium and low priority
// triggers. High priority triggers always get a response.
type Frequency string

// Willingness tiers.
const (
	FrequencyHigh   Frequency = "high"
	FrequencyMedium Frequency = "medium"
	FrequencyLow    Frequency = "low"
)

// Policy is the adaptive response policy for one session. It only ever
// demotes its frequency tier; a session never becomes chattier again.
type Policy struct {
	frequency Frequency
	initial   Frequency
	responses int
	dismissed int
}

// NewPolicy starts a policy at the given tier.
func NewPolicy(start Frequency) *Policy {
	return &Policy{frequency: start, initial: start}
}

// Frequency returns the current willingness tier.
func (p *Policy) Frequency() Frequency { return p.frequency }

// DismissalRatio returns dismissed responses over total responses this
// session, or 0 before any response.
func (p *Policy) DismissalRatio() float64 {
	if p.responses == 0 {
		return 0
	}
	return float64(p.dismissed) / float64(p.responses)
}

// RecordResponse counts one emitted response.
func (p *Policy) RecordResponse() { p.responses++ }

// RecordDismissal counts one dismissed response and demotes the tier when
// the dismissal ratio crosses 0.5 (high to medium) or 0.7 (medium to low).
func (p *Policy) RecordDismissal() {
	p.dismissed++
	ratio := p.DismissalRatio()
	// One tier per dismissal; a single very bad ratio does not skip medium.
	if p.frequency == FrequencyHigh && ratio > 0.5 {
		p.frequency = FrequencyMedium
	} else if p.frequency == FrequencyMedium && ratio > 0.7 {
		p.frequency = FrequencyLow
	}
}

// ShouldRespond applies the tier to a trigger priority. High priority is
// always answered; medium requires at least the medium tier; low requires
// the high tier.
func (p *Policy) ShouldRespond(pri Priority) bool {
	switch pri {
	case PriorityHigh:
		return true
	case PriorityMedium:
		return p.frequency == FrequencyHigh || p.frequency == FrequencyMedium
	default:
		return p.frequency == FrequencyHigh
	}
}

// Reset restores the starting tier and clears counters.
func (p *Policy) Reset() {
	p.frequency = p.initial
	p.responses = 0
	p.dismissed = 0
}
