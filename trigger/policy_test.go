package trigger

import "testing"

func TestPolicy_DemotionIsMonotonic(t *testing.T) {
	p := NewPolicy(FrequencyHigh)

	// 3 responses; dismissals walk the ratio through both thresholds.
	p.RecordResponse()
	p.RecordResponse()
	p.RecordResponse()
	p.RecordDismissal() // ratio 1/3: below both thresholds
	if p.Frequency() != FrequencyHigh {
		t.Fatalf("after first dismissal: %q, want high", p.Frequency())
	}
	p.RecordDismissal() // ratio 2/3 > 0.5: high -> medium
	if p.Frequency() != FrequencyMedium {
		t.Fatalf("after second dismissal: %q, want medium", p.Frequency())
	}
	p.RecordDismissal() // ratio 1.0 > 0.7: medium -> low
	if p.Frequency() != FrequencyLow {
		t.Fatalf("after third dismissal: %q, want low", p.Frequency())
	}

	// Many accepted responses later the tier never goes back up.
	for i := 0; i < 10; i++ {
		p.RecordResponse()
	}
	if p.Frequency() != FrequencyLow {
		t.Errorf("frequency rose to %q within a session", p.Frequency())
	}
}

func TestPolicy_NoDemotionBelowRatio(t *testing.T) {
	p := NewPolicy(FrequencyHigh)
	p.RecordResponse()
	p.RecordResponse()
	p.RecordResponse()
	p.RecordDismissal() // ratio 1/3
	if p.Frequency() != FrequencyHigh {
		t.Errorf("frequency = %q, want high at ratio 0.33", p.Frequency())
	}
}

func TestPolicy_ShouldRespond(t *testing.T) {
	tests := []struct {
		freq Frequency
		pri  Priority
		want bool
	}{
		{FrequencyHigh, PriorityHigh, true},
		{FrequencyHigh, PriorityMedium, true},
		{FrequencyHigh, PriorityLow, true},
		{FrequencyMedium, PriorityHigh, true},
		{FrequencyMedium, PriorityMedium, true},
		{FrequencyMedium, PriorityLow, false},
		{FrequencyLow, PriorityHigh, true},
		{FrequencyLow, PriorityMedium, false},
		{FrequencyLow, PriorityLow, false},
	}
	for _, tt := range tests {
		p := NewPolicy(tt.freq)
		if got := p.ShouldRespond(tt.pri); got != tt.want {
			t.Errorf("freq=%s pri=%s: got %v, want %v", tt.freq, tt.pri, got, tt.want)
		}
	}
}

func TestPolicy_Reset(t *testing.T) {
	p := NewPolicy(FrequencyHigh)
	p.RecordResponse()
	p.RecordDismissal()
	p.Reset()
	if p.Frequency() != FrequencyHigh {
		t.Errorf("frequency after reset = %q", p.Frequency())
	}
	if p.DismissalRatio() != 0 {
		t.Errorf("ratio after reset = %v", p.DismissalRatio())
	}
}
