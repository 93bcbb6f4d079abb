package batch

import "testing"

func TestValidTransition(t *testing.T) {
	tests := []struct {
		from, to Phase
		want     bool
	}{
		{PhaseIdle, PhaseSubmitting, true},
		{PhaseSubmitting, PhaseSettled, true},
		{PhaseSettled, PhaseSubmitting, true},
		{PhaseSettled, PhaseIdle, true},

		{PhaseIdle, PhaseSettled, false},
		{PhaseIdle, PhaseIdle, false},
		{PhaseSubmitting, PhaseSubmitting, false},
		{PhaseSubmitting, PhaseIdle, false},
		{PhaseSettled, PhaseSettled, false},
	}

	for _, tt := range tests {
		if got := validTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("validTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestPhaseString(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{PhaseIdle, "idle"},
		{PhaseSubmitting, "submitting"},
		{PhaseSettled, "settled"},
		{Phase(99), "unknown(99)"},
	}
	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %q, want %q", int(tt.phase), got, tt.want)
		}
	}
}
