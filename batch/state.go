package batch

import "fmt"

// Phase identifies where a submission lifecycle currently stands.
type Phase int

const (
	// PhaseIdle means no submission is outstanding.
	PhaseIdle Phase = iota

	// PhaseSubmitting means exactly one batch request is in flight.
	PhaseSubmitting

	// PhaseSettled means the last submission finished, with either an
	// interpreted outcome or a transport error. A new submission is
	// accepted from this phase.
	PhaseSettled
)

// String returns the lowercase phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSubmitting:
		return "submitting"
	case PhaseSettled:
		return "settled"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// SubmissionState is the externally observable controller state.
//
// The phase moves forward only: idle -> submitting -> settled, then back to
// submitting when the next submission is accepted. Only the controller
// writes it.
type SubmissionState struct {
	// Phase is the current lifecycle phase.
	Phase Phase

	// URLCount is the size of the in-flight batch. Set while submitting.
	URLCount int

	// Outcome is the interpreted response. Set once settled, unless the
	// submission settled with a transport error instead.
	Outcome *Outcome

	// Err is the transport error the submission settled with, if any.
	Err error
}

// validTransition reports whether moving between the two phases is legal.
func validTransition(from, to Phase) bool {
	switch from {
	case PhaseIdle:
		return to == PhaseSubmitting
	case PhaseSubmitting:
		return to == PhaseSettled
	case PhaseSettled:
		return to == PhaseSubmitting || to == PhaseIdle
	default:
		return false
	}
}
