package batch

import (
	"strings"
	"sync/atomic"

	"github.com/use-agent/speedsheet/models"
)

// Outcome is the classified result of one settled submission.
//
// Instances are immutable after interpretation; a new submission produces a
// new Outcome rather than mutating an old one.
type Outcome struct {
	// Success reports whether the batch as a whole produced an artifact.
	Success bool

	// Message is the user-facing summary of the run.
	Message string

	// ArtifactRef is the server-side locator of the produced artifact.
	ArtifactRef string

	// Warnings itemizes per-URL failures on a partial success.
	Warnings []string

	retrieved atomic.Bool // one-shot retrieval guard
}

// Partial reports whether this outcome is a success with itemized warnings.
func (o *Outcome) Partial() bool {
	return o.Success && len(o.Warnings) > 0
}

// markRetrieved reports whether the caller won the one-shot retrieval slot
// for this outcome instance.
func (o *Outcome) markRetrieved() bool {
	return o.retrieved.CompareAndSwap(false, true)
}

// Interpret classifies a backend response into an Outcome.
//
// Three classes are reachable: full success (success with no errors),
// partial success (success with itemized errors; retrieval still proceeds),
// and failure (success false; no retrieval regardless of any file path).
// Missing fields take their neutral defaults.
func Interpret(resp *models.ProcessResponse) *Outcome {
	if resp == nil {
		return &Outcome{Message: "empty response from backend"}
	}
	out := &Outcome{
		Success:     resp.Success,
		Message:     resp.Message,
		ArtifactRef: resp.FilePath,
	}
	if len(resp.Errors) > 0 {
		out.Warnings = append(out.Warnings, resp.Errors...)
	}
	if !out.Success && out.Message == "" && len(out.Warnings) == 0 {
		out.Message = "the backend could not process this batch"
	}
	return out
}

// RetrievalAction describes the download that fires for a settled outcome.
type RetrievalAction struct {
	// FileName is the final path segment of the outcome's artifact ref,
	// used as the handle for the download endpoint.
	FileName string
}

// MaybeRetrieve decides whether outcome qualifies for artifact retrieval.
//
// It fires only for a successful outcome carrying an artifact ref, deriving
// the retrieval handle from the ref's final path segment. A ref with no
// extractable segment is an integration fault: no action, and no user-facing
// error.
func MaybeRetrieve(outcome *Outcome) *RetrievalAction {
	if outcome == nil || !outcome.Success || outcome.ArtifactRef == "" {
		return nil
	}
	name := lastSegment(outcome.ArtifactRef)
	if name == "" {
		return nil
	}
	return &RetrievalAction{FileName: name}
}

// lastSegment returns the portion of ref after the last path separator,
// which is empty when the ref ends in a separator.
func lastSegment(ref string) string {
	idx := strings.LastIndex(ref, "/")
	return ref[idx+1:]
}
