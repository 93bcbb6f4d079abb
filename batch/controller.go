package batch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/use-agent/speedsheet/client"
	"github.com/use-agent/speedsheet/models"
)

// DefaultTimeout is the hard ceiling on one batch submission, measured from
// request start. Large batches on a slow backend fit comfortably under it.
const DefaultTimeout = 300 * time.Second

// Retriever saves the artifact named by a qualifying outcome.
// Implementations decide what "download" means for their host.
type Retriever interface {
	Retrieve(ctx context.Context, fileName string) error
}

// RetrieverFunc adapts a function to the Retriever interface.
type RetrieverFunc func(ctx context.Context, fileName string) error

func (f RetrieverFunc) Retrieve(ctx context.Context, fileName string) error {
	return f(ctx, fileName)
}

// Result is the settled product of one accepted submission.
type Result struct {
	// ID identifies this submission in logs.
	ID string

	// Outcome is the interpreted backend response.
	Outcome *Outcome

	// Retrieval is the download action that fired, nil when none did.
	Retrieval *RetrievalAction

	// Duration is the time from request start to settlement.
	Duration time.Duration
}

// Controller owns the single in-flight submission.
//
// It enforces single flight: a Submit call while another is outstanding is
// rejected without touching the network. Whatever happens to the request,
// the state leaves the submitting phase exactly once per accepted call.
type Controller struct {
	backend   client.Client
	retriever Retriever
	timeout   time.Duration

	mu    sync.Mutex
	state SubmissionState
}

// NewController creates a Controller talking to the given backend.
//
// A zero timeout falls back to DefaultTimeout. A nil retriever records
// retrieval actions in the Result without executing a download.
func NewController(backend client.Client, retriever Retriever, timeout time.Duration) *Controller {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Controller{
		backend:   backend,
		retriever: retriever,
		timeout:   timeout,
	}
}

// State returns a snapshot of the submission state.
func (c *Controller) State() SubmissionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Submit normalizes raw input, issues the single batch request, interprets
// the settled response, and fires the retrieval trigger at most once.
//
// Validation and overlap rejections return before any network call. A
// submission that exceeds the timeout is abandoned client-side and settles
// with a PROCESS_TIMEOUT error; other transport failures settle with
// SERVER_REJECTED, carrying the server detail when one was decoded.
func (c *Controller) Submit(ctx context.Context, raw string) (*Result, error) {
	urls, err := Normalize(raw)
	if err != nil {
		return nil, err
	}

	if err := c.begin(len(urls)); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	start := time.Now()
	slog.Info("submitting batch", "submission_id", id, "url_count", len(urls))

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.backend.ProcessBatch(reqCtx, urls)
	if err != nil {
		terr := classifyTransport(err)
		c.settle(nil, terr)
		slog.Error("submission settled with transport error",
			"submission_id", id, "code", terr.Code, "duration", time.Since(start))
		return nil, terr
	}

	outcome := Interpret(resp)
	c.settle(outcome, nil)

	res := &Result{ID: id, Outcome: outcome, Duration: time.Since(start)}

	switch action := MaybeRetrieve(outcome); {
	case action != nil:
		if outcome.markRetrieved() {
			res.Retrieval = action
			c.download(ctx, id, action)
		}
	case outcome.Success && outcome.ArtifactRef != "":
		// Successful outcome whose ref yields no file name. Integration
		// fault between us and the backend, not a user error.
		slog.Warn("artifact ref has no extractable segment",
			"submission_id", id, "artifact_ref", outcome.ArtifactRef)
	}

	slog.Info("submission settled",
		"submission_id", id,
		"success", outcome.Success,
		"warnings", len(outcome.Warnings),
		"retrieved", res.Retrieval != nil,
		"duration", time.Since(start))
	return res, nil
}

// begin moves the controller into the submitting phase, rejecting the call
// when another submission is still in flight.
func (c *Controller) begin(count int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !validTransition(c.state.Phase, PhaseSubmitting) {
		return models.NewProcessError(models.ErrCodeInvalidState,
			"a submission is already in flight", nil)
	}
	c.state = SubmissionState{Phase: PhaseSubmitting, URLCount: count}
	return nil
}

// settle records the end of the in-flight submission with either an
// interpreted outcome or a transport error.
func (c *Controller) settle(outcome *Outcome, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = SubmissionState{Phase: PhaseSettled, Outcome: outcome, Err: err}
}

// download executes the retrieval action through the host's retriever.
// A download failure is logged, not propagated: the submission already
// settled and the action already fired.
func (c *Controller) download(ctx context.Context, id string, action *RetrievalAction) {
	if c.retriever == nil {
		return
	}
	if err := c.retriever.Retrieve(ctx, action.FileName); err != nil {
		slog.Error("artifact retrieval failed",
			"submission_id", id, "file_name", action.FileName, "error", err)
	}
}

// classifyTransport maps a client failure onto the submission error
// taxonomy. Timeouts carry guidance to shrink the batch; everything else is
// a server rejection, with the decoded server detail when present.
func classifyTransport(err error) *models.ProcessError {
	switch {
	case errors.Is(err, client.ErrTimeout):
		return models.NewProcessError(models.ErrCodeTimeout,
			"the request timed out; retry with fewer URLs, or check that the URLs are valid and reachable", err)
	case errors.Is(err, client.ErrServerRejected):
		var rej *client.RejectionError
		if errors.As(err, &rej) && rej.Detail != "" {
			return models.NewProcessError(models.ErrCodeServerRejected, rej.Detail, err)
		}
		return models.NewProcessError(models.ErrCodeServerRejected,
			"the backend rejected this batch", err)
	default:
		return models.NewProcessError(models.ErrCodeServerRejected,
			"could not reach the backend", err)
	}
}
