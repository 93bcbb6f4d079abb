// Package capture defines the screenshot collaborator interface for
// speed-test result pages, plus the deterministic stand-in used by the dev
// server and tests. Real page rendering lives behind the Capturer interface
// and is supplied by the deployment.
package capture

import (
	"context"
	"time"
)

// Capturer is the interface all capture engines must implement.
type Capturer interface {
	// Name returns the engine identifier (e.g. "fixture").
	Name() string

	// Capture renders the result page at req.URL into image bytes.
	Capture(ctx context.Context, req *CaptureRequest) (*CaptureResult, error)
}

// CaptureRequest contains everything an engine needs to capture a page.
type CaptureRequest struct {
	URL     string
	Timeout time.Duration
}

// CaptureResult is the output of a successful capture.
type CaptureResult struct {
	URL         string
	Data        []byte
	ContentType string
	EngineName  string
}
