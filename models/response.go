package models

// ProcessResponse is the response for POST /api/process-speedtest.
//
// Success true with a non-empty Errors list is a partial success: the
// artifact was produced but some URLs were skipped or failed. Callers must
// surface the errors alongside the success message, never instead of it.
type ProcessResponse struct {
	// Success indicates whether an artifact was produced.
	Success bool `json:"success"`

	// Message is the human-readable summary of the run.
	Message string `json:"message"`

	// FilePath is the server-side path of the produced artifact. The final
	// path segment is the handle for GET /api/download/:fileName.
	FilePath string `json:"file_path,omitempty"`

	// Errors itemizes per-URL failures: capture failures first, in input
	// order, then the invalid-URL entries.
	Errors []string `json:"errors,omitempty"`
}

// RejectionDetail is the error body for non-2xx responses.
//
// The detail field carries the human-readable reason and is what existing
// backend clients read; Code is the stable machine-readable classifier.
type RejectionDetail struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

// PingResponse is the response for GET /api/.
type PingResponse struct {
	Message string `json:"message"`
}

// HealthResponse is the response for GET /api/health.
type HealthResponse struct {
	Status  string       `json:"status"` // "healthy" or "degraded"
	Uptime  string       `json:"uptime"`
	Capture CaptureStats `json:"capture"`
	Version string       `json:"version"`
}

// CaptureStats reports the state of the capture fan-out.
type CaptureStats struct {
	Engine        string `json:"engine"`
	MaxConcurrent int    `json:"max_concurrent"`
	Active        int    `json:"active"`
}
