package models

// ProcessRequest is the payload for POST /api/process-speedtest.
type ProcessRequest struct {
	// URLs is the list of speed-test result pages to capture. Required.
	// Entries are trimmed server-side; blank entries are skipped.
	URLs []string `json:"urls" binding:"required"`
}
