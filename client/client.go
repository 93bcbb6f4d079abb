// Package client implements the HTTP collaborator that carries batch
// submissions to the capture backend and retrieves produced artifacts.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/use-agent/speedsheet/models"
)

// maxErrorBody caps how much of a rejection body is read for its detail.
const maxErrorBody = 64 << 10

// Sentinel errors for backend transport failures. Match with errors.Is.
var (
	// ErrTimeout means no response arrived within the client deadline.
	ErrTimeout = errors.New("backend request timed out")

	// ErrUnreachable means the backend could not be contacted at all.
	ErrUnreachable = errors.New("backend unreachable")

	// ErrServerRejected means the backend answered with a non-2xx status.
	ErrServerRejected = errors.New("backend rejected the request")
)

// RejectionError carries the decoded error body of a non-2xx response.
// It matches ErrServerRejected in errors.Is checks.
type RejectionError struct {
	StatusCode int
	Detail     string
	Code       string
}

func (e *RejectionError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend rejected the request: status %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("backend rejected the request: status %d", e.StatusCode)
}

func (e *RejectionError) Is(target error) bool {
	return target == ErrServerRejected
}

// Client is the interface the orchestrator uses to talk to the backend.
type Client interface {
	// ProcessBatch submits the full ordered URL list as one request and
	// returns the decoded response for a 2xx answer.
	ProcessBatch(ctx context.Context, urls []string) (*models.ProcessResponse, error)

	// DownloadArtifact streams the artifact stored under fileName. The
	// caller owns the returned body and must close it.
	DownloadArtifact(ctx context.Context, fileName string) (io.ReadCloser, int64, error)
}

// HTTPClient talks to the capture backend over HTTP.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a client for the backend at baseURL, including any
// path prefix the backend mounts its routes under (e.g. "/api"). timeout
// bounds each request end to end, body read included.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithAPIKey makes every request carry key in the X-API-Key header, for
// backends running with authentication enabled.
func (c *HTTPClient) WithAPIKey(key string) *HTTPClient {
	c.apiKey = key
	return c
}

// ProcessBatch implements Client.
func (c *HTTPClient) ProcessBatch(ctx context.Context, urls []string) (*models.ProcessResponse, error) {
	body, err := json.Marshal(models.ProcessRequest{URLs: urls})
	if err != nil {
		return nil, fmt.Errorf("marshal process request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/process-speedtest", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build process request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeRejection(resp)
	}

	var out models.ProcessResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode process response: %w", err)
	}
	return &out, nil
}

// DownloadArtifact implements Client.
func (c *HTTPClient) DownloadArtifact(ctx context.Context, fileName string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/download/"+url.PathEscape(fileName), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build download request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, classifyError(err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, 0, decodeRejection(resp)
	}
	return resp.Body, resp.ContentLength, nil
}

// SaveArtifact downloads fileName into destDir and returns the local path.
// A partially written file is removed on failure.
func (c *HTTPClient) SaveArtifact(ctx context.Context, fileName, destDir string) (string, error) {
	rc, _, err := c.DownloadArtifact(ctx, fileName)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	dest := filepath.Join(destDir, filepath.Base(fileName))
	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create artifact file: %w", err)
	}

	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		os.Remove(dest)
		return "", fmt.Errorf("write artifact file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close artifact file: %w", err)
	}
	return dest, nil
}

// classifyError maps transport-level failures onto the sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}

// decodeRejection reads a non-2xx body into a RejectionError. Both the
// {"detail": ...} shape of the capture backend and a bare {"message": ...}
// are understood; an undecodable body leaves the detail empty.
func decodeRejection(resp *http.Response) error {
	var body struct {
		Detail  string `json:"detail"`
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = json.Unmarshal(data, &body)

	detail := body.Detail
	if detail == "" {
		detail = body.Message
	}
	return &RejectionError{StatusCode: resp.StatusCode, Detail: detail, Code: body.Code}
}
