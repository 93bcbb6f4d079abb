package handler_test

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/speedsheet/api"
	"github.com/use-agent/speedsheet/artifact"
	"github.com/use-agent/speedsheet/bundle"
	"github.com/use-agent/speedsheet/cache"
	"github.com/use-agent/speedsheet/capture"
	"github.com/use-agent/speedsheet/config"
)

// ─── test fixtures ───────────────────────────────────────────────────────────

const (
	urlOne   = "https://www.speedtest.net/my-result/d/101"
	urlTwo   = "https://www.speedtest.net/my-result/a/202"
	urlThree = "https://www.speedtest.net/my-result/i/303"
	urlBad   = "https://example.com/not-a-result"
)

// flakyCapturer serves deterministic bytes and fails the URLs it was told
// to fail.
type flakyCapturer struct {
	fail map[string]bool
}

func (f *flakyCapturer) Name() string { return "flaky" }

func (f *flakyCapturer) Capture(_ context.Context, req *capture.CaptureRequest) (*capture.CaptureResult, error) {
	if f.fail[req.URL] {
		return nil, errors.New("render crashed")
	}
	return &capture.CaptureResult{
		URL:         req.URL,
		Data:        []byte("img:" + req.URL),
		ContentType: "image/png",
		EngineName:  f.Name(),
	}, nil
}

// countingCapturer tracks how many captures actually ran.
type countingCapturer struct {
	flakyCapturer
	calls atomic.Int64
}

func (c *countingCapturer) Capture(ctx context.Context, req *capture.CaptureRequest) (*capture.CaptureResult, error) {
	c.calls.Add(1)
	return c.flakyCapturer.Capture(ctx, req)
}

func newTestServer(t *testing.T, capt capture.Capturer, mutate ...func(*config.Config)) (*httptest.Server, *artifact.Store) {
	t.Helper()

	cfg := config.Load()
	cfg.Server.Mode = gin.TestMode
	cfg.Artifact.Dir = t.TempDir()
	cfg.Capture.MaxConcurrent = 2
	for _, m := range mutate {
		m(cfg)
	}

	store, err := artifact.NewStore(cfg.Artifact.Dir)
	require.NoError(t, err)

	var cc *cache.Cache
	if cfg.Capture.CacheEntries > 0 {
		cc = cache.New(cfg.Capture.CacheEntries)
	}

	ts := httptest.NewServer(api.NewRouter(capt, bundle.NewZipBundler(), store, cc, cfg, time.Now()))
	t.Cleanup(ts.Close)
	return ts, store
}

func postProcess(t *testing.T, ts *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/process-speedtest", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

// ─── POST /api/process-speedtest ─────────────────────────────────────────────

func TestProcess_200_FullSuccess(t *testing.T) {
	ts, store := newTestServer(t, &flakyCapturer{})

	resp := postProcess(t, ts, `{"urls":["`+urlOne+`","`+urlTwo+`"]}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Success  bool     `json:"success"`
		Message  string   `json:"message"`
		FilePath string   `json:"file_path"`
		Errors   []string `json:"errors"`
	}
	decodeInto(t, resp, &out)

	assert.True(t, out.Success)
	assert.Equal(t, "Successfully processed 2 URLs", out.Message)
	assert.Empty(t, out.Errors)
	require.NotEmpty(t, out.FilePath)
	assert.Equal(t, store.Dir(), filepath.Dir(out.FilePath))

	// The artifact referenced by file_path really exists and is a zip with
	// one entry per capture plus the manifest.
	data, err := os.ReadFile(out.FilePath)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Len(t, zr.File, 3)
}

func TestProcess_400_NoURLs(t *testing.T) {
	ts, _ := newTestServer(t, &flakyCapturer{})

	for _, body := range []string{`{"urls":[]}`, `{}`, ``, `not json`} {
		resp := postProcess(t, ts, body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "body %q", body)

		var rej struct {
			Detail string `json:"detail"`
		}
		decodeInto(t, resp, &rej)
		assert.Equal(t, "No URLs provided", rej.Detail, "body %q", body)
	}
}

func TestProcess_400_NoValidURLs(t *testing.T) {
	ts, _ := newTestServer(t, &flakyCapturer{})

	resp := postProcess(t, ts, `{"urls":["`+urlBad+`","   ","ftp://x"]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var rej struct {
		Detail string `json:"detail"`
	}
	decodeInto(t, resp, &rej)
	assert.Equal(t, "No valid speedtest.net URLs found", rej.Detail)
}

func TestProcess_200_PartialSuccess(t *testing.T) {
	ts, _ := newTestServer(t, &flakyCapturer{fail: map[string]bool{urlTwo: true}})

	resp := postProcess(t, ts, `{"urls":["`+urlOne+`","`+urlTwo+`","`+urlBad+`","`+urlThree+`"]}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Success  bool     `json:"success"`
		Message  string   `json:"message"`
		FilePath string   `json:"file_path"`
		Errors   []string `json:"errors"`
	}
	decodeInto(t, resp, &out)

	assert.True(t, out.Success, "partial failure is still a success")
	assert.Equal(t, "Successfully processed 2 URLs", out.Message)
	assert.NotEmpty(t, out.FilePath)

	// Capture failures first in input order, then the invalid entries.
	require.Len(t, out.Errors, 2)
	assert.True(t, strings.HasPrefix(out.Errors[0], "Failed to capture "+urlTwo+":"), out.Errors[0])
	assert.Equal(t, "Invalid URL: "+urlBad, out.Errors[1])
}

func TestProcess_500_AllCapturesFail(t *testing.T) {
	ts, _ := newTestServer(t, &flakyCapturer{fail: map[string]bool{urlOne: true, urlTwo: true}})

	resp := postProcess(t, ts, `{"urls":["`+urlOne+`","`+urlTwo+`"]}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var rej struct {
		Detail string `json:"detail"`
	}
	decodeInto(t, resp, &rej)
	assert.Equal(t, "Failed to capture any screenshots", rej.Detail)
}

func TestProcess_RepeatURLServedFromCache(t *testing.T) {
	capt := &countingCapturer{}
	ts, _ := newTestServer(t, capt)

	for i := 0; i < 2; i++ {
		resp := postProcess(t, ts, `{"urls":["`+urlOne+`"]}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	assert.Equal(t, int64(1), capt.calls.Load(), "second batch should reuse the cached capture")
}

func TestProcess_WebhookDelivered(t *testing.T) {
	type delivery struct {
		body []byte
		sig  string
	}
	events := make(chan delivery, 1)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		select {
		case events <- delivery{body: body, sig: r.Header.Get("X-Speedsheet-Signature")}:
		default:
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer hook.Close()

	const secret = "whsec-test"
	ts, _ := newTestServer(t, &flakyCapturer{}, func(cfg *config.Config) {
		cfg.Webhook.URL = hook.URL
		cfg.Webhook.Secret = secret
	})

	resp := postProcess(t, ts, `{"urls":["`+urlOne+`"]}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	select {
	case got := <-events:
		var event struct {
			Type    string `json:"type"`
			BatchID string `json:"batch_id"`
		}
		require.NoError(t, json.Unmarshal(got.body, &event))
		assert.Equal(t, "batch.completed", event.Type)
		assert.NotEmpty(t, event.BatchID)

		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(got.body)
		assert.Equal(t, "sha256="+hex.EncodeToString(mac.Sum(nil)), got.sig,
			"event body must verify against the configured secret")
	case <-time.After(3 * time.Second):
		t.Fatal("webhook event never arrived")
	}
}

func TestProcess_401_AuthEnabled(t *testing.T) {
	ts, _ := newTestServer(t, &flakyCapturer{}, func(cfg *config.Config) {
		cfg.Auth.Enabled = true
		cfg.Auth.APIKeys = []string{"secret-key"}
	})

	resp := postProcess(t, ts, `{"urls":["`+urlOne+`"]}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/process-speedtest",
		strings.NewReader(`{"urls":["`+urlOne+`"]}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "secret-key")

	authed, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer authed.Body.Close()
	assert.Equal(t, http.StatusOK, authed.StatusCode)
}

// ─── GET /api/download/:fileName ─────────────────────────────────────────────

func TestDownload_200_ServesStoredArtifact(t *testing.T) {
	ts, store := newTestServer(t, &flakyCapturer{})

	full, err := store.Put([]byte("zip-bytes"), "zip")
	require.NoError(t, err)
	name := filepath.Base(full)

	resp, err := http.Get(ts.URL + "/api/download/" + name)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/zip", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), name)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "zip-bytes", string(data))
}

func TestDownload_404_UnknownName(t *testing.T) {
	ts, _ := newTestServer(t, &flakyCapturer{})

	resp, err := http.Get(ts.URL + "/api/download/nope.zip")
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var rej struct {
		Detail string `json:"detail"`
	}
	decodeInto(t, resp, &rej)
	assert.Equal(t, "File not found", rej.Detail)
}

// ─── ping and health ─────────────────────────────────────────────────────────

func TestPing(t *testing.T) {
	ts, _ := newTestServer(t, &flakyCapturer{})

	resp, err := http.Get(ts.URL + "/api/")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Message string `json:"message"`
	}
	decodeInto(t, resp, &out)
	assert.Equal(t, "Hello World", out.Message)
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, &flakyCapturer{})

	resp, err := http.Get(ts.URL + "/api/health")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Status  string `json:"status"`
		Capture struct {
			Engine        string `json:"engine"`
			MaxConcurrent int    `json:"max_concurrent"`
		} `json:"capture"`
		Version string `json:"version"`
	}
	decodeInto(t, resp, &out)

	assert.Equal(t, "healthy", out.Status)
	assert.Equal(t, "flaky", out.Capture.Engine)
	assert.Equal(t, 2, out.Capture.MaxConcurrent)
	assert.NotEmpty(t, out.Version)
}
