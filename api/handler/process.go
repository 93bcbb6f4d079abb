package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/use-agent/speedsheet/artifact"
	"github.com/use-agent/speedsheet/bundle"
	"github.com/use-agent/speedsheet/cache"
	"github.com/use-agent/speedsheet/capture"
	"github.com/use-agent/speedsheet/config"
	"github.com/use-agent/speedsheet/models"
	"github.com/use-agent/speedsheet/webhook"
)

// activeCaptures counts captures currently in flight, reported by Health.
var activeCaptures atomic.Int64

// ProcessSpeedtest returns a handler for POST /api/process-speedtest.
//
// Orchestration flow:
//  1. Parse request; reject an empty URL list.
//  2. Trim entries and partition them into valid result pages and invalid ones.
//  3. Capture valid pages in parallel under a bounded semaphore, input order
//     preserved. Repeat pages within the cache TTL reuse the cached capture.
//  4. Bundle the successful captures and store the artifact.
//  5. Respond with the artifact path and itemized per-URL errors: capture
//     failures first, then the invalid entries.
//
// A batch with some failures is still a success as long as at least one
// capture landed; callers read the errors list alongside the message.
func ProcessSpeedtest(capt capture.Capturer, bnd bundle.Bundler, store *artifact.Store, cc *cache.Cache, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		batchID := uuid.NewString()

		var req models.ProcessRequest
		if err := c.ShouldBindJSON(&req); err != nil || len(req.URLs) == 0 {
			reject(c, http.StatusBadRequest, models.ErrCodeEmptyInput, "No URLs provided")
			return
		}

		validURLs, invalidURLs := partitionURLs(req.URLs)
		if len(validURLs) == 0 {
			reject(c, http.StatusBadRequest, models.ErrCodeNoValidURLs, "No valid speedtest.net URLs found")
			return
		}

		captures, captureErrs := runCaptures(c.Request.Context(), capt, cc, cfg.Capture, validURLs)
		if len(captures) == 0 {
			notify(cfg.Webhook, "batch.failed", batchID, gin.H{
				"url_count": len(req.URLs),
				"detail":    "Failed to capture any screenshots",
			})
			reject(c, http.StatusInternalServerError, models.ErrCodeCaptureFailed, "Failed to capture any screenshots")
			return
		}

		data, ext, err := bnd.Bundle(c.Request.Context(), captures)
		if err != nil {
			slog.Error("bundle failed", "batch_id", batchID, "error", err)
			reject(c, http.StatusInternalServerError, models.ErrCodeBundleFailed,
				fmt.Sprintf("Error creating artifact: %v", err))
			return
		}

		fullPath, err := store.Put(data, ext)
		if err != nil {
			slog.Error("artifact store failed", "batch_id", batchID, "error", err)
			reject(c, http.StatusInternalServerError, models.ErrCodeInternal,
				fmt.Sprintf("Error creating artifact: %v", err))
			return
		}

		errs := append(captureErrs, invalidErrors(invalidURLs)...)
		slog.Info("batch processed",
			"batch_id", batchID,
			"url_count", len(req.URLs),
			"captured", len(captures),
			"errors", len(errs),
			"artifact", fullPath,
			"duration", time.Since(start))

		resp := models.ProcessResponse{
			Success:  true,
			Message:  fmt.Sprintf("Successfully processed %d URLs", len(captures)),
			FilePath: fullPath,
			Errors:   errs,
		}
		notify(cfg.Webhook, "batch.completed", batchID, resp)
		c.JSON(http.StatusOK, resp)
	}
}

// notify fires a webhook event when a delivery URL is configured.
func notify(cfg config.WebhookConfig, eventType, batchID string, data interface{}) {
	if cfg.URL == "" {
		return
	}
	webhook.DeliverAsync(cfg.URL, cfg.Secret, &webhook.Event{
		Type:      eventType,
		BatchID:   batchID,
		Timestamp: time.Now().Unix(),
		Data:      data,
	})
}

// partitionURLs trims entries, drops blanks, and splits the rest into valid
// result-page URLs and invalid entries, both in input order.
func partitionURLs(urls []string) (valid, invalid []string) {
	for _, raw := range urls {
		url := strings.TrimSpace(raw)
		if url == "" {
			continue
		}
		if capture.ValidateURL(url) == nil {
			valid = append(valid, url)
		} else {
			invalid = append(invalid, url)
		}
	}
	return valid, invalid
}

// invalidErrors renders invalid entries as per-URL error strings.
func invalidErrors(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, url := range urls {
		out = append(out, fmt.Sprintf("Invalid URL: %s", url))
	}
	return out
}

// runCaptures fans the URLs out to the capture engine under a bounded
// semaphore. Successful captures and per-URL error strings come back in
// input order.
func runCaptures(ctx context.Context, capt capture.Capturer, cc *cache.Cache, cfg config.CaptureConfig, urls []string) ([]*capture.CaptureResult, []string) {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup

	results := make([]*capture.CaptureResult, len(urls))
	errs := make([]error, len(urls))

	for i, url := range urls {
		wg.Add(1)
		go func(idx int, target string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			key := cache.Key(target, capt.Name())
			if cc != nil {
				if res, ok := cc.Get(key, cfg.CacheTTL); ok {
					slog.Debug("capture cache hit", "url", target)
					results[idx] = res
					return
				}
			}

			activeCaptures.Add(1)
			defer activeCaptures.Add(-1)

			capCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
			defer cancel()

			slog.Info("capturing screenshot", "url", target)
			res, err := capt.Capture(capCtx, &capture.CaptureRequest{URL: target, Timeout: cfg.Timeout})
			if err != nil {
				slog.Error("capture failed", "url", target, "error", err)
				errs[idx] = err
				return
			}
			results[idx] = res
			if cc != nil {
				cc.Set(key, res)
			}
		}(i, url)
	}
	wg.Wait()

	captured := make([]*capture.CaptureResult, 0, len(urls))
	var errStrings []string
	for i, url := range urls {
		if errs[i] != nil {
			errStrings = append(errStrings, fmt.Sprintf("Failed to capture %s: %v", url, errs[i]))
			continue
		}
		if results[i] != nil {
			captured = append(captured, results[i])
		}
	}
	return captured, errStrings
}
