package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/speedsheet/batch"
	"github.com/use-agent/speedsheet/capture"
	"github.com/use-agent/speedsheet/client"
	"github.com/use-agent/speedsheet/config"
	"github.com/use-agent/speedsheet/models"
)

func main() {
	// .env is best effort; variables already in the environment win.
	_ = godotenv.Load()
	cfg := config.Load()

	s := server.NewMCPServer(
		"speedsheet",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	processTool := mcp.NewTool("process_speedtest",
		mcp.WithDescription("Submit a batch of speedtest.net result URLs for screenshot capture. The backend renders every result page, bundles the screenshots into one artifact, and the artifact is downloaded when the batch succeeds."),
		mcp.WithArray("urls",
			mcp.Required(),
			mcp.Description("List of speedtest.net result URLs (https://www.speedtest.net/my-result/...)"),
		),
		mcp.WithString("download_dir",
			mcp.Description("Directory to save the retrieved artifact into (default: the configured download directory)"),
		),
	)
	s.AddTool(processTool, handleProcessSpeedtest(cfg))

	validateTool := mcp.NewTool("validate_urls",
		mcp.WithDescription("Check which entries in a list are well-formed speedtest.net result URLs. Runs locally without contacting the backend."),
		mcp.WithArray("urls",
			mcp.Required(),
			mcp.Description("List of candidate URLs"),
		),
	)
	s.AddTool(validateTool, handleValidateURLs())

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// handleProcessSpeedtest runs one full submission per tool call: normalize,
// submit, interpret, download. Failures come back as tool results, never as
// protocol errors.
func handleProcessSpeedtest(cfg *config.Config) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		urls, err := request.RequireStringSlice("urls")
		if err != nil {
			return mcp.NewToolResultError("urls is required and must be an array of strings"), nil
		}
		destDir := request.GetString("download_dir", cfg.Client.DownloadDir)

		backend := client.NewHTTPClient(cfg.Client.BaseURL, cfg.Client.Timeout)
		if cfg.Client.APIKey != "" {
			backend.WithAPIKey(cfg.Client.APIKey)
		}

		var saved string
		retriever := batch.RetrieverFunc(func(ctx context.Context, fileName string) error {
			path, err := backend.SaveArtifact(ctx, fileName, destDir)
			if err != nil {
				return err
			}
			saved = path
			return nil
		})

		ctrl := batch.NewController(backend, retriever, cfg.Client.Timeout)
		res, err := ctrl.Submit(ctx, strings.Join(urls, "\n"))
		if err != nil {
			var perr *models.ProcessError
			if errors.As(err, &perr) {
				return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", perr.Code, perr.Message)), nil
			}
			return mcp.NewToolResultError(err.Error()), nil
		}

		out := res.Outcome
		var sb strings.Builder
		sb.WriteString(out.Message + "\n")
		for _, w := range out.Warnings {
			sb.WriteString("warning: " + w + "\n")
		}
		switch {
		case saved != "":
			sb.WriteString("Artifact saved to " + saved + "\n")
		case res.Retrieval != nil:
			sb.WriteString("Artifact available as " + res.Retrieval.FileName + "\n")
		}

		if !out.Success {
			return mcp.NewToolResultError(sb.String()), nil
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// handleValidateURLs classifies each entry without any network traffic.
func handleValidateURLs() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		urls, err := request.RequireStringSlice("urls")
		if err != nil {
			return mcp.NewToolResultError("urls is required and must be an array of strings"), nil
		}

		entries, err := batch.Normalize(strings.Join(urls, "\n"))
		if err != nil {
			return mcp.NewToolResultError("no URLs to validate"), nil
		}

		var sb strings.Builder
		valid := 0
		for _, u := range entries {
			if capture.ValidateURL(u) == nil {
				valid++
				sb.WriteString("valid    " + u + "\n")
			} else {
				sb.WriteString("invalid  " + u + "\n")
			}
		}
		sb.WriteString(fmt.Sprintf("\n%d of %d URLs are valid speedtest.net result pages\n", valid, len(entries)))

		return mcp.NewToolResultText(sb.String()), nil
	}
}
