package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/use-agent/speedsheet/batch"
	"github.com/use-agent/speedsheet/client"
	"github.com/use-agent/speedsheet/config"
	"github.com/use-agent/speedsheet/models"
)

// CLI flags
var (
	baseURL  = flag.String("base", "", "backend API base URL including the /api prefix (default from SPEEDSHEET_BACKEND_URL)")
	urlsFile = flag.String("f", "", "read URLs from this file instead of the arguments")
	outDir   = flag.String("o", "", "directory to save the retrieved artifact into (default from SPEEDSHEET_DOWNLOAD_DIR)")
	timeout  = flag.Duration("timeout", 0, "submission timeout (default from SPEEDSHEET_SUBMIT_TIMEOUT)")
	verbose  = flag.Bool("v", false, "log progress to stderr")
)

func main() {
	flag.Parse()

	// .env is best effort; variables already in the environment win.
	_ = godotenv.Load()
	cfg := config.Load()
	initLogger(*verbose)

	if *baseURL == "" {
		*baseURL = cfg.Client.BaseURL
	}
	if *outDir == "" {
		*outDir = cfg.Client.DownloadDir
	}
	if *timeout == 0 {
		*timeout = cfg.Client.Timeout
	}

	raw, err := readInput()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	backend := client.NewHTTPClient(*baseURL, *timeout)
	if cfg.Client.APIKey != "" {
		backend.WithAPIKey(cfg.Client.APIKey)
	}

	var saved string
	retriever := batch.RetrieverFunc(func(ctx context.Context, fileName string) error {
		path, err := backend.SaveArtifact(ctx, fileName, *outDir)
		if err != nil {
			return err
		}
		saved = path
		return nil
	})

	ctrl := batch.NewController(backend, retriever, *timeout)

	res, err := ctrl.Submit(context.Background(), raw)
	if err != nil {
		var perr *models.ProcessError
		if errors.As(err, &perr) {
			fmt.Fprintf(os.Stderr, "Error [%s]: %s\n", perr.Code, perr.Message)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}

	out := res.Outcome
	fmt.Println(out.Message)
	for _, w := range out.Warnings {
		fmt.Fprintf(os.Stderr, "  warning: %s\n", w)
	}

	switch {
	case saved != "":
		fmt.Printf("Saved %s\n", saved)
	case res.Retrieval != nil:
		fmt.Printf("Artifact available for download: %s\n", res.Retrieval.FileName)
	}

	if !out.Success {
		os.Exit(1)
	}
}

// readInput assembles the raw URL text from the file flag, the positional
// arguments, or stdin, in that order of preference.
func readInput() (string, error) {
	if *urlsFile != "" {
		data, err := os.ReadFile(*urlsFile)
		if err != nil {
			return "", fmt.Errorf("read URL file: %w", err)
		}
		return string(data), nil
	}
	if args := flag.Args(); len(args) > 0 {
		return strings.Join(args, "\n"), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

// initLogger routes logs to stderr so stdout stays parseable. Verbose mode
// lowers the threshold to debug.
func initLogger(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
