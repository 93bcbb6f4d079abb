package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// CLI flags
var (
	apiURL = flag.String("api-url", "http://localhost:8000", "Speedsheet API base URL")
	apiKey = flag.String("api-key", "", "API key for authenticated requests")
	runs   = flag.Int("runs", 3, "Number of runs per batch size for averaging")
	output = flag.String("output", "loadtest-results.json", "JSON output file path")
)

// Batch sizes exercised against the capture fan-out.
var batchSizes = []int{1, 5, 10, 25}

// --- Request / Response types (mirrors models package) ---

type processRequest struct {
	URLs []string `json:"urls"`
}

type processResponse struct {
	Success  bool     `json:"success"`
	Message  string   `json:"message"`
	FilePath string   `json:"file_path"`
	Errors   []string `json:"errors"`
}

// --- Load test result types ---

type runResult struct {
	Run      int    `json:"run"`
	TotalMs  int64  `json:"total_ms"`
	Success  bool   `json:"success"`
	Errors   int    `json:"errors"`
	Artifact string `json:"artifact,omitempty"`
	Error    string `json:"error,omitempty"`
}

type sizeAverages struct {
	TotalMs  float64 `json:"total_ms"`
	PerURLMs float64 `json:"per_url_ms"`
}

type sizeResult struct {
	BatchSize int           `json:"batch_size"`
	Runs      []runResult   `json:"runs"`
	Averages  *sizeAverages `json:"averages,omitempty"`
}

type loadTestReport struct {
	Timestamp   string       `json:"timestamp"`
	APIURL      string       `json:"api_url"`
	RunsPerSize int          `json:"runs_per_size"`
	Results     []sizeResult `json:"results"`
}

func main() {
	flag.Parse()

	fmt.Println("=== Speedsheet Load Test ===")
	fmt.Printf("API URL:    %s\n", *apiURL)
	fmt.Printf("Runs/size:  %d\n", *runs)
	fmt.Printf("Output:     %s\n", *output)
	fmt.Println()

	// Quick connectivity check.
	if err := checkAPI(*apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		fmt.Fprintf(os.Stderr, "Make sure speedsheet-server is running\n")
		os.Exit(1)
	}

	report := loadTestReport{
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		APIURL:      *apiURL,
		RunsPerSize: *runs,
	}

	for _, size := range batchSizes {
		fmt.Printf("Batch size %d ...\n", size)
		sr := sizeResult{BatchSize: size}

		for i := 1; i <= *runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, *runs)
			rr := runBatch(size, i)
			if rr.Success {
				fmt.Printf("OK  %dms  %d errors\n", rr.TotalMs, rr.Errors)
			} else {
				fmt.Printf("FAILED: %s\n", rr.Error)
			}
			sr.Runs = append(sr.Runs, rr)
		}

		sr.Averages = computeAverages(size, sr.Runs)
		report.Results = append(report.Results, sr)
		fmt.Println()
	}

	printTable(report.Results)

	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func checkAPI(baseURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/api/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// syntheticURLs builds n well-formed result-page URLs. The fixture engine
// captures them without touching speedtest.net.
func syntheticURLs(n, run int) []string {
	urls := make([]string, 0, n)
	for i := 0; i < n; i++ {
		urls = append(urls, fmt.Sprintf("https://www.speedtest.net/my-result/d/%d", run*1000+i))
	}
	return urls
}

func runBatch(size, run int) runResult {
	rr := runResult{Run: run}

	bodyBytes, err := json.Marshal(processRequest{URLs: syntheticURLs(size, run)})
	if err != nil {
		rr.Error = fmt.Sprintf("marshal error: %v", err)
		return rr
	}

	req, err := http.NewRequest("POST", *apiURL+"/api/process-speedtest", bytes.NewReader(bodyBytes))
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	req.Header.Set("Content-Type", "application/json")
	if *apiKey != "" {
		req.Header.Set("X-API-Key", *apiKey)
	}

	client := &http.Client{Timeout: 300 * time.Second}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	defer resp.Body.Close()
	rr.TotalMs = time.Since(start).Milliseconds()

	var pr processResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr
	}

	rr.Success = pr.Success
	rr.Errors = len(pr.Errors)
	rr.Artifact = pr.FilePath
	if !pr.Success {
		rr.Error = pr.Message
	}

	return rr
}

func computeAverages(size int, runs []runResult) *sizeAverages {
	var successCount int
	var avg sizeAverages

	for _, r := range runs {
		if !r.Success {
			continue
		}
		successCount++
		avg.TotalMs += float64(r.TotalMs)
	}

	if successCount == 0 {
		return nil
	}

	avg.TotalMs /= float64(successCount)
	avg.PerURLMs = avg.TotalMs / float64(size)
	return &avg
}

func printTable(results []sizeResult) {
	fmt.Println(strings.Repeat("─", 60))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Batch Size\tAvg Latency\tPer URL\tRuns OK\n")
	fmt.Fprintf(w, "──────────\t───────────\t───────\t───────\n")

	for _, r := range results {
		ok := 0
		for _, run := range r.Runs {
			if run.Success {
				ok++
			}
		}
		if r.Averages == nil {
			fmt.Fprintf(w, "%d\tFAILED\t-\t%d/%d\n", r.BatchSize, ok, len(r.Runs))
			continue
		}
		fmt.Fprintf(w, "%d\t%dms\t%.1fms\t%d/%d\n",
			r.BatchSize,
			int64(r.Averages.TotalMs),
			r.Averages.PerURLMs,
			ok, len(r.Runs),
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 60))
}

func writeJSON(path string, report loadTestReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
