package batch

import (
	"strings"

	"github.com/use-agent/speedsheet/models"
)

// Normalize turns a raw multi-line block of text into an ordered URL list.
//
// Lines are trimmed and blank lines dropped; the remaining order is
// preserved. No URL-shape validation happens here: malformed entries are a
// backend concern, reported back as per-URL errors.
func Normalize(raw string) ([]string, error) {
	lines := strings.Split(raw, "\n")
	urls := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		urls = append(urls, line)
	}
	if len(urls) == 0 {
		return nil, models.NewProcessError(models.ErrCodeEmptyInput, "empty input", nil)
	}
	return urls, nil
}
