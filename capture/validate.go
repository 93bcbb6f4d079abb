package capture

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/use-agent/speedsheet/models"
)

// speedtestResultPattern matches shareable result pages on
// www.speedtest.net. The single-letter segment selects the result flavor
// (android, desktop, or iOS share links).
var speedtestResultPattern = regexp.MustCompile(`^https://www\.speedtest\.net/my-result/(a|d|i)/\d+$`)

// ValidateURL checks that url is a shareable speedtest.net result page.
// Surrounding whitespace is ignored.
func ValidateURL(url string) error {
	if !speedtestResultPattern.MatchString(strings.TrimSpace(url)) {
		return models.NewProcessError(models.ErrCodeInvalidURL,
			fmt.Sprintf("Invalid URL: %s", url), nil)
	}
	return nil
}
