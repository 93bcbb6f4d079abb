package capture

import (
	"errors"
	"strings"
	"testing"

	"github.com/use-agent/speedsheet/models"
)

func TestValidateURL(t *testing.T) {
	valid := []string{
		"https://www.speedtest.net/my-result/d/123456",
		"https://www.speedtest.net/my-result/a/9",
		"https://www.speedtest.net/my-result/i/17592186044416",
		"  https://www.speedtest.net/my-result/d/123456  ",
	}
	for _, url := range valid {
		if err := ValidateURL(url); err != nil {
			t.Errorf("expected %q to be valid, got: %v", url, err)
		}
	}

	invalid := []string{
		"",
		"not a url",
		"http://www.speedtest.net/my-result/d/123456",
		"https://speedtest.net/my-result/d/123456",
		"https://www.speedtest.net/my-result/x/123456",
		"https://www.speedtest.net/my-result/d/",
		"https://www.speedtest.net/my-result/d/12ab",
		"https://www.speedtest.net/my-result/d/123456/extra",
		"https://www.speedtest.net/my-result/d/123456?share=1",
		"https://www.fast.com/my-result/d/123456",
	}
	for _, url := range invalid {
		err := ValidateURL(url)
		if err == nil {
			t.Errorf("expected %q to be invalid", url)
			continue
		}
		var perr *models.ProcessError
		if !errors.As(err, &perr) || perr.Code != models.ErrCodeInvalidURL {
			t.Errorf("expected INVALID_URL error for %q, got: %v", url, err)
		}
		if !strings.Contains(perr.Message, url) && url != "" {
			t.Errorf("message should name the rejected url, got: %q", perr.Message)
		}
	}
}
