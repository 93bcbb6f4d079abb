package batch

import (
	"errors"
	"testing"

	"github.com/use-agent/speedsheet/models"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "single url",
			raw:  "https://www.speedtest.net/my-result/d/123",
			want: []string{"https://www.speedtest.net/my-result/d/123"},
		},
		{
			name: "blank lines dropped and lines trimmed",
			raw:  "a\n\nb\n c \n",
			want: []string{"a", "b", "c"},
		},
		{
			name: "windows line endings",
			raw:  "a\r\nb\r\n",
			want: []string{"a", "b"},
		},
		{
			name: "order preserved",
			raw:  "third\nfirst\nsecond",
			want: []string{"third", "first", "second"},
		},
		{
			name: "duplicates preserved",
			raw:  "same\nsame\nsame",
			want: []string{"same", "same", "same"},
		},
		{
			name: "interior whitespace kept",
			raw:  "  not a url but kept  ",
			want: []string{"not a url but kept"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d urls, got %d (%v)", len(tt.want), len(got), got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("url %d: expected %q, got %q", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestNormalize_EmptyInput(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n", "\n\n\n", " \n\t\n  \n"} {
		_, err := Normalize(raw)
		if err == nil {
			t.Fatalf("expected error for %q", raw)
		}
		var perr *models.ProcessError
		if !errors.As(err, &perr) {
			t.Fatalf("expected ProcessError, got %T", err)
		}
		if perr.Code != models.ErrCodeEmptyInput {
			t.Errorf("expected code %s, got %s", models.ErrCodeEmptyInput, perr.Code)
		}
	}
}
