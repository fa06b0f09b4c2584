package scraper

import (
	"net/http"
	"testing"
	"time"
)

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{name: "absent", header: "", want: 0},
		{name: "delta seconds", header: "3", want: 3 * time.Second},
		{name: "fractional seconds", header: "1.5", want: 1500 * time.Millisecond},
		{name: "zero", header: "0", want: 0},
		{name: "negative", header: "-2", want: 0},
		{name: "http date in future", header: now.Add(10 * time.Second).Format(http.TimeFormat), want: 10 * time.Second},
		{name: "http date in past", header: now.Add(-time.Minute).Format(http.TimeFormat), want: 0},
		{name: "garbage", header: "soon", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseRetryAfter(tt.header, now); got != tt.want {
				t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.header, got, tt.want)
			}
		})
	}
}
