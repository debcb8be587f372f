package jobs

import (
	"testing"
	"time"
)

func TestRetryable(t *testing.T) {
	cases := []struct {
		msg  string
		want bool
	}{
		{"Request timeout after 30s", true},
		{"connection reset by peer", true},
		{"provider api error: something upstream broke", true},
		{"stripe api error: unexpected status 502", true},
		{"hit the rate limit, slow down", true},
		{"Temporary failure in name resolution", true},
		{"network unreachable", true},
		{"Invalid image format", false},
		{"Thumbnail file does not exist", false},
		{"account not found", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := Retryable(tc.msg); got != tc.want {
			t.Errorf("Retryable(%q) = %v, want %v", tc.msg, got, tc.want)
		}
	}
}

func TestBackoffDelay(t *testing.T) {
	cases := []struct {
		priorRetries int
		want         time.Duration
	}{
		{0, 60 * time.Second},
		{1, 120 * time.Second},
		{2, 240 * time.Second},
		{-1, 60 * time.Second},
	}
	for _, tc := range cases {
		if got := BackoffDelay(tc.priorRetries); got != tc.want {
			t.Errorf("BackoffDelay(%d) = %v, want %v", tc.priorRetries, got, tc.want)
		}
	}
}
