package jobs

import (
	"strings"
	"time"
)

// MaxRetries bounds how many times a retryable failure is rescheduled after
// its first attempt.
const MaxRetries = 3

// Substring classifier over the error message. Coarse on purpose; the
// retryable/terminal split and the backoff formula are the contract.
var retryableKeywords = []string{
	"network",
	"timeout",
	"connection",
	"502",
	"503",
	"504",
	"temporary",
	"rate limit",
	"api error",
}

// Retryable reports whether an error message describes a transient provider
// failure.
func Retryable(errMsg string) bool {
	lower := strings.ToLower(errMsg)
	for _, keyword := range retryableKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// BackoffDelay returns the wait before the next attempt given how many
// retries already happened: 60s, 120s, 240s.
func BackoffDelay(priorRetries int) time.Duration {
	if priorRetries < 0 {
		priorRetries = 0
	}
	return time.Duration(60*(1<<priorRetries)) * time.Second
}
