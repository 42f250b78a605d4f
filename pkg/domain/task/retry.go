package task

import (
	"strings"
	"time"
)

// RetryStrategy selects how retry delays are computed
type RetryStrategy string

const (
	RetryNone        RetryStrategy = "none"
	RetryImmediate   RetryStrategy = "immediate"
	RetryLinear      RetryStrategy = "linear"
	RetryExponential RetryStrategy = "exponential"
)

// RetryConfig defines retry behavior for a task
type RetryConfig struct {
	Strategy   RetryStrategy
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// RetryOnErrors lists substrings matched case-insensitively against error
	// text. Empty means every error is retryable.
	RetryOnErrors []string
}

// DefaultRetryConfig returns the retry policy used when tasks do not override it
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Strategy:   RetryExponential,
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// Delay computes the backoff before the given attempt (1-based), clamped to
// MaxDelay. The none and immediate strategies always return zero.
func (c RetryConfig) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	var delay time.Duration
	switch c.Strategy {
	case RetryLinear:
		delay = c.BaseDelay * time.Duration(attempt)
	case RetryExponential:
		delay = c.BaseDelay * time.Duration(1<<(attempt-1))
	default:
		return 0
	}

	if c.MaxDelay > 0 && delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	return delay
}

// IsRetryable reports whether the error text matches the retry predicate.
// A none strategy is never retryable regardless of substring matches.
func (c RetryConfig) IsRetryable(errText string) bool {
	if c.Strategy == RetryNone {
		return false
	}
	if len(c.RetryOnErrors) == 0 {
		return true
	}
	lowered := strings.ToLower(errText)
	for _, substr := range c.RetryOnErrors {
		if strings.Contains(lowered, strings.ToLower(substr)) {
			return true
		}
	}
	return false
}

// RetryAttempt records a single failure in the retry history
type RetryAttempt struct {
	Attempt   int       `json:"attempt"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// RetryState tracks how many times a task has failed and when it may run again
type RetryState struct {
	Attempt       int
	LastError     string
	LastAttemptAt *time.Time
	NextRetryAt   *time.Time
	History       []RetryAttempt
}

// recordFailure appends an attempt to the history and bumps the counter
func (s *RetryState) recordFailure(errText string, now time.Time) {
	s.Attempt++
	s.LastError = errText
	s.LastAttemptAt = &now
	s.History = append(s.History, RetryAttempt{
		Attempt:   s.Attempt,
		Error:     errText,
		Timestamp: now,
	})
}

// HistoryMaps returns the retry history as serializable records
func (s *RetryState) HistoryMaps() []map[string]any {
	out := make([]map[string]any, 0, len(s.History))
	for _, rec := range s.History {
		out = append(out, map[string]any{
			"attempt":   rec.Attempt,
			"error":     rec.Error,
			"timestamp": rec.Timestamp.Format(time.RFC3339Nano),
		})
	}
	return out
}
