package pipeline

import "time"

// RetryPolicy bounds automatic retries of recoverable task failures.
// Delay grows linearly with the attempt number.
type RetryPolicy struct {
	// MaxRetries is the total retry budget per document.
	MaxRetries int

	// BaseDelay is the delay unit; attempt n waits n * BaseDelay.
	BaseDelay time.Duration
}

// DefaultRetryPolicy matches the pipeline defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseDelay: 60 * time.Second}
}

// Delay returns the backoff before the given attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.BaseDelay * time.Duration(attempt)
}

// Exhausted reports whether retryCount has consumed the budget.
func (p RetryPolicy) Exhausted(retryCount int) bool {
	return retryCount >= p.MaxRetries
}
