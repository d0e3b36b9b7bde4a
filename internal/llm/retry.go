package llm

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/arabicverse/qasida/internal/poem"
	"github.com/arabicverse/qasida/internal/poem/ports"
)

// RetryPolicy configures RetryAdapter's backoff.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	CallTimeout   time.Duration
}

// DefaultRetryPolicy is the default per-call timeout and retry budget.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    2,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
		CallTimeout:   30 * time.Second,
	}
}

// RetryAdapter wraps an LLMProvider with a per-call timeout and
// exponential-backoff retry on transient transport errors, so individual
// node code never has to reimplement retry logic (spec §5's "retry" is a
// decorator around the adapter, not a per-node concern).
type RetryAdapter struct {
	inner  ports.LLMProvider
	policy RetryPolicy
}

// NewRetryAdapter wraps inner with policy.
func NewRetryAdapter(inner ports.LLMProvider, policy RetryPolicy) *RetryAdapter {
	return &RetryAdapter{inner: inner, policy: policy}
}

func (a *RetryAdapter) Name() string { return a.inner.Name() }

// Generate calls the wrapped provider, retrying transient failures up to
// policy.MaxRetries times with exponential backoff. The final error, if
// any, is wrapped as a poem.LLMError.
func (a *RetryAdapter) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= a.policy.MaxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, a.policy.CallTimeout)
		text, err := a.inner.Generate(callCtx, prompt)
		cancel()
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !isRetryable(err) || attempt >= a.policy.MaxRetries {
			break
		}
		if !sleepWithBackoff(ctx, a.policy, attempt) {
			break
		}
	}
	return "", &poem.LLMError{Provider: a.inner.Name(), Message: lastErr.Error(), Err: lastErr}
}

func sleepWithBackoff(ctx context.Context, policy RetryPolicy, attempt int) bool {
	delay := calculateBackoff(policy, attempt)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func calculateBackoff(policy RetryPolicy, attempt int) time.Duration {
	delay := float64(policy.InitialDelay) * math.Pow(policy.BackoffFactor, float64(attempt))
	if time.Duration(delay) > policy.MaxDelay {
		return policy.MaxDelay
	}
	return time.Duration(delay)
}

func isRetryable(err error) bool {
	lower := strings.ToLower(err.Error())
	patterns := []string{
		"timeout", "rate_limit", "rate limit", "too many requests",
		"429", "500", "502", "503", "504",
		"connection reset", "connection refused", "eof",
		"overloaded", "capacity", "deadline exceeded",
	}
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
