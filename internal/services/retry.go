package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/arabicverse/qasida/internal/llm"
	"github.com/arabicverse/qasida/internal/poem"
)

// PipelineExecutor runs the full generation pipeline once for a user
// prompt and returns the captured Execution. PipelineRunner implements it;
// RetryExecutor depends on the interface so it can be tested without a
// real pipeline.
type PipelineExecutor interface {
	Run(ctx context.Context, userPrompt string) (*poem.Execution, error)
}

// RetryExecutor wraps a PipelineExecutor with whole-pipeline retry and
// exponential backoff, recording one RunRecord per attempt so a caller can
// see exactly which attempts failed and why. Retries the entire pipeline
// run rather than a single failed node.
type RetryExecutor struct {
	exec    PipelineExecutor
	history *RunHistoryService
}

// NewRetryExecutor creates a RetryExecutor.
func NewRetryExecutor(exec PipelineExecutor, history *RunHistoryService) *RetryExecutor {
	return &RetryExecutor{exec: exec, history: history}
}

// ExecuteWithRetry runs the pipeline for userPrompt, retrying up to
// policy.MaxRetries times on a retryable error. triggerType/triggerRef are
// recorded on every attempt's RunRecord ("manual", "scheduled", "retry").
func (r *RetryExecutor) ExecuteWithRetry(ctx context.Context, userPrompt string, policy llm.RetryPolicy, triggerType, triggerRef string) (*poem.Execution, error) {
	var firstRunID string
	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		var retryOf *string
		if attempt > 0 && firstRunID != "" {
			retryOf = &firstRunID
		}

		record, err := r.history.StartRun(ctx, "qasida", triggerType, triggerRef, map[string]any{"user_prompt": userPrompt})
		if err != nil {
			slog.Warn("retry: failed to create run record", "err", err)
		} else {
			_ = r.history.UpdateRunRetryMeta(ctx, record.ID, attempt, retryOf)
			if attempt == 0 {
				firstRunID = record.ID
			}
		}

		execution, execErr := r.exec.Run(ctx, userPrompt)
		if execErr != nil {
			lastErr = execErr
			if record != nil {
				_ = r.history.FailRun(ctx, record.ID, execErr.Error())
			}
			if !isRetryable(execErr) || attempt >= policy.MaxRetries {
				return nil, execErr
			}
			sleepWithBackoff(ctx, policy, attempt)
			continue
		}

		if record != nil {
			outputs := map[string]any{"status": execution.Status}
			_ = r.history.CompleteRun(ctx, record.ID, execution.ID, outputs)
		}
		return execution, nil
	}

	return nil, lastErr
}

func sleepWithBackoff(ctx context.Context, policy llm.RetryPolicy, attempt int) {
	delay := calculateBackoff(policy, attempt)
	slog.Info("retry: backing off", "attempt", attempt+1, "delay", delay)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func calculateBackoff(policy llm.RetryPolicy, attempt int) time.Duration {
	delay := float64(policy.InitialDelay)
	for i := 0; i < attempt; i++ {
		delay *= policy.BackoffFactor
	}
	if time.Duration(delay) > policy.MaxDelay {
		return policy.MaxDelay
	}
	return time.Duration(delay)
}

// isRetryable reports whether a whole-pipeline failure is worth retrying,
// using the same transient-error vocabulary as llm.RetryAdapter so a
// failure from deep inside a node and a failure at the pipeline level are
// judged consistently.
func isRetryable(err error) bool {
	lower := strings.ToLower(err.Error())
	for _, p := range []string{
		"timeout", "rate_limit", "rate limit", "too many requests",
		"429", "500", "502", "503", "504",
		"connection reset", "connection refused", "eof",
		"overloaded", "capacity", "deadline exceeded",
	} {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
