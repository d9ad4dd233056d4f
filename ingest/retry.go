// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/poiesic/mediamind/ai"
)

// RetryPolicy retries external calls with exponential backoff and jitter.
// Failures classified terminal (ai.IsTerminal) stop immediately; everything
// else is treated as transient, since most unclassified failures are network
// conditions.
type RetryPolicy struct {
	// MaxAttempts is the total number of calls, including the first.
	MaxAttempts int

	// BaseDelay is the delay after the first failed attempt; it doubles on
	// each further attempt, capped at MaxDelay.
	BaseDelay time.Duration

	// MaxDelay caps the backoff. Zero means uncapped.
	MaxDelay time.Duration

	// Jitter is the fraction (0-1) of the delay randomized to avoid
	// thundering herds. 0.2 means the actual delay is delay ± 20%.
	Jitter float64

	// CallTimeout bounds each individual attempt. Zero means no per-call
	// timeout beyond the caller's context.
	CallTimeout time.Duration
}

// DefaultRetryPolicy returns the policy used by the pipeline unless
// overridden: 4 attempts, 2s base delay doubling up to 30s, 20% jitter,
// 2 minute per-call timeout.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 4,
		BaseDelay:   2 * time.Second,
		MaxDelay:    30 * time.Second,
		Jitter:      0.2,
		CallTimeout: 2 * time.Minute,
	}
}

// PermanentError is surfaced when retries exhaust or a terminal failure
// occurs; it wraps the last underlying error.
type PermanentError struct {
	Step     string
	Attempts int
	Err      error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("%s failed after %d attempt(s): %v", e.Step, e.Attempts, e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Execute runs operation under the retry policy. A nil return means the
// operation eventually succeeded. A *PermanentError means the failure is
// final: either a terminal error occurred (after exactly one call for that
// attempt) or all attempts returned transient errors. Context cancellation
// is returned as the context's error, not wrapped.
func (p RetryPolicy) Execute(ctx context.Context, step string, operation func(ctx context.Context) error) error {
	if p.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = p.attempt(ctx, operation)
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "step", step, "attempt", attempt)
			}
			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if ai.IsTerminal(lastErr) {
			slog.Debug("operation failed terminally", "step", step, "attempt", attempt, "error", lastErr)
			return &PermanentError{Step: step, Attempts: attempt, Err: lastErr}
		}

		if attempt == p.MaxAttempts {
			break
		}

		// Retry attempts must be observable so a long Processing status is
		// explainable rather than silent.
		slog.Warn("operation failed, will retry", "step", step,
			"attempt", attempt, "maxAttempts", p.MaxAttempts, "error", lastErr)

		timer := time.NewTimer(p.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return &PermanentError{Step: step, Attempts: p.MaxAttempts, Err: lastErr}
}

// attempt runs one call under the per-call timeout.
func (p RetryPolicy) attempt(ctx context.Context, operation func(ctx context.Context) error) error {
	if p.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.CallTimeout)
		defer cancel()
	}
	return operation(ctx)
}

// delay computes the backoff before attempt+1: BaseDelay * 2^(attempt-1),
// capped at MaxDelay, with Jitter fraction randomized.
func (p RetryPolicy) delay(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			delay = p.MaxDelay
			break
		}
	}

	if p.Jitter > 0 {
		spread := float64(delay) * p.Jitter
		delay += time.Duration((rand.Float64()*2 - 1) * spread)
		if delay < 0 {
			delay = 0
		}
	}
	return delay
}
