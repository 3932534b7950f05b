package transcriber

import (
	"context"
	"errors"
	"time"
)

// transientError marks a failure worth retrying: network faults, timeouts,
// rate limits, 5xx responses.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// RetryPolicy is a bounded exponential backoff schedule.
type RetryPolicy struct {
	Attempts int           // total attempts, including the first
	Base     time.Duration // delay before the second attempt
	Factor   float64       // delay multiplier per attempt
	Cap      time.Duration // upper bound on any single delay
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: 5,
		Base:     time.Second,
		Factor:   2,
		Cap:      30 * time.Second,
	}
}

// Do runs fn until it succeeds, fails non-transiently, or the schedule is
// exhausted. Exhaustion surfaces as TranscriptionError wrapping the last
// transient cause. Context cancellation stops immediately.
func (p RetryPolicy) Do(ctx context.Context, fn func() ([]byte, error)) ([]byte, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.Base

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		var transient *transientError
		if !errors.As(err, &transient) {
			// ConfigurationError, InputError, or anything else permanent.
			return nil, err
		}
		lastErr = transient.err

		if ctx.Err() != nil {
			return nil, &TranscriptionError{Attempts: attempt, Err: ctx.Err()}
		}
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, &TranscriptionError{Attempts: attempt, Err: ctx.Err()}
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * p.Factor)
		if p.Cap > 0 && delay > p.Cap {
			delay = p.Cap
		}
	}
	return nil, &TranscriptionError{Attempts: attempts, Err: lastErr}
}
