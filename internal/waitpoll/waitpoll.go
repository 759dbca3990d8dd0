package waitpoll

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultTimeout bounds every wait that does not configure its own timeout.
	DefaultTimeout = 10 * time.Second
	// DefaultInterval is the delay between two condition checks.
	DefaultInterval = 250 * time.Millisecond

	errorMessageTimeout          = "waitpoll: bounded wait timed out"
	timeoutErrorFormat           = "%s: %s after %s (%d attempts)"
	timeoutErrorWithCauseFormat  = "%s: %s after %s (%d attempts): %v"
	unnamedConditionDescription  = "condition"
	minimumIntervalForZeroConfig = time.Millisecond
)

// ErrTimeout indicates a bounded wait elapsed before its condition was met.
var ErrTimeout = errors.New(errorMessageTimeout)

// Condition reports whether the awaited state has been reached.
// Errors are remembered but do not stop polling.
type Condition func(ctx context.Context) (bool, error)

// Probe is a Condition that also yields a value once satisfied.
type Probe[T any] func(ctx context.Context) (T, bool, error)

// TimeoutError describes an unmet bounded wait.
type TimeoutError struct {
	Description string
	Timeout     time.Duration
	Attempts    int
	LastErr     error
}

func (timeoutError *TimeoutError) Error() string {
	if timeoutError.LastErr != nil {
		return fmt.Sprintf(timeoutErrorWithCauseFormat, errorMessageTimeout, timeoutError.Description, timeoutError.Timeout, timeoutError.Attempts, timeoutError.LastErr)
	}
	return fmt.Sprintf(timeoutErrorFormat, errorMessageTimeout, timeoutError.Description, timeoutError.Timeout, timeoutError.Attempts)
}

// Is reports ErrTimeout equivalence so callers can use errors.Is.
func (timeoutError *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

func (timeoutError *TimeoutError) Unwrap() error {
	return timeoutError.LastErr
}

// Waiter polls conditions until they hold or Timeout elapses.
type Waiter struct {
	Timeout  time.Duration
	Interval time.Duration
}

// New returns a Waiter, substituting defaults for non-positive durations.
func New(timeout time.Duration, interval time.Duration) Waiter {
	return Waiter{Timeout: timeout, Interval: interval}.normalized()
}

// WithTimeout returns a copy of the waiter bounded by timeout.
func (waiter Waiter) WithTimeout(timeout time.Duration) Waiter {
	waiter.Timeout = timeout
	return waiter.normalized()
}

func (waiter Waiter) normalized() Waiter {
	if waiter.Timeout <= 0 {
		waiter.Timeout = DefaultTimeout
	}
	if waiter.Interval <= 0 {
		waiter.Interval = DefaultInterval
	}
	if waiter.Interval < minimumIntervalForZeroConfig {
		waiter.Interval = minimumIntervalForZeroConfig
	}
	return waiter
}

// Until blocks until condition reports true, the timeout elapses, or ctx is done.
func (waiter Waiter) Until(ctx context.Context, description string, condition Condition) error {
	_, pollErr := Poll(ctx, waiter, description, func(pollContext context.Context) (struct{}, bool, error) {
		satisfied, conditionErr := condition(pollContext)
		return struct{}{}, satisfied, conditionErr
	})
	return pollErr
}

// Poll checks probe immediately and then once per interval. It returns the
// probe's value on success, a *TimeoutError when the timeout elapses, or the
// context error when ctx is cancelled first.
func Poll[T any](ctx context.Context, waiter Waiter, description string, probe Probe[T]) (T, error) {
	var zero T
	waiter = waiter.normalized()
	if description == "" {
		description = unnamedConditionDescription
	}

	waitContext, cancelWait := context.WithTimeout(ctx, waiter.Timeout)
	defer cancelWait()

	ticker := time.NewTicker(waiter.Interval)
	defer ticker.Stop()

	attempts := 0
	var lastErr error
	for {
		attempts++
		value, satisfied, probeErr := probe(waitContext)
		if probeErr == nil && satisfied {
			return value, nil
		}
		if probeErr != nil && !errors.Is(probeErr, context.DeadlineExceeded) {
			lastErr = probeErr
		}

		select {
		case <-waitContext.Done():
			if parentErr := ctx.Err(); parentErr != nil {
				return zero, parentErr
			}
			return zero, &TimeoutError{
				Description: description,
				Timeout:     waiter.Timeout,
				Attempts:    attempts,
				LastErr:     lastErr,
			}
		case <-ticker.C:
		}
	}
}
