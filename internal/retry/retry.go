// Package retry runs an operation a fixed number of times until it succeeds.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/socialdrones/crazyflie-scripts/internal/monitoring"
	"github.com/socialdrones/crazyflie-scripts/internal/timeutil"
)

// DefaultAttempts is used when Policy.Attempts is not positive.
const DefaultAttempts = 10

// ErrAttemptsExhausted is returned when every attempt failed.
var ErrAttemptsExhausted = errors.New("attempts exhausted")

// Policy bounds a retry loop.
type Policy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// Delay is waited between a failure and the next attempt.
	Delay time.Duration
	// Clock defaults to timeutil.RealClock.
	Clock timeutil.Clock
	// Name labels log lines, e.g. "sensor connect".
	Name string
}

// Do calls op until it returns nil, the attempts run out or ctx is done.
// onFailure, if set, runs after each failed attempt and before the delay;
// attempt is 1-based. The returned error wraps both ErrAttemptsExhausted and
// the last failure.
func Do(ctx context.Context, p Policy, op func(ctx context.Context, attempt int) error, onFailure func(attempt int, err error)) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	clock := p.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	name := p.Name
	if name == "" {
		name = "operation"
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx, attempt)
		if err == nil {
			if attempt > 1 {
				monitoring.Diagf("%s succeeded on attempt %d/%d", name, attempt, attempts)
			}
			return nil
		}
		lastErr = err

		if attempt == 1 {
			monitoring.Opsf("%s failed: %v", name, err)
		}
		monitoring.Diagf("%s attempt %d/%d failed", name, attempt, attempts)

		if onFailure != nil {
			onFailure(attempt, err)
		}
		if attempt < attempts {
			if err := timeutil.SleepContext(ctx, clock, p.Delay); err != nil {
				return err
			}
		}
	}

	return fmt.Errorf("%s: %w after %d tries: %w", name, ErrAttemptsExhausted, attempts, lastErr)
}
