package demo

import (
	"context"
	"time"

	"github.com/socialdrones/crazyflie-scripts/internal/timeutil"
)

// resetPulse is how long kalman.resetEstimation is held high.
const resetPulse = 100 * time.Millisecond

// ResetEstimator pulses the estimator reset parameter, then waits settle for
// the filter to pick up fresh measurements.
func ResetEstimator(ctx context.Context, f Flyer, clock timeutil.Clock, settle time.Duration) error {
	if err := setParam(f, ParamResetEstimation, 1); err != nil {
		return err
	}
	if err := timeutil.SleepContext(ctx, clock, resetPulse); err != nil {
		return err
	}
	if err := setParam(f, ParamResetEstimation, 0); err != nil {
		return err
	}
	return timeutil.SleepContext(ctx, clock, settle)
}
