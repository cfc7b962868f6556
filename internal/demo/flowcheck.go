package demo

import (
	"context"
	"errors"
	"time"

	"github.com/socialdrones/crazyflie-scripts/internal/mapping"
	"github.com/socialdrones/crazyflie-scripts/internal/monitoring"
	"github.com/socialdrones/crazyflie-scripts/internal/timeutil"
)

// flowStep is one hover setpoint held for a while.
type flowStep struct {
	z    float64
	hold time.Duration
}

// flowChoreography hovers low, climbs, then descends in 10cm steps.
func flowChoreography() []flowStep {
	var steps []flowStep
	for i := 0; i < 5; i++ {
		steps = append(steps, flowStep{z: 0.2, hold: time.Second})
	}
	for i := 0; i < 5; i++ {
		steps = append(steps, flowStep{z: 0.5, hold: time.Second})
	}
	for i := 0; i < 5; i++ {
		steps = append(steps, flowStep{z: 0.5 - 0.1*float64(i), hold: 500 * time.Millisecond})
	}
	return steps
}

// FlowCheck is a short hover test of the optical flow deck, flown without
// any sensor input.
type FlowCheck struct {
	Flyer Flyer
	Clock timeutil.Clock
}

// Run flies the choreography and cuts the motors. On cancellation it sends
// the stop setpoint immediately.
func (c *FlowCheck) Run(ctx context.Context) error {
	if c.Flyer == nil {
		return errors.New("flow check: flyer is required")
	}
	clock := c.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	if err := ResetEstimator(ctx, c.Flyer, clock, 2*time.Second); err != nil {
		return err
	}

	var runErr error
	for _, step := range flowChoreography() {
		if runErr = hover(c.Flyer, mapping.HoverSetpoint{Z: step.z}); runErr != nil {
			break
		}
		if runErr = timeutil.SleepContext(ctx, clock, step.hold); runErr != nil {
			break
		}
	}

	if err := c.Flyer.SendStopSetpoint(); err != nil {
		return errors.Join(runErr, err)
	}
	monitoring.Diagf("flow check finished")
	return runErr
}
