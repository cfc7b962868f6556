package demo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/socialdrones/crazyflie-scripts/internal/convergence"
	"github.com/socialdrones/crazyflie-scripts/internal/monitoring"
	"github.com/socialdrones/crazyflie-scripts/internal/pose"
	"github.com/socialdrones/crazyflie-scripts/internal/timeutil"
)

// Estimator and controller selections for flying on external poses.
const (
	estimatorKalman     = 2
	controllerMellinger = 2
	extQuatStdDev       = 0.06
)

// Waypoint is a position target in metres.
type Waypoint struct {
	X, Y, Z float64
}

// DefaultWaypoints is the cross-and-bob pattern flown by MocapDemo.
var DefaultWaypoints = []Waypoint{
	{0, 0, 1},
	{0.6, 0, 1},
	{-0.6, 0, 1},
	{0, 0.6, 1},
	{0, -0.6, 1},
	{0, 0, 0.8},
	{0, 0, 1.2},
	{0, 0, 0.6},
}

// MocapDemo flies a waypoint pattern using poses from a motion-capture
// system as the position source.
type MocapDemo struct {
	Flyer     Flyer
	Commander HighLevelCommander
	Sink      PoseSink
	// Variances reports the estimator's position variance while it settles.
	Variances convergence.VarianceSource
	Clock     timeutil.Clock

	// Zero values take the defaults noted on each field.
	TakeoffHeight   float64       // 1.0m
	TakeoffDuration time.Duration // 5s
	LandDuration    time.Duration // 5s
	Waypoints       []Waypoint    // DefaultWaypoints
}

func (d *MocapDemo) clock() timeutil.Clock {
	if d.Clock == nil {
		return timeutil.RealClock{}
	}
	return d.Clock
}

// ActivateEstimator selects the Kalman estimator fed by external
// orientation, the high-level commander and the Mellinger controller.
func (d *MocapDemo) ActivateEstimator() error {
	params := []struct {
		name  string
		value interface{}
	}{
		{ParamEstimator, estimatorKalman},
		{ParamExtQuatStdDev, extQuatStdDev},
		{ParamHighLevel, 1},
		{ParamController, controllerMellinger},
	}
	for _, p := range params {
		if err := setParam(d.Flyer, p.name, p.value); err != nil {
			return err
		}
	}
	return nil
}

// RelayPoses forwards every tracked body on bodies to the pose sink until
// the channel closes or ctx is done. Untracked bodies and matrices that
// cannot be converted are skipped.
func (d *MocapDemo) RelayPoses(ctx context.Context, bodies <-chan pose.MocapBody) (int, error) {
	sent := 0
	for {
		select {
		case <-ctx.Done():
			return sent, ctx.Err()
		case b, ok := <-bodies:
			if !ok {
				return sent, nil
			}
			p, err := pose.FromMocapBody(b)
			if errors.Is(err, pose.ErrNoPosition) {
				continue
			}
			if err != nil {
				monitoring.Opsf("skipping pose: %v", err)
				continue
			}
			if err := d.Sink.SendExtPose(p); err != nil {
				return sent, fmt.Errorf("sending external pose: %w", err)
			}
			sent++
			monitoring.Tracef("extpose %s", p)
		}
	}
}

// Fly takes off, visits the waypoints and lands. Waits between commands
// follow the commanded durations.
func (d *MocapDemo) Fly(ctx context.Context) error {
	clock := d.clock()
	height := d.TakeoffHeight
	if height <= 0 {
		height = 1.0
	}
	takeoff := d.TakeoffDuration
	if takeoff <= 0 {
		takeoff = 5 * time.Second
	}
	landing := d.LandDuration
	if landing <= 0 {
		landing = 5 * time.Second
	}
	waypoints := d.Waypoints
	if len(waypoints) == 0 {
		waypoints = DefaultWaypoints
	}

	if err := d.Commander.Takeoff(height, takeoff); err != nil {
		return fmt.Errorf("takeoff: %w", err)
	}
	flyErr := timeutil.SleepContext(ctx, clock, takeoff)
	if flyErr == nil {
		for _, w := range waypoints {
			if flyErr = d.Commander.GoTo(w.X, w.Y, w.Z); flyErr != nil {
				flyErr = fmt.Errorf("go to (%.1f, %.1f, %.1f): %w", w.X, w.Y, w.Z, flyErr)
				break
			}
			if flyErr = ctx.Err(); flyErr != nil {
				break
			}
		}
	}

	// Always land once airborne.
	if err := d.Commander.Land(0, landing); err != nil {
		return errors.Join(flyErr, fmt.Errorf("land: %w", err))
	}
	clock.Sleep(2 * time.Second)
	if err := d.Commander.Stop(); err != nil {
		return errors.Join(flyErr, fmt.Errorf("stop: %w", err))
	}
	return flyErr
}

// Run configures the estimator, starts relaying poses, waits for the
// estimator to settle and flies the pattern. Relaying stops once the flight
// is over.
func (d *MocapDemo) Run(ctx context.Context, bodies <-chan pose.MocapBody) error {
	if d.Flyer == nil || d.Commander == nil || d.Sink == nil || d.Variances == nil {
		return errors.New("mocap demo: flyer, commander, pose sink and variance source are required")
	}
	if err := d.ActivateEstimator(); err != nil {
		return err
	}

	relayCtx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()

	g, gctx := errgroup.WithContext(relayCtx)
	g.Go(func() error {
		n, err := d.RelayPoses(gctx, bodies)
		monitoring.Diagf("relayed %d poses", n)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		defer stopRelay()
		if err := ResetEstimator(gctx, d.Flyer, d.clock(), 0); err != nil {
			return fmt.Errorf("resetting estimator: %w", err)
		}
		monitoring.Diagf("waiting for estimator to find position")
		if err := convergence.WaitForConvergence(gctx, d.Variances, convergence.NewWindow(0, 0)); err != nil {
			return err
		}
		return d.Fly(gctx)
	})
	return g.Wait()
}
