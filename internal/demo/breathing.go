package demo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/socialdrones/crazyflie-scripts/internal/config"
	"github.com/socialdrones/crazyflie-scripts/internal/mapping"
	"github.com/socialdrones/crazyflie-scripts/internal/monitoring"
	"github.com/socialdrones/crazyflie-scripts/internal/remap"
	"github.com/socialdrones/crazyflie-scripts/internal/retry"
	"github.com/socialdrones/crazyflie-scripts/internal/timeutil"
)

const (
	// liftOffWarning is how long the ring spins before the motors start.
	liftOffWarning = 2 * time.Second
	// avoidanceSettle is the extra wait after the estimator reset when
	// flying near obstacles.
	avoidanceSettle = 2 * time.Second
	// DefaultUpThreshold ends the avoidance demo when something is held
	// this close above the quadrotor.
	DefaultUpThreshold = 0.2
)

var (
	heightSamples = mapping.Indices(0)
	ledSamples    = mapping.Indices(0, 4, 8, 12)
)

// RespirationDemo flies at a height that follows the wearer's breathing and
// colours the LED ring from blue (exhaled) to red (inhaled).
type RespirationDemo struct {
	Flyer    Flyer
	Connect  SensorConnector
	Clock    timeutil.Clock
	Config   *config.DemoConfig
	Recorder Recorder
}

// Run executes the demo until the configured running time elapses, then
// lands. The sensor is stopped and closed before returning.
func (d *RespirationDemo) Run(ctx context.Context) error {
	return breathingRun{
		flyer:         d.Flyer,
		connect:       d.Connect,
		clock:         d.Clock,
		cfg:           d.Config,
		rec:           d.Recorder,
		led:           true,
		initialEffect: EffectOff,
	}.run(ctx)
}

// AvoidanceDemo follows breathing for height like RespirationDemo and
// steers away from obstacles seen by the multiranger. Holding a hand above
// the quadrotor ends the demo early.
type AvoidanceDemo struct {
	Flyer    Flyer
	Connect  SensorConnector
	Ranger   Ranger
	Clock    timeutil.Clock
	Config   *config.DemoConfig
	Recorder Recorder
	// UpThreshold defaults to DefaultUpThreshold.
	UpThreshold float64
}

// Run executes the demo until the running time elapses or the up range
// closes, then lands.
func (d *AvoidanceDemo) Run(ctx context.Context) error {
	if d.Ranger == nil {
		return errors.New("avoidance demo: ranger is required")
	}
	up := d.UpThreshold
	if up <= 0 {
		up = DefaultUpThreshold
	}
	return breathingRun{
		flyer:         d.Flyer,
		connect:       d.Connect,
		clock:         d.Clock,
		cfg:           d.Config,
		rec:           d.Recorder,
		ranger:        d.Ranger,
		upThreshold:   up,
		initialEffect: EffectWhiteSpinner,
		settle:        avoidanceSettle,
	}.run(ctx)
}

type breathingRun struct {
	flyer   Flyer
	connect SensorConnector
	clock   timeutil.Clock
	cfg     *config.DemoConfig
	rec     Recorder

	ranger      Ranger
	upThreshold float64
	led         bool

	initialEffect int
	settle        time.Duration
}

func (r breathingRun) run(ctx context.Context) (err error) {
	if r.flyer == nil || r.connect == nil {
		return errors.New("demo: flyer and sensor connector are required")
	}
	if r.clock == nil {
		r.clock = timeutil.RealClock{}
	}
	if r.cfg == nil {
		r.cfg = config.DefaultDemoConfig()
	}
	cfg := r.cfg

	rawRange := remap.Interval{Min: cfg.GetSensorRawMin(), Max: cfg.GetSensorRawMax()}
	altitude, err := mapping.NewAltitude(rawRange, remap.Interval{Min: cfg.GetFlyerZMin(), Max: cfg.GetFlyerZMax()})
	if err != nil {
		return err
	}
	led, err := mapping.NewLEDColor(rawRange, remap.Interval{Min: cfg.GetFlyerLEDMin(), Max: cfg.GetFlyerLEDMax()})
	if err != nil {
		return err
	}
	var repulsion mapping.Repulsion
	if r.ranger != nil {
		if repulsion, err = mapping.NewRepulsion(cfg.GetFlyerMinDistance(), cfg.GetFlyerMaxSpeed()); err != nil {
			return err
		}
	}

	if err := setEffect(r.flyer, r.initialEffect); err != nil {
		return err
	}
	if err := ResetEstimator(ctx, r.flyer, r.clock, r.settle); err != nil {
		return fmt.Errorf("resetting estimator: %w", err)
	}

	monitoring.Diagf("connecting to sensor %s", cfg.GetSensorAddress())
	sensor, err := ConnectSensor(ctx, r.flyer, r.connect, retry.Policy{
		Attempts: cfg.GetConnectAttempts(),
		Delay:    cfg.GetConnectDelay(),
		Clock:    r.clock,
	})
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, shutdownSensor(sensor))
	}()

	if err := sensor.Battery(cfg.GetSensorBatteryThreshold()); err != nil {
		return fmt.Errorf("setting battery threshold: %w", err)
	}
	rate := cfg.GetSensorSamplingRate()
	if rate <= 0 {
		return fmt.Errorf("sampling rate must be positive, got %d", rate)
	}
	if err := sensor.Start(rate, cfg.GetSensorChannels()); err != nil {
		return fmt.Errorf("starting acquisition: %w", err)
	}
	start := r.clock.Now()

	if err := setEffect(r.flyer, EffectDoubleSpinner); err != nil {
		return err
	}
	if err := timeutil.SleepContext(ctx, r.clock, liftOffWarning); err != nil {
		return err
	}

	z := cfg.GetFlyerHoverHeight()
	if err := hover(r.flyer, mapping.HoverSetpoint{Z: z}); err != nil {
		return err
	}
	monitoring.Diagf("lift-off at %.2fm", z)

	z, flyErr := r.fly(ctx, sensor, start, z, altitude, led, repulsion, time.Second/time.Duration(rate))
	if flyErr != nil {
		monitoring.Opsf("demo interrupted: %v", flyErr)
	}
	return errors.Join(flyErr, r.land(z))
}

// fly runs the sampling loop and returns the last commanded height.
func (r breathingRun) fly(ctx context.Context, sensor Sensor, start time.Time, z float64,
	altitude mapping.Altitude, led mapping.LEDColor, repulsion mapping.Repulsion, samplePeriod time.Duration) (float64, error) {
	if err := setEffect(r.flyer, EffectSolidColor); err != nil {
		return z, err
	}

	running := r.cfg.GetRunningTime()
	n := r.cfg.GetSensorSamplesPerRead()
	for r.clock.Since(start) < running {
		if err := ctx.Err(); err != nil {
			return z, err
		}

		var vx, vy float64
		if r.ranger != nil {
			ranges := r.ranger.Ranges()
			if mapping.IsClose(ranges.Up, r.upThreshold) {
				monitoring.Diagf("obstacle above, ending demo")
				return z, nil
			}
			vx, vy = repulsion.Velocity(ranges)
		}

		frames, err := sensor.Read(n)
		if err != nil {
			return z, fmt.Errorf("reading sensor: %w", err)
		}
		for i, frame := range frames {
			v, err := frame.Column(RespirationColumn)
			if err != nil {
				return z, err
			}
			raw := float64(v)
			s := Sample{At: r.clock.Now(), Seq: frame.Seq, Raw: raw}

			if heightSamples.Selects(i) {
				z = altitude.Height(raw)
				if err := hover(r.flyer, mapping.HoverSetpoint{VX: vx, VY: vy, Z: z}); err != nil {
					return z, err
				}
				monitoring.Tracef("resp=%d z=%.3f vx=%.3f vy=%.3f", v, z, vx, vy)
			}
			s.Setpoint = mapping.HoverSetpoint{VX: vx, VY: vy, Z: z}

			if r.led && ledSamples.Selects(i) {
				c := led.Color(raw)
				if err := setColor(r.flyer, c); err != nil {
					return z, err
				}
				s.LED = &c
				monitoring.Tracef("resp=%d led=%d/%d/%d", v, c.R, c.G, c.B)
			}

			if r.rec != nil {
				if err := r.rec.Record(s); err != nil {
					monitoring.Opsf("recording sample %d: %v", s.Seq, err)
				}
			}
			if err := timeutil.SleepContext(ctx, r.clock, samplePeriod); err != nil {
				return z, err
			}
		}
	}
	return z, nil
}

// land descends from z in fixed steps and switches the ring off. It does not
// observe cancellation: once airborne the quadrotor always lands.
func (r breathingRun) land(z float64) error {
	period := r.cfg.GetFlyerLandingPeriod()
	for _, h := range mapping.LandingProfile(z, r.cfg.GetFlyerLandingStep()) {
		if err := hover(r.flyer, mapping.HoverSetpoint{Z: h}); err != nil {
			return fmt.Errorf("landing: %w", err)
		}
		r.clock.Sleep(period)
	}
	monitoring.Diagf("landed")
	return setEffect(r.flyer, EffectOff)
}

func setColor(f Flyer, c mapping.RGB) error {
	if err := setParam(f, ParamSolidBlue, c.B); err != nil {
		return err
	}
	if err := setParam(f, ParamSolidRed, c.R); err != nil {
		return err
	}
	return setParam(f, ParamSolidGreen, c.G)
}

func shutdownSensor(s Sensor) error {
	var errs []error
	if err := s.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stopping acquisition: %w", err))
	}
	if err := s.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing sensor: %w", err))
	}
	return errors.Join(errs...)
}
