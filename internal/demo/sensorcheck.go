package demo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/socialdrones/crazyflie-scripts/internal/mapping"
	"github.com/socialdrones/crazyflie-scripts/internal/monitoring"
	"github.com/socialdrones/crazyflie-scripts/internal/retry"
	"github.com/socialdrones/crazyflie-scripts/internal/timeutil"
)

// SensorCheck reads the respiration sensor slowly and logs chest
// displacement, without flying.
type SensorCheck struct {
	Connect  SensorConnector
	Clock    timeutil.Clock
	Recorder Recorder

	// Zero values take the defaults noted on each field.
	BatteryThreshold int           // 30
	SamplingRate     int           // 10 Hz
	Channels         []int         // A1
	Period           time.Duration // 100ms between reads
	RunningTime      time.Duration // 60s
	ConnectAttempts  int           // retry.DefaultAttempts
}

func (c *SensorCheck) withDefaults() SensorCheck {
	out := *c
	if out.Clock == nil {
		out.Clock = timeutil.RealClock{}
	}
	if out.BatteryThreshold == 0 {
		out.BatteryThreshold = 30
	}
	if out.SamplingRate <= 0 {
		out.SamplingRate = 10
	}
	if len(out.Channels) == 0 {
		out.Channels = []int{0}
	}
	if out.Period <= 0 {
		out.Period = 100 * time.Millisecond
	}
	if out.RunningTime <= 0 {
		out.RunningTime = 60 * time.Second
	}
	return out
}

// Run reads one sample per period until the running time elapses.
func (c *SensorCheck) Run(ctx context.Context) (err error) {
	if c.Connect == nil {
		return errors.New("sensor check: sensor connector is required")
	}
	cfg := c.withDefaults()

	sensor, err := ConnectSensor(ctx, nil, cfg.Connect, retry.Policy{
		Attempts: cfg.ConnectAttempts,
		Clock:    cfg.Clock,
	})
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, shutdownSensor(sensor))
	}()

	if err := sensor.Battery(cfg.BatteryThreshold); err != nil {
		return fmt.Errorf("setting battery threshold: %w", err)
	}
	if err := sensor.Start(cfg.SamplingRate, cfg.Channels); err != nil {
		return fmt.Errorf("starting acquisition: %w", err)
	}

	start := cfg.Clock.Now()
	for cfg.Clock.Since(start) < cfg.RunningTime {
		if err := timeutil.SleepContext(ctx, cfg.Clock, cfg.Period); err != nil {
			return err
		}
		frames, err := sensor.Read(1)
		if err != nil {
			return fmt.Errorf("reading sensor: %w", err)
		}
		if len(frames) == 0 {
			continue
		}
		v, err := frames[0].Column(RespirationColumn)
		if err != nil {
			return err
		}
		pzt := mapping.PZTPercent(float64(v))
		monitoring.Diagf("PZT: %d", int(pzt))

		if cfg.Recorder != nil {
			s := Sample{At: cfg.Clock.Now(), Seq: frames[0].Seq, Raw: float64(v)}
			if err := cfg.Recorder.Record(s); err != nil {
				monitoring.Opsf("recording sample %d: %v", s.Seq, err)
			}
		}
	}
	monitoring.Diagf("sensor check finished")
	return nil
}
