package demo

import (
	"context"
	"time"

	"github.com/socialdrones/crazyflie-scripts/internal/monitoring"
	"github.com/socialdrones/crazyflie-scripts/internal/retry"
	"github.com/socialdrones/crazyflie-scripts/internal/timeutil"
)

const flashPeriod = 100 * time.Millisecond

// flashFailure blinks the ring twice to signal a failed connection attempt.
func flashFailure(f Flyer, clock timeutil.Clock) {
	for _, effect := range []int{EffectBatteryStatus, EffectOff, EffectBatteryStatus, EffectOff} {
		if err := setEffect(f, effect); err != nil {
			monitoring.Opsf("failure flash: %v", err)
		}
		clock.Sleep(flashPeriod)
	}
}

// ConnectSensor opens the sensor under p. When f is set the ring shows the
// white spinner during each attempt and flashes after each failure.
func ConnectSensor(ctx context.Context, f Flyer, connect SensorConnector, p retry.Policy) (Sensor, error) {
	if p.Clock == nil {
		p.Clock = timeutil.RealClock{}
	}
	if p.Name == "" {
		p.Name = "sensor connect"
	}

	var sensor Sensor
	err := retry.Do(ctx, p,
		func(ctx context.Context, attempt int) error {
			if f != nil {
				if err := setEffect(f, EffectWhiteSpinner); err != nil {
					monitoring.Opsf("connect indicator: %v", err)
				}
			}
			s, err := connect(ctx)
			if err != nil {
				return err
			}
			sensor = s
			return nil
		},
		func(attempt int, err error) {
			if f != nil {
				flashFailure(f, p.Clock)
			}
		})
	if err != nil {
		return nil, err
	}
	monitoring.Diagf("sensor connected")
	return sensor, nil
}
