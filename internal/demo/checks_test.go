package demo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialdrones/crazyflie-scripts/internal/mapping"
)

func TestFlowCheck_Run(t *testing.T) {
	flyer := &LogFlyer{}
	clock := newClock()

	require.NoError(t, (&FlowCheck{Flyer: flyer, Clock: clock}).Run(context.Background()))

	want := []float64{0.2, 0.2, 0.2, 0.2, 0.2, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.4, 0.3, 0.2, 0.1}
	sps := flyer.Setpoints()
	require.Len(t, sps, len(want))
	for i, sp := range sps {
		assert.InDelta(t, want[i], sp.Z, 1e-12, "setpoint %d", i)
	}
	assert.Equal(t, 1, flyer.Stops())
	// Reset pulse, settle, 10 x 1s holds, 5 x 0.5s holds.
	assert.Equal(t, 100*time.Millisecond+2*time.Second+10*time.Second+2500*time.Millisecond, clock.Slept())
}

// cancelAfter cancels once n hover setpoints have been sent.
type cancelAfter struct {
	*LogFlyer
	n      int
	cancel context.CancelFunc
}

func (c *cancelAfter) SendHoverSetpoint(sp mapping.HoverSetpoint) error {
	err := c.LogFlyer.SendHoverSetpoint(sp)
	if len(c.Setpoints()) == c.n {
		c.cancel()
	}
	return err
}

func TestFlowCheck_CancelledStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	flyer := &cancelAfter{LogFlyer: &LogFlyer{}, n: 3, cancel: cancel}

	err := (&FlowCheck{Flyer: flyer, Clock: newClock()}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, flyer.Setpoints(), 3)
	assert.Equal(t, 1, flyer.Stops())
}

func TestSensorCheck_Run(t *testing.T) {
	sensor := &constSensor{raw: 0}
	rec := &memRecorder{}
	clock := newClock()

	c := &SensorCheck{
		Connect:     connectTo(sensor),
		Clock:       clock,
		Recorder:    rec,
		RunningTime: time.Second,
	}
	require.NoError(t, c.Run(context.Background()))

	assert.Len(t, sensor.reads, 10)
	for _, n := range sensor.reads {
		assert.Equal(t, 1, n)
	}
	assert.Len(t, rec.samples, 10)
	assert.True(t, sensor.closed)
	assert.Equal(t, time.Second, clock.Slept())
}

func TestSensorCheck_RequiresConnector(t *testing.T) {
	assert.Error(t, (&SensorCheck{}).Run(context.Background()))
}

func TestResetEstimator(t *testing.T) {
	flyer := &LogFlyer{}
	clock := newClock()

	require.NoError(t, ResetEstimator(context.Background(), flyer, clock, 2*time.Second))
	assert.Equal(t, []ParamWrite{
		{ParamResetEstimation, "1"},
		{ParamResetEstimation, "0"},
	}, flyer.Params())
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 2 * time.Second}, clock.Sleeps())
}
