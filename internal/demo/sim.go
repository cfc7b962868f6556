package demo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/socialdrones/crazyflie-scripts/internal/convergence"
	"github.com/socialdrones/crazyflie-scripts/internal/mapping"
	"github.com/socialdrones/crazyflie-scripts/internal/monitoring"
	"github.com/socialdrones/crazyflie-scripts/internal/pose"
	"github.com/socialdrones/crazyflie-scripts/internal/timeutil"
)

// ErrNotStarted is returned by SimSensor.Read before Start.
var ErrNotStarted = errors.New("acquisition not started")

// SimSensor produces a breathing-like sine on every analog channel.
type SimSensor struct {
	// RawMin and RawMax bound the signal; zero values mean [0, 1024).
	RawMin, RawMax float64
	// BreathsPerMinute defaults to 15.
	BreathsPerMinute float64

	mu       sync.Mutex
	rate     int
	channels int
	n        int
	started  bool
	closed   bool
}

// Battery implements Sensor.
func (s *SimSensor) Battery(threshold int) error {
	if threshold < 0 || threshold > 63 {
		return fmt.Errorf("battery threshold %d out of range", threshold)
	}
	return nil
}

// Start implements Sensor.
func (s *SimSensor) Start(rate int, channels []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("sensor closed")
	}
	if rate <= 0 || len(channels) == 0 {
		return fmt.Errorf("invalid acquisition rate=%d channels=%v", rate, channels)
	}
	s.rate, s.channels, s.started = rate, len(channels), true
	return nil
}

// Read implements Sensor. Samples are generated at the acquisition rate's
// timeline, not the wall clock.
func (s *SimSensor) Read(n int) ([]Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	lo, hi := s.RawMin, s.RawMax
	if lo == 0 && hi == 0 {
		hi = 1023
	}
	bpm := s.BreathsPerMinute
	if bpm <= 0 {
		bpm = 15
	}
	mid, amp := (lo+hi)/2, (hi-lo)/2

	frames := make([]Frame, n)
	for i := range frames {
		t := float64(s.n) / float64(s.rate)
		v := int(math.Round(mid + amp*math.Sin(2*math.Pi*bpm/60*t)))
		analog := make([]int, s.channels)
		for c := range analog {
			analog[c] = v
		}
		frames[i] = Frame{Seq: s.n % 16, Analog: analog}
		s.n++
	}
	return frames, nil
}

// Stop implements Sensor.
func (s *SimSensor) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
	return nil
}

// Close implements Sensor.
func (s *SimSensor) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// SimConnector returns a connector that fails its first failures calls and
// then hands out s.
func SimConnector(s Sensor, failures int) SensorConnector {
	var mu sync.Mutex
	calls := 0
	return func(ctx context.Context) (Sensor, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls <= failures {
			return nil, fmt.Errorf("simulated connection failure %d", calls)
		}
		return s, nil
	}
}

// SimRanger plays back a script of range readings, holding the last one.
type SimRanger struct {
	mu     sync.Mutex
	script []mapping.Ranges
	next   int
}

// NewSimRanger returns a ranger that reports script in order.
func NewSimRanger(script ...mapping.Ranges) *SimRanger {
	return &SimRanger{script: script}
}

// Ranges implements Ranger.
func (r *SimRanger) Ranges() mapping.Ranges {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.script) == 0 {
		return mapping.Ranges{}
	}
	out := r.script[r.next]
	if r.next < len(r.script)-1 {
		r.next++
	}
	return out
}

// ParamWrite is one SetParam call seen by LogFlyer.
type ParamWrite struct {
	Name  string
	Value string
}

// LogFlyer logs and records every command instead of flying. It implements
// Flyer, HighLevelCommander and PoseSink.
type LogFlyer struct {
	mu        sync.Mutex
	params    []ParamWrite
	setpoints []mapping.HoverSetpoint
	commands  []string
	poses     []pose.ExternalPose
	stops     int
}

// SetParam implements Flyer.
func (f *LogFlyer) SetParam(name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.params = append(f.params, ParamWrite{Name: name, Value: value})
	monitoring.Tracef("param %s=%s", name, value)
	return nil
}

// SendHoverSetpoint implements Flyer.
func (f *LogFlyer) SendHoverSetpoint(sp mapping.HoverSetpoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setpoints = append(f.setpoints, sp)
	monitoring.Tracef("hover %s", sp)
	return nil
}

// SendStopSetpoint implements Flyer.
func (f *LogFlyer) SendStopSetpoint() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	monitoring.Diagf("stop setpoint")
	return nil
}

// SendExtPose implements PoseSink.
func (f *LogFlyer) SendExtPose(p pose.ExternalPose) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.poses = append(f.poses, p)
	return nil
}

func (f *LogFlyer) command(format string, args ...interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := fmt.Sprintf(format, args...)
	f.commands = append(f.commands, c)
	monitoring.Diagf("%s", c)
	return nil
}

// Takeoff implements HighLevelCommander.
func (f *LogFlyer) Takeoff(height float64, d time.Duration) error {
	return f.command("takeoff %.2f %s", height, d)
}

// GoTo implements HighLevelCommander.
func (f *LogFlyer) GoTo(x, y, z float64) error {
	return f.command("goto %.2f %.2f %.2f", x, y, z)
}

// Land implements HighLevelCommander.
func (f *LogFlyer) Land(height float64, d time.Duration) error {
	return f.command("land %.2f %s", height, d)
}

// Stop implements HighLevelCommander.
func (f *LogFlyer) Stop() error {
	return f.command("stop")
}

// Params returns the parameter writes seen so far.
func (f *LogFlyer) Params() []ParamWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ParamWrite(nil), f.params...)
}

// Setpoints returns the hover setpoints seen so far.
func (f *LogFlyer) Setpoints() []mapping.HoverSetpoint {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mapping.HoverSetpoint(nil), f.setpoints...)
}

// Commands returns the high-level commands seen so far.
func (f *LogFlyer) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

// Poses returns the external poses seen so far.
func (f *LogFlyer) Poses() []pose.ExternalPose {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]pose.ExternalPose(nil), f.poses...)
}

// Stops returns the number of stop setpoints sent.
func (f *LogFlyer) Stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

// SimVariances is a variance source whose reports decay geometrically, as a
// Kalman filter's do once external poses arrive.
type SimVariances struct {
	Clock timeutil.Clock
	// Period between reports, 500ms by default.
	Period time.Duration

	k int
}

// Next implements convergence.VarianceSource.
func (v *SimVariances) Next(ctx context.Context) (convergence.Variance, bool, error) {
	clock := v.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	period := v.Period
	if period <= 0 {
		period = 500 * time.Millisecond
	}
	if err := timeutil.SleepContext(ctx, clock, period); err != nil {
		return convergence.Variance{}, false, err
	}
	decay := 0.1 * math.Pow(0.5, float64(v.k))
	v.k++
	return convergence.Variance{X: 1e-4 + decay, Y: 1e-4 + decay, Z: 2e-4 + decay}, true, nil
}

// SimMocapStream emits a body hovering over the origin with a slow yaw every
// period until ctx is done. Every tenth body is untracked.
func SimMocapStream(ctx context.Context, clock timeutil.Clock, period time.Duration) <-chan pose.MocapBody {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	out := make(chan pose.MocapBody)
	go func() {
		defer close(out)
		for i := 0; ; i++ {
			if err := timeutil.SleepContext(ctx, clock, period); err != nil {
				return
			}
			b := simBody(i)
			select {
			case <-ctx.Done():
				return
			case out <- b:
			}
		}
	}()
	return out
}

func simBody(i int) pose.MocapBody {
	if i%10 == 9 {
		nan := math.NaN()
		return pose.MocapBody{PositionMM: [3]float64{nan, nan, nan}}
	}
	yaw := float64(i) * 0.01
	c, s := math.Cos(yaw), math.Sin(yaw)
	// Column-major rotation about z.
	return pose.MocapBody{
		PositionMM: [3]float64{10 * c, 10 * s, 1000},
		Rotation:   [9]float64{c, s, 0, -s, c, 0, 0, 0, 1},
	}
}
