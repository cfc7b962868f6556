package demo

import (
	"context"
	"sync"
	"time"

	"github.com/socialdrones/crazyflie-scripts/internal/timeutil"
)

// constSensor reports the same raw value on every frame.
type constSensor struct {
	mu      sync.Mutex
	raw     int
	readErr error
	reads   []int
	started bool
	stopped bool
	closed  bool
	seq     int
}

func (s *constSensor) Battery(int) error { return nil }

func (s *constSensor) Start(rate int, channels []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
	return nil
}

func (s *constSensor) Read(n int) ([]Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	s.reads = append(s.reads, n)
	frames := make([]Frame, n)
	for i := range frames {
		frames[i] = Frame{Seq: s.seq % 16, Analog: []int{s.raw}}
		s.seq++
	}
	return frames, nil
}

func (s *constSensor) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return nil
}

func (s *constSensor) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// memRecorder keeps samples in memory and can run a hook per sample.
type memRecorder struct {
	samples []Sample
	hook    func(n int)
}

func (r *memRecorder) Record(s Sample) error {
	r.samples = append(r.samples, s)
	if r.hook != nil {
		r.hook(len(r.samples))
	}
	return nil
}

func newClock() *timeutil.MockClock {
	return timeutil.NewMockClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
}

func connectTo(s Sensor) SensorConnector {
	return func(context.Context) (Sensor, error) { return s, nil }
}

func paramValues(writes []ParamWrite, name string) []string {
	var out []string
	for _, w := range writes {
		if w.Name == name {
			out = append(out, w.Value)
		}
	}
	return out
}
