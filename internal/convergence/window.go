// Package convergence decides when a flight controller's position estimator
// has settled, by watching the spread of its reported variances.
package convergence

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

const (
	// DefaultWindowSize is the number of variance reports inspected.
	DefaultWindowSize = 10
	// DefaultThreshold is the largest max-min spread, per axis, that counts
	// as settled.
	DefaultThreshold = 0.001
	// seedVariance fills the window so that no early report can pass.
	seedVariance = 1000
)

// ErrStreamEnded is returned when the variance source closes before the
// estimator settles.
var ErrStreamEnded = errors.New("variance stream ended before convergence")

// Variance is one position-variance report, per axis.
type Variance struct {
	X, Y, Z float64
}

// Window keeps the most recent variance reports for each axis.
type Window struct {
	threshold float64
	x, y, z   []float64
	next      int
	// filled counts real reports in the window, up to its size.
	filled    int
}

// NewWindow returns a window of the given size and threshold. Non-positive
// arguments fall back to the defaults.
func NewWindow(size int, threshold float64) *Window {
	if size <= 0 {
		size = DefaultWindowSize
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	w := &Window{
		threshold: threshold,
		x:         make([]float64, size),
		y:         make([]float64, size),
		z:         make([]float64, size),
	}
	w.Reset()
	return w
}

// Reset refills the window with the seed variance.
func (w *Window) Reset() {
	for i := range w.x {
		w.x[i], w.y[i], w.z[i] = seedVariance, seedVariance, seedVariance
	}
	w.next = 0
	w.filled = 0
}

// Add records v and reports whether all three axes have settled.
func (w *Window) Add(v Variance) bool {
	w.x[w.next] = v.X
	w.y[w.next] = v.Y
	w.z[w.next] = v.Z
	w.next = (w.next + 1) % len(w.x)
	if w.filled < len(w.x) {
		w.filled++
	}
	return w.Converged()
}

// Spread returns max-min per axis over the window.
func (w *Window) Spread() Variance {
	return Variance{
		X: floats.Max(w.x) - floats.Min(w.x),
		Y: floats.Max(w.y) - floats.Min(w.y),
		Z: floats.Max(w.z) - floats.Min(w.z),
	}
}

// Converged reports whether every axis spread is below the threshold. A
// window holding no reports has not converged.
func (w *Window) Converged() bool {
	if w.filled == 0 {
		return false
	}
	s := w.Spread()
	return s.X < w.threshold && s.Y < w.threshold && s.Z < w.threshold
}

// VarianceSource delivers variance reports, typically from the flight
// controller's log stream. Next blocks until a report is available and
// returns ok=false once the stream is closed.
type VarianceSource interface {
	Next(ctx context.Context) (v Variance, ok bool, err error)
}

// WaitForConvergence consumes reports from src until w converges.
func WaitForConvergence(ctx context.Context, src VarianceSource, w *Window) error {
	for {
		v, ok, err := src.Next(ctx)
		if err != nil {
			return fmt.Errorf("reading variance: %w", err)
		}
		if !ok {
			return ErrStreamEnded
		}
		if w.Add(v) {
			return nil
		}
	}
}

// ChanSource adapts a channel of reports to VarianceSource.
type ChanSource <-chan Variance

// Next implements VarianceSource.
func (c ChanSource) Next(ctx context.Context) (Variance, bool, error) {
	select {
	case <-ctx.Done():
		return Variance{}, false, ctx.Err()
	case v, ok := <-c:
		return v, ok, nil
	}
}
