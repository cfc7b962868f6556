package convergence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindow_NeedsFullWindowOfSettledReports(t *testing.T) {
	w := NewWindow(0, 0)
	settled := Variance{X: 0.0002, Y: 0.0003, Z: 0.0001}

	for i := 0; i < DefaultWindowSize-1; i++ {
		assert.False(t, w.Add(settled), "report %d converged early", i)
	}
	assert.True(t, w.Add(settled))
}

func TestWindow_SpreadAboveThreshold(t *testing.T) {
	w := NewWindow(4, 0.001)
	for _, v := range []float64{0.010, 0.0101, 0.0102, 0.0125} {
		w.Add(Variance{X: v, Y: 0.01, Z: 0.01})
	}
	assert.False(t, w.Converged())
	assert.InDelta(t, 0.0025, w.Spread().X, 1e-12)

	// The oldest report is evicted first, so the outlier survives three
	// more reports.
	for _, v := range []float64{0.0103, 0.0104, 0.0105} {
		assert.False(t, w.Add(Variance{X: v, Y: 0.01, Z: 0.01}), "x=%v", v)
	}
	assert.InDelta(t, 0.0022, w.Spread().X, 1e-12)

	assert.True(t, w.Add(Variance{X: 0.0106, Y: 0.01, Z: 0.01}))
	assert.InDelta(t, 0.0003, w.Spread().X, 1e-12)
}

func TestWindow_EachAxisMustSettle(t *testing.T) {
	w := NewWindow(3, 0.001)
	w.Add(Variance{X: 0.1, Y: 0.1, Z: 0.1})
	w.Add(Variance{X: 0.1, Y: 0.1, Z: 0.2})
	assert.False(t, w.Add(Variance{X: 0.1, Y: 0.1, Z: 0.1}))
}

func TestWindow_FreshWindowNotConverged(t *testing.T) {
	w := NewWindow(0, 0)
	assert.False(t, w.Converged())
	assert.Equal(t, Variance{}, w.Spread())
}

func TestWindow_Reset(t *testing.T) {
	w := NewWindow(2, 0.001)
	w.Add(Variance{})
	require.True(t, w.Add(Variance{}))

	w.Reset()
	assert.False(t, w.Converged())
	assert.Equal(t, Variance{}, w.Spread())
}

func TestWaitForConvergence(t *testing.T) {
	ch := make(chan Variance, 20)
	for i := 0; i < 5; i++ {
		ch <- Variance{X: 1, Y: 1, Z: 1}
	}
	for i := 0; i < 3; i++ {
		ch <- Variance{X: 0.001, Y: 0.001, Z: 0.001}
	}
	close(ch)

	err := WaitForConvergence(context.Background(), ChanSource(ch), NewWindow(3, 0.001))
	require.NoError(t, err)
}

func TestWaitForConvergence_StreamEnds(t *testing.T) {
	ch := make(chan Variance, 2)
	ch <- Variance{X: 1}
	close(ch)

	err := WaitForConvergence(context.Background(), ChanSource(ch), NewWindow(3, 0.001))
	assert.ErrorIs(t, err, ErrStreamEnded)
}

func TestWaitForConvergence_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WaitForConvergence(ctx, ChanSource(make(chan Variance)), NewWindow(3, 0.001))
	assert.ErrorIs(t, err, context.Canceled)
}
