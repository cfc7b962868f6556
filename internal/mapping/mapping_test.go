package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialdrones/crazyflie-scripts/internal/remap"
)

var (
	rawRange    = remap.Interval{Min: 0, Max: 1024}
	heightRange = remap.Interval{Min: 0.5, Max: 1.2}
	ledRange    = remap.Interval{Min: 0, Max: 100}
)

func TestAltitude(t *testing.T) {
	a, err := NewAltitude(rawRange, heightRange)
	require.NoError(t, err)

	tests := []struct {
		raw  float64
		want float64
	}{
		{0, 0.5},
		{512, 0.85},
		{1024, 1.2},
		{-20, 0.5},
		{4096, 1.2},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, a.Height(tt.raw), 1e-12, "raw=%v", tt.raw)
	}
}

func TestAltitude_DegenerateRawRange(t *testing.T) {
	_, err := NewAltitude(remap.Interval{Min: 10, Max: 10}, heightRange)
	assert.ErrorIs(t, err, remap.ErrInvalidInterval)
}

func TestLEDColor(t *testing.T) {
	l, err := NewLEDColor(rawRange, ledRange)
	require.NoError(t, err)

	tests := []struct {
		raw  float64
		want RGB
	}{
		{0, RGB{R: 0, B: 100}},
		{300, RGB{R: 29, B: 71}},
		{512, RGB{R: 50, B: 50}},
		{1024, RGB{R: 100, B: 0}},
		{2000, RGB{R: 100, B: 0}},
	}
	for _, tt := range tests {
		got := l.Color(tt.raw)
		assert.Equal(t, tt.want, got, "raw=%v", tt.raw)
		assert.Equal(t, 100, got.R+got.B)
	}
}

func TestRepulsion(t *testing.T) {
	p, err := NewRepulsion(0.8, 0.8)
	require.NoError(t, err)

	tests := []struct {
		name   string
		ranges Ranges
		vx, vy float64
	}{
		{"nothing seen", Ranges{}, 0, 0},
		{"far obstacles", Ranges{Front: Range(2), Left: Range(0.8)}, 0, 0},
		{"front and left", Ranges{Front: Range(0.4), Left: Range(0.2)}, -0.4, -0.6},
		{"back and right", Ranges{Back: Range(0.6), Right: Range(0)}, 0.2, 0.8},
		{"boxed in front and back", Ranges{Front: Range(0.4), Back: Range(0.4)}, 0, 0},
		{"up and down ignored", Ranges{Up: Range(0.1), Down: Range(0.1)}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vx, vy := p.Velocity(tt.ranges)
			assert.InDelta(t, tt.vx, vx, 1e-12)
			assert.InDelta(t, tt.vy, vy, 1e-12)
		})
	}
}

func TestNewRepulsion_ZeroDistance(t *testing.T) {
	_, err := NewRepulsion(0, 0.8)
	assert.ErrorIs(t, err, remap.ErrInvalidInterval)
}

func TestIsClose(t *testing.T) {
	assert.False(t, IsClose(nil, 0.2))
	assert.True(t, IsClose(Range(0.1), 0.2))
	assert.False(t, IsClose(Range(0.2), 0.2))
	assert.False(t, IsClose(Range(1.5), 0.2))
}

func TestPZTPercent(t *testing.T) {
	assert.InDelta(t, 50.0, PZTPercent(0), 1e-12)
	assert.InDelta(t, -50.0, PZTPercent(1023), 1e-12)
	assert.InDelta(t, 0.0, PZTPercent(511.5), 1e-12)
}

func TestLandingProfile(t *testing.T) {
	assert.Equal(t, []float64{0.25, 0}, LandingProfile(0.5, 0.25))
	assert.Nil(t, LandingProfile(0, 0.05))
	assert.Nil(t, LandingProfile(1, 0))

	// Accumulated rounding leaves a tiny positive height, so one more step
	// goes below zero.
	h := LandingProfile(0.2, 0.05)
	require.Len(t, h, 5)
	for _, z := range h[:len(h)-1] {
		assert.Greater(t, z, 0.0)
	}
	assert.LessOrEqual(t, h[len(h)-1], 0.0)
}

func TestDecimator(t *testing.T) {
	var got []int
	led := Indices(0, 4, 8, 12)
	for i := 0; i < 16; i++ {
		if led.Selects(i) {
			got = append(got, i)
		}
	}
	assert.Equal(t, []int{0, 4, 8, 12}, got)

	assert.True(t, Every(4).Selects(8))
	assert.False(t, Every(4).Selects(9))
	assert.True(t, Every(0).Selects(3))
	assert.False(t, Decimator{}.Selects(0))
	assert.False(t, Indices().Selects(0))
}

func TestHoverSetpoint_String(t *testing.T) {
	s := HoverSetpoint{VX: -0.4, Z: 0.85}
	assert.Equal(t, "vx=-0.400 vy=0.000 yaw=0.0 z=0.850", s.String())
}
