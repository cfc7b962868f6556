// Package mapping turns sensor readings into quadrotor commands: hover
// height and LED colour from respiration, escape velocity from range
// finders.
package mapping

import (
	"fmt"

	"github.com/socialdrones/crazyflie-scripts/internal/remap"
)

// HoverSetpoint is a velocity-plus-height command. Velocities are m/s in the
// body frame, yaw rate is deg/s and Z is metres above the floor.
type HoverSetpoint struct {
	VX      float64 `json:"vx"`
	VY      float64 `json:"vy"`
	YawRate float64 `json:"yaw_rate"`
	Z       float64 `json:"z"`
}

func (s HoverSetpoint) String() string {
	return fmt.Sprintf("vx=%.3f vy=%.3f yaw=%.1f z=%.3f", s.VX, s.VY, s.YawRate, s.Z)
}

// Altitude maps a raw respiration reading to a hover height.
type Altitude struct {
	m remap.Mapper
}

// NewAltitude returns an Altitude mapping raw readings in rawRange onto
// heights in heightRange.
func NewAltitude(rawRange, heightRange remap.Interval) (Altitude, error) {
	m, err := remap.NewMapper(rawRange, heightRange)
	if err != nil {
		return Altitude{}, fmt.Errorf("altitude: %w", err)
	}
	return Altitude{m: m}, nil
}

// Height returns the commanded height for raw.
func (a Altitude) Height(raw float64) float64 {
	return a.m.Map(raw)
}

// RGB is an LED ring colour, each channel in the ring's intensity range.
type RGB struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// LEDColor fades the ring from blue to red as the raw reading rises.
type LEDColor struct {
	m   remap.Mapper
	max int
}

// NewLEDColor returns an LEDColor mapping rawRange onto ledRange.
func NewLEDColor(rawRange, ledRange remap.Interval) (LEDColor, error) {
	m, err := remap.NewMapper(rawRange, ledRange)
	if err != nil {
		return LEDColor{}, fmt.Errorf("led colour: %w", err)
	}
	return LEDColor{m: m, max: int(ledRange.Max)}, nil
}

// Color returns the ring colour for raw. Red tracks the reading (truncated),
// blue is its complement and green stays off.
func (l LEDColor) Color(raw float64) RGB {
	r := l.m.MapInt(raw)
	return RGB{R: r, G: 0, B: l.max - r}
}

// PZTPercent converts a 10-bit respiration (PZT) reading to a percentage of
// chest displacement around the sensor midpoint, in [-50, 50].
func PZTPercent(raw float64) float64 {
	return -((raw / 1023) - 0.5) * 100
}

// LandingProfile returns the heights sent while descending from z: each step
// lowers the previous height by step until it is no longer above zero. The
// final element may be at or below zero.
func LandingProfile(z, step float64) []float64 {
	if step <= 0 {
		return nil
	}
	var heights []float64
	for z > 0 {
		z -= step
		heights = append(heights, z)
	}
	return heights
}

// Decimator picks which sample indices of a read block are acted on.
type Decimator struct {
	every   int
	indices map[int]bool
}

// Every selects indices 0, n, 2n, ... A non-positive n selects every index.
func Every(n int) Decimator {
	if n <= 0 {
		n = 1
	}
	return Decimator{every: n}
}

// Indices selects exactly the given indices.
func Indices(idx ...int) Decimator {
	set := make(map[int]bool, len(idx))
	for _, i := range idx {
		set[i] = true
	}
	return Decimator{indices: set}
}

// Selects reports whether sample index i is acted on.
func (d Decimator) Selects(i int) bool {
	if d.indices != nil {
		return d.indices[i]
	}
	if d.every <= 0 {
		return false
	}
	return i%d.every == 0
}
