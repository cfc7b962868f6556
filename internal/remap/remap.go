// Package remap clamps and linearly rescales scalar sensor readings from one
// interval to another.
//
// Source intervals may be inverted (Min > Max). Clamping always uses the
// numeric bounds of the interval, so an inverted source clamps on both sides
// and the rescale produces the sign-flipped mapping the caller asked for.
package remap

import (
	"errors"
	"fmt"
)

// ErrInvalidInterval is matched by InvalidIntervalError via errors.Is.
var ErrInvalidInterval = errors.New("invalid interval")

// InvalidIntervalError reports a degenerate source interval (Min == Max).
type InvalidIntervalError struct {
	Interval Interval
}

func (e *InvalidIntervalError) Error() string {
	return fmt.Sprintf("invalid interval [%g, %g]: bounds must differ", e.Interval.Min, e.Interval.Max)
}

// Is lets errors.Is match ErrInvalidInterval.
func (e *InvalidIntervalError) Is(target error) bool {
	return target == ErrInvalidInterval
}

// Interval is a pair of float bounds used as a remap domain or range.
type Interval struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Degenerate reports whether the interval has zero width.
func (i Interval) Degenerate() bool {
	return i.Min == i.Max
}

// Inverted reports whether Min is numerically greater than Max.
func (i Interval) Inverted() bool {
	return i.Min > i.Max
}

// Lower returns the numerically smaller bound.
func (i Interval) Lower() float64 {
	if i.Inverted() {
		return i.Max
	}
	return i.Min
}

// Upper returns the numerically larger bound.
func (i Interval) Upper() float64 {
	if i.Inverted() {
		return i.Min
	}
	return i.Max
}

// Contains reports whether v lies within the closed interval, regardless of
// bound order.
func (i Interval) Contains(v float64) bool {
	return i.Lower() <= v && v <= i.Upper()
}

// Clamp limits v to the closed interval, regardless of bound order.
func (i Interval) Clamp(v float64) float64 {
	lo, hi := i.Lower(), i.Upper()
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Validate returns an InvalidIntervalError when the interval is degenerate.
func (i Interval) Validate() error {
	if i.Degenerate() {
		return &InvalidIntervalError{Interval: i}
	}
	return nil
}

func (i Interval) String() string {
	return fmt.Sprintf("[%g, %g]", i.Min, i.Max)
}

// Remap clamps value into [sourceMin, sourceMax] and rescales it linearly onto
// [targetMin, targetMax]. It returns an InvalidIntervalError when
// sourceMin == sourceMax.
func Remap(value, sourceMin, sourceMax, targetMin, targetMax float64) (float64, error) {
	return RemapInterval(value, Interval{sourceMin, sourceMax}, Interval{targetMin, targetMax})
}

// RemapInterval is Remap expressed with Interval values.
func RemapInterval(value float64, source, target Interval) (float64, error) {
	if err := source.Validate(); err != nil {
		return 0, err
	}
	return scale(source.Clamp(value), source, target), nil
}

// MustRemap is like RemapInterval but panics on a degenerate source interval.
// Use it only where the intervals were validated up front.
func MustRemap(value float64, source, target Interval) float64 {
	v, err := RemapInterval(value, source, target)
	if err != nil {
		panic(err)
	}
	return v
}

// scale expects an already clamped value. The interval ends are returned
// verbatim so boundary samples map exactly onto the target bounds.
func scale(clamped float64, source, target Interval) float64 {
	switch clamped {
	case source.Min:
		return target.Min
	case source.Max:
		return target.Max
	}
	return target.Min + (clamped-source.Min)*(target.Max-target.Min)/(source.Max-source.Min)
}

// Mapper is a validated source/target pair applied to a stream of samples.
type Mapper struct {
	source Interval
	target Interval
}

// NewMapper validates the source interval once so Map can't fail.
func NewMapper(source, target Interval) (Mapper, error) {
	if err := source.Validate(); err != nil {
		return Mapper{}, fmt.Errorf("source %w", err)
	}
	return Mapper{source: source, target: target}, nil
}

// Source returns the mapper's input interval.
func (m Mapper) Source() Interval { return m.source }

// Target returns the mapper's output interval.
func (m Mapper) Target() Interval { return m.target }

// Map clamps and rescales v.
func (m Mapper) Map(v float64) float64 {
	return scale(m.source.Clamp(v), m.source, m.target)
}

// MapInt maps v and truncates the result toward zero.
func (m Mapper) MapInt(v float64) int {
	return int(m.Map(v))
}
