// Package demo runs the biosignal-driven flight demos against abstract
// sensor and quadrotor interfaces. Vendor adapters implement the interfaces;
// the simulators in this package stand in for them in development.
package demo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/socialdrones/crazyflie-scripts/internal/mapping"
	"github.com/socialdrones/crazyflie-scripts/internal/pose"
)

// Flight controller parameters written by the demos.
const (
	ParamRingEffect      = "ring.effect"
	ParamSolidRed        = "ring.solidRed"
	ParamSolidGreen      = "ring.solidGreen"
	ParamSolidBlue       = "ring.solidBlue"
	ParamResetEstimation = "kalman.resetEstimation"
	ParamEstimator       = "stabilizer.estimator"
	ParamController      = "stabilizer.controller"
	ParamExtQuatStdDev   = "locSrv.extQuatStdDev"
	ParamHighLevel       = "commander.enHighLevel"
)

// LED ring effects.
const (
	EffectOff           = 0
	EffectWhiteSpinner  = 1
	EffectDoubleSpinner = 6
	EffectSolidColor    = 7
	EffectBatteryStatus = 9
)

// Sensor board frame layout: sequence number, four digital inputs, then one
// column per acquired analog channel.
const (
	ColumnSeq         = 0
	ColumnFirstAnalog = 5
	// RespirationColumn holds the first acquired channel (A1).
	RespirationColumn = ColumnFirstAnalog
)

// ErrNoColumn is returned by Frame.Column for a column the frame lacks.
var ErrNoColumn = errors.New("frame has no such column")

// Frame is one acquisition sample from the sensor board.
type Frame struct {
	Seq     int
	Digital [4]int
	Analog  []int
}

// Column returns the value at column i of the board's frame layout.
func (f Frame) Column(i int) (int, error) {
	switch {
	case i == ColumnSeq:
		return f.Seq, nil
	case i >= 1 && i < ColumnFirstAnalog:
		return f.Digital[i-1], nil
	case i >= ColumnFirstAnalog && i-ColumnFirstAnalog < len(f.Analog):
		return f.Analog[i-ColumnFirstAnalog], nil
	}
	return 0, fmt.Errorf("%w: %d", ErrNoColumn, i)
}

// Sensor is a biosignal acquisition board.
type Sensor interface {
	Battery(threshold int) error
	Start(rate int, channels []int) error
	Read(n int) ([]Frame, error)
	Stop() error
	Close() error
}

// SensorConnector opens a connection to the sensor board.
type SensorConnector func(ctx context.Context) (Sensor, error)

// Flyer is the low-level command link to the quadrotor.
type Flyer interface {
	SetParam(name, value string) error
	SendHoverSetpoint(sp mapping.HoverSetpoint) error
	SendStopSetpoint() error
}

// PoseSink forwards externally measured poses to the flight controller's
// estimator.
type PoseSink interface {
	SendExtPose(p pose.ExternalPose) error
}

// HighLevelCommander drives onboard trajectory planning. GoTo blocks until
// the target is reached.
type HighLevelCommander interface {
	Takeoff(height float64, duration time.Duration) error
	GoTo(x, y, z float64) error
	Land(height float64, duration time.Duration) error
	Stop() error
}

// Ranger reports the multiranger deck distances.
type Ranger interface {
	Ranges() mapping.Ranges
}

// Sample is one processed sensor reading and the command state it produced.
type Sample struct {
	At       time.Time             `json:"at"`
	Seq      int                   `json:"seq"`
	Raw      float64               `json:"raw"`
	Setpoint mapping.HoverSetpoint `json:"setpoint"`
	LED      *mapping.RGB          `json:"led,omitempty"`
}

// Recorder persists samples, e.g. a database session.
type Recorder interface {
	Record(s Sample) error
}

func setParam(f Flyer, name string, value interface{}) error {
	if err := f.SetParam(name, fmt.Sprint(value)); err != nil {
		return fmt.Errorf("setting %s=%v: %w", name, value, err)
	}
	return nil
}

func setEffect(f Flyer, effect int) error {
	return setParam(f, ParamRingEffect, effect)
}

func hover(f Flyer, sp mapping.HoverSetpoint) error {
	if err := f.SendHoverSetpoint(sp); err != nil {
		return fmt.Errorf("sending hover setpoint %s: %w", sp, err)
	}
	return nil
}
