package pose

import (
	"errors"
	"fmt"
	"math"
)

// ErrNoPosition is returned for a motion-capture body whose position is NaN,
// which is how the stream reports a body it lost track of.
var ErrNoPosition = errors.New("body has no position")

// ExternalPose is a position in metres plus orientation, the payload of a
// flight controller's external-pose input.
type ExternalPose struct {
	X           float64    `json:"x"`
	Y           float64    `json:"y"`
	Z           float64    `json:"z"`
	Orientation Quaternion `json:"orientation"`
}

func (p ExternalPose) String() string {
	return fmt.Sprintf("pos=(%.3f, %.3f, %.3f) q=%s", p.X, p.Y, p.Z, p.Orientation)
}

// NewExternalPose passes the translation through unchanged and converts the
// rotation with the trace method.
func NewExternalPose(x, y, z float64, m RotationMatrix) (ExternalPose, error) {
	q, err := RotationMatrixToQuaternion(m)
	if err != nil {
		return ExternalPose{}, err
	}
	return ExternalPose{X: x, Y: y, Z: z, Orientation: q}, nil
}

// MocapBody is one 6DoF rigid body as streamed by the motion-capture system:
// position in millimetres and the rotation matrix as nine column-major values.
type MocapBody struct {
	PositionMM [3]float64 `json:"position_mm"`
	Rotation   [9]float64 `json:"rotation"`
}

// Matrix unpacks the column-major rotation into a row-major RotationMatrix.
func (b MocapBody) Matrix() RotationMatrix {
	r := b.Rotation
	return RotationMatrix{
		{r[0], r[3], r[6]},
		{r[1], r[4], r[7]},
		{r[2], r[5], r[8]},
	}
}

// FromMocapBody converts a streamed body into an ExternalPose in metres.
func FromMocapBody(b MocapBody) (ExternalPose, error) {
	x := b.PositionMM[0] / 1000
	y := b.PositionMM[1] / 1000
	z := b.PositionMM[2] / 1000
	if math.IsNaN(x) {
		return ExternalPose{}, ErrNoPosition
	}
	return NewExternalPose(x, y, z, b.Matrix())
}
