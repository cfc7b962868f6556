// Package pose converts rotation matrices from external pose sources (motion
// capture) into unit quaternions for a flight controller's external-pose
// input.
package pose

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// ErrDegenerateInput is matched by DegenerateInputError via errors.Is.
var ErrDegenerateInput = errors.New("degenerate input")

// DegenerateInputError is returned when a conversion produces a quaternion
// with zero or NaN norm. Only a malformed matrix, such as one holding NaN,
// can do that.
type DegenerateInputError struct {
	Matrix RotationMatrix
}

func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("degenerate rotation matrix %v: quaternion norm is zero or NaN", e.Matrix)
}

// Is lets errors.Is match ErrDegenerateInput.
func (e *DegenerateInputError) Is(target error) bool {
	return target == ErrDegenerateInput
}

// RotationMatrix is a 3x3 rotation, row-major: m[row][col].
type RotationMatrix [3][3]float64

// Identity returns the identity rotation.
func Identity() RotationMatrix {
	return RotationMatrix{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
}

// Trace returns m[0][0] + m[1][1] + m[2][2].
func (m RotationMatrix) Trace() float64 {
	return m[0][0] + m[1][1] + m[2][2]
}

// Transpose returns mᵀ.
func (m RotationMatrix) Transpose() RotationMatrix {
	var t RotationMatrix
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			t[c][r] = m[r][c]
		}
	}
	return t
}

// Quaternion is an orientation in (x, y, z, w) order, w being the scalar part.
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

func (q Quaternion) number() quat.Number {
	return quat.Number{Real: q.W, Imag: q.X, Jmag: q.Y, Kmag: q.Z}
}

func fromNumber(n quat.Number) Quaternion {
	return Quaternion{X: n.Imag, Y: n.Jmag, Z: n.Kmag, W: n.Real}
}

// Norm returns the Euclidean length of the four components.
func (q Quaternion) Norm() float64 {
	return quat.Abs(q.number())
}

// Normalize scales q to unit length. A zero or NaN quaternion can't be
// normalized.
func (q Quaternion) Normalize() (Quaternion, error) {
	n := q.Norm()
	if n == 0 || math.IsNaN(n) {
		return Quaternion{}, ErrDegenerateInput
	}
	return fromNumber(quat.Scale(1/n, q.number())), nil
}

func (q Quaternion) String() string {
	return fmt.Sprintf("(x=%.6f, y=%.6f, z=%.6f, w=%.6f)", q.X, q.Y, q.Z, q.W)
}

// guardedSqrt returns 0 for slightly negative arguments left by rounding.
func guardedSqrt(a float64) float64 {
	if a < 0 {
		return 0
	}
	return math.Sqrt(a)
}

// RotationMatrixToQuaternion converts m with the non-branching trace method.
// Every component comes out non-negative, so the rotation is only recovered
// up to per-component sign. Near 180° rotations where two diagonal terms are
// equal the result can differ from the true orientation; use
// RotationMatrixToQuaternionShepperd when that matters.
//
// m is assumed to be a rotation. A non-orthonormal matrix yields a
// well-formed but meaningless quaternion; see ValidateRotation.
func RotationMatrixToQuaternion(m RotationMatrix) (Quaternion, error) {
	q := Quaternion{
		W: guardedSqrt(1+m[0][0]+m[1][1]+m[2][2]) / 2,
		X: guardedSqrt(1+m[0][0]-m[1][1]-m[2][2]) / 2,
		Y: guardedSqrt(1-m[0][0]+m[1][1]-m[2][2]) / 2,
		Z: guardedSqrt(1-m[0][0]-m[1][1]+m[2][2]) / 2,
	}
	n, err := q.Normalize()
	if err != nil {
		return Quaternion{}, &DegenerateInputError{Matrix: m}
	}
	return n, nil
}

// RotationMatrixToQuaternionShepperd converts m by picking the branch for the
// largest of the trace and the diagonal terms, recovering component signs from
// the off-diagonal terms. The result has W >= 0.
func RotationMatrixToQuaternionShepperd(m RotationMatrix) (Quaternion, error) {
	var q Quaternion
	tr := m.Trace()

	switch {
	case tr >= m[0][0] && tr >= m[1][1] && tr >= m[2][2]:
		s := guardedSqrt(1+tr) * 2 // 4w
		if s == 0 {
			return Quaternion{}, &DegenerateInputError{Matrix: m}
		}
		q = Quaternion{
			W: s / 4,
			X: (m[2][1] - m[1][2]) / s,
			Y: (m[0][2] - m[2][0]) / s,
			Z: (m[1][0] - m[0][1]) / s,
		}
	case m[0][0] >= m[1][1] && m[0][0] >= m[2][2]:
		s := guardedSqrt(1+m[0][0]-m[1][1]-m[2][2]) * 2 // 4x
		if s == 0 {
			return Quaternion{}, &DegenerateInputError{Matrix: m}
		}
		q = Quaternion{
			W: (m[2][1] - m[1][2]) / s,
			X: s / 4,
			Y: (m[0][1] + m[1][0]) / s,
			Z: (m[0][2] + m[2][0]) / s,
		}
	case m[1][1] >= m[2][2]:
		s := guardedSqrt(1+m[1][1]-m[0][0]-m[2][2]) * 2 // 4y
		if s == 0 {
			return Quaternion{}, &DegenerateInputError{Matrix: m}
		}
		q = Quaternion{
			W: (m[0][2] - m[2][0]) / s,
			X: (m[0][1] + m[1][0]) / s,
			Y: s / 4,
			Z: (m[1][2] + m[2][1]) / s,
		}
	default:
		s := guardedSqrt(1+m[2][2]-m[0][0]-m[1][1]) * 2 // 4z
		if s == 0 {
			return Quaternion{}, &DegenerateInputError{Matrix: m}
		}
		q = Quaternion{
			W: (m[1][0] - m[0][1]) / s,
			X: (m[0][2] + m[2][0]) / s,
			Y: (m[1][2] + m[2][1]) / s,
			Z: s / 4,
		}
	}

	if q.W < 0 {
		q = Quaternion{X: -q.X, Y: -q.Y, Z: -q.Z, W: -q.W}
	}
	n, err := q.Normalize()
	if err != nil {
		return Quaternion{}, &DegenerateInputError{Matrix: m}
	}
	return n, nil
}

// ToRotationMatrix returns the rotation represented by the unit quaternion q.
func (q Quaternion) ToRotationMatrix() RotationMatrix {
	x, y, z, w := q.X, q.Y, q.Z, q.W
	xx, yy, zz := x*x, y*y, z*z
	xy, xz, yz := x*y, x*z, y*z
	wx, wy, wz := w*x, w*y, w*z

	return RotationMatrix{
		{1 - 2*(yy+zz), 2 * (xy - wz), 2 * (xz + wy)},
		{2 * (xy + wz), 1 - 2*(xx+zz), 2 * (yz - wx)},
		{2 * (xz - wy), 2 * (yz + wx), 1 - 2*(xx+yy)},
	}
}
