package pose

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// MatrixValidationTolerance is the default tolerance for ValidateRotation.
const MatrixValidationTolerance = 0.01

var (
	// ErrNotOrthonormal means RᵀR differs from the identity.
	ErrNotOrthonormal = errors.New("rotation matrix is not orthonormal")
	// ErrImproperRotation means det(R) is not 1 (e.g. a reflection).
	ErrImproperRotation = errors.New("rotation matrix is not a proper rotation")
)

// Dense returns m as a gonum matrix.
func (m RotationMatrix) Dense() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		m[0][0], m[0][1], m[0][2],
		m[1][0], m[1][1], m[1][2],
		m[2][0], m[2][1], m[2][2],
	})
}

// Det returns the determinant of m.
func (m RotationMatrix) Det() float64 {
	return mat.Det(m.Dense())
}

// ValidateRotation checks that m is orthonormal and right-handed within tol.
// The conversions never call it; callers that can't trust their pose source
// should.
func ValidateRotation(m RotationMatrix, tol float64) error {
	r := m.Dense()
	for _, v := range r.RawMatrix().Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite element", ErrNotOrthonormal)
		}
	}

	var rtr mat.Dense
	rtr.Mul(r.T(), r)
	if !mat.EqualApprox(&rtr, mat.NewDiagDense(3, []float64{1, 1, 1}), tol) {
		return fmt.Errorf("%w: RᵀR = %v", ErrNotOrthonormal, mat.Formatted(&rtr, mat.Squeeze()))
	}

	if det := mat.Det(r); math.Abs(det-1) > tol {
		return fmt.Errorf("%w: det = %.4f", ErrImproperRotation, det)
	}
	return nil
}
