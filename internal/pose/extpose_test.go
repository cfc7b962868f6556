package pose

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExternalPose_PassesTranslationThrough(t *testing.T) {
	p, err := NewExternalPose(0.25, -1.5, 1.0, Identity())
	require.NoError(t, err)

	assert.Equal(t, 0.25, p.X)
	assert.Equal(t, -1.5, p.Y)
	assert.Equal(t, 1.0, p.Z)
	assertQuatInDelta(t, Quaternion{W: 1}, p.Orientation, tol)
}

func TestMocapBody_MatrixIsColumnMajor(t *testing.T) {
	b := MocapBody{Rotation: [9]float64{1, 2, 3, 4, 5, 6, 7, 8, 9}}
	assert.Equal(t, RotationMatrix{{1, 4, 7}, {2, 5, 8}, {3, 6, 9}}, b.Matrix())
}

func TestFromMocapBody(t *testing.T) {
	// 90 deg about z, stored column by column.
	m := axisAngle(0, 0, 1, math.Pi/2).ToRotationMatrix()
	var cols [9]float64
	for c := 0; c < 3; c++ {
		for r := 0; r < 3; r++ {
			cols[c*3+r] = m[r][c]
		}
	}

	p, err := FromMocapBody(MocapBody{
		PositionMM: [3]float64{1200, -350, 980},
		Rotation:   cols,
	})
	require.NoError(t, err)

	assert.InDelta(t, 1.2, p.X, 1e-12)
	assert.InDelta(t, -0.35, p.Y, 1e-12)
	assert.InDelta(t, 0.98, p.Z, 1e-12)
	assertQuatInDelta(t, axisAngle(0, 0, 1, math.Pi/2), p.Orientation, 1e-7)
}

func TestFromMocapBody_Untracked(t *testing.T) {
	_, err := FromMocapBody(MocapBody{
		PositionMM: [3]float64{math.NaN(), math.NaN(), math.NaN()},
		Rotation:   [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1},
	})
	assert.ErrorIs(t, err, ErrNoPosition)
}
