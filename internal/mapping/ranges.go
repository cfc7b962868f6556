package mapping

import (
	"fmt"

	"github.com/socialdrones/crazyflie-scripts/internal/remap"
)

// Ranges holds the multiranger distances in metres. A nil field means the
// sensor saw nothing within its range.
type Ranges struct {
	Front *float64 `json:"front,omitempty"`
	Back  *float64 `json:"back,omitempty"`
	Left  *float64 `json:"left,omitempty"`
	Right *float64 `json:"right,omitempty"`
	Up    *float64 `json:"up,omitempty"`
	Down  *float64 `json:"down,omitempty"`
}

// Range is a helper for building Ranges literals.
func Range(d float64) *float64 { return &d }

// IsClose reports whether r is present and nearer than threshold.
func IsClose(r *float64, threshold float64) bool {
	if r == nil {
		return false
	}
	return *r < threshold
}

// Repulsion pushes the quadrotor away from nearby obstacles. An obstacle at
// distance zero produces maxSpeed, one at minDistance or further produces
// nothing.
type Repulsion struct {
	m remap.Mapper
}

// NewRepulsion returns a Repulsion for the given influence distance and
// speed cap.
func NewRepulsion(minDistance, maxSpeed float64) (Repulsion, error) {
	m, err := remap.NewMapper(
		remap.Interval{Min: 0, Max: minDistance},
		remap.Interval{Min: maxSpeed, Max: 0},
	)
	if err != nil {
		return Repulsion{}, fmt.Errorf("repulsion: %w", err)
	}
	return Repulsion{m: m}, nil
}

// Velocity returns the escape velocity for r. Front and back act on vx,
// left and right on vy; up and down are ignored.
func (p Repulsion) Velocity(r Ranges) (vx, vy float64) {
	if r.Front != nil {
		vx -= p.m.Map(*r.Front)
	}
	if r.Back != nil {
		vx += p.m.Map(*r.Back)
	}
	if r.Left != nil {
		vy -= p.m.Map(*r.Left)
	}
	if r.Right != nil {
		vy += p.m.Map(*r.Right)
	}
	return vx, vy
}
