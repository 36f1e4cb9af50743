package ephem

import (
	"math"

	"github.com/san-kum/orbprop/internal/orbit"
)

// TwoBody is heliocentric Keplerian motion as a first-order system.
type TwoBody struct {
	Mu float64
}

func (tb *TwoBody) StateDim() int { return orbit.StateDim }

func (tb *TwoBody) Derive(x orbit.State, t float64) orbit.State {
	r2 := x[0]*x[0] + x[1]*x[1] + x[2]*x[2]
	k := -tb.Mu / (r2 * math.Sqrt(r2))
	return orbit.State{x[3], x[4], x[5], k * x[0], k * x[1], k * x[2]}
}

// Energy is the specific orbital energy.
func (tb *TwoBody) Energy(x orbit.State) float64 {
	r := math.Sqrt(x[0]*x[0] + x[1]*x[1] + x[2]*x[2])
	return 0.5*(x[3]*x[3]+x[4]*x[4]+x[5]*x[5]) - tb.Mu/r
}
