package integrators

import "github.com/san-kum/orbprop/internal/orbit"

type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn orbit.System, x orbit.State, t float64, dt float64) orbit.State {
	dx := dyn.Derive(x, t)
	result := make(orbit.State, len(x))
	for i := range x {
		result[i] = x[i] + dt*dx[i]
	}
	return result
}
