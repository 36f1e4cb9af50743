// Package universal propagates cartesian two-body states with the
// universal-variable formulation, which handles elliptic, parabolic and
// hyperbolic orbits with one code path.
package universal

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/orbprop/internal/kepler"
	"github.com/san-kum/orbprop/internal/orbit"
)

type Options struct {
	// Mu is the central body's gravitational parameter (AU^3/day^2).
	Mu float64 `yaml:"mu" json:"mu"`
	// MaxIterations bounds Newton iteration per target epoch.
	MaxIterations int `yaml:"max_iterations" json:"max_iterations"`
	// Tolerance is the relative convergence threshold on the universal anomaly.
	Tolerance float64 `yaml:"tolerance" json:"tolerance"`
	// Workers is the goroutine count; zero means GOMAXPROCS.
	Workers int `yaml:"workers" json:"workers"`
}

func DefaultOptions() Options {
	return Options{
		Mu:            kepler.MuSun,
		MaxIterations: 100,
		Tolerance:     1e-14,
	}
}

// Merge returns o with zero fields taken from base.
func (o Options) Merge(base Options) Options {
	if o.Mu == 0 {
		o.Mu = base.Mu
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = base.MaxIterations
	}
	if o.Tolerance == 0 {
		o.Tolerance = base.Tolerance
	}
	if o.Workers == 0 {
		o.Workers = base.Workers
	}
	return o
}

// minChunk is the fewest orbits handed to one worker.
const minChunk = 16

type Propagator struct {
	base Options
}

func New(opts Options) *Propagator {
	return &Propagator{base: opts.Merge(DefaultOptions())}
}

// Propagate returns len(orbits)*len(t1) rows of
// [orbit_id, epoch, x, y, z, vx, vy, vz] in orbit-major order. t0 holds one
// epoch per orbit or a single shared epoch. Zero fields of override fall
// back to the propagator's options.
func (p *Propagator) Propagate(orbits orbit.Orbits, t0, t1 []float64, override Options) ([][8]float64, error) {
	opts := override.Merge(p.base)
	if orbits.Elements != orbit.Cartesian {
		return nil, fmt.Errorf("%w: got %s", ErrNotCartesian, orbits.Elements)
	}
	n, m := orbits.Len(), len(t1)
	if len(t0) != 1 && len(t0) != n {
		return nil, fmt.Errorf("%w: %d epochs for %d orbits", ErrEpochCount, len(t0), n)
	}

	rows := make([][8]float64, n*m)
	err := orbit.ParallelMap(n, minChunk, opts.Workers, func(i int) error {
		epoch := t0[0]
		if len(t0) == n {
			epoch = t0[i]
		}
		id := orbits.IDs[i]
		for j, target := range t1 {
			s, err := propagateOne(orbits.States[i], target-epoch, opts)
			if err != nil {
				var ce *ConvergenceError
				if errors.As(err, &ce) {
					ce.OrbitID, ce.Epoch = id, target
				}
				return err
			}
			row := &rows[i*m+j]
			row[0] = float64(id)
			row[1] = target
			copy(row[2:], s[:])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// propagateOne advances a single cartesian state by dt days.
func propagateOne(x orbit.State, dt float64, opts Options) ([6]float64, error) {
	var out [6]float64
	r0 := x.Position()
	v0 := x.Velocity()
	if dt == 0 {
		copy(out[:], x)
		return out, nil
	}

	mu := opts.Mu
	sqrtMu := math.Sqrt(mu)
	r0n := norm(r0)
	if r0n == 0 {
		return out, ErrDegenerateState
	}
	v02 := dot(v0, v0)
	rv := dot(r0, v0)
	vr0 := rv / r0n
	alpha := 2/r0n - v02/mu

	// Whole revolutions do not change an elliptic state.
	if alpha > 1e-12 {
		period := 2 * math.Pi / math.Sqrt(mu*alpha*alpha*alpha)
		dt = math.Mod(dt, period)
	}

	chi := initialGuess(r0n, rv, alpha, dt, mu)

	var c, s float64
	converged := false
	iter := 0
	for ; iter < opts.MaxIterations; iter++ {
		z := alpha * chi * chi
		c, s = stumpff(z)
		chi2 := chi * chi
		f := r0n*vr0/sqrtMu*chi2*c + (1-alpha*r0n)*chi2*chi*s + r0n*chi - sqrtMu*dt
		df := r0n*vr0/sqrtMu*chi*(1-z*s) + (1-alpha*r0n)*chi2*c + r0n
		delta := f / df
		chi -= delta
		if math.Abs(delta) <= opts.Tolerance*(1+math.Abs(chi)) {
			converged = true
			break
		}
	}
	if !converged || math.IsNaN(chi) {
		return out, &ConvergenceError{Iterations: iter}
	}

	z := alpha * chi * chi
	c, s = stumpff(z)
	chi2 := chi * chi

	f := 1 - chi2/r0n*c
	g := dt - chi2*chi/sqrtMu*s
	var r [3]float64
	for k := 0; k < 3; k++ {
		r[k] = f*r0[k] + g*v0[k]
	}
	rn := norm(r)

	fdot := sqrtMu / (rn * r0n) * (alpha*chi2*chi*s - chi)
	gdot := 1 - chi2/rn*c
	for k := 0; k < 3; k++ {
		out[k] = r[k]
		out[3+k] = fdot*r0[k] + gdot*v0[k]
	}
	return out, nil
}

func initialGuess(r0n, rv, alpha, dt, mu float64) float64 {
	sqrtMu := math.Sqrt(mu)
	switch {
	case alpha > 1e-12:
		return sqrtMu * dt * alpha
	case alpha < -1e-12:
		a := 1 / alpha
		sign := math.Copysign(1, dt)
		num := -2 * mu * alpha * dt
		den := rv + sign*math.Sqrt(-mu*a)*(1-r0n*alpha)
		if chi := sign * math.Sqrt(-a) * math.Log(num/den); !math.IsNaN(chi) && !math.IsInf(chi, 0) {
			return chi
		}
	}
	return sqrtMu * dt / r0n
}

func dot(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func norm(a [3]float64) float64 {
	return math.Sqrt(dot(a, a))
}
