// Package kepler holds two-body conic math shared by the ephemeris engine and
// the planetary origin model. Angles are radians unless a name says otherwise.
package kepler

import (
	"fmt"
	"math"

	"github.com/san-kum/orbprop/internal/orbit"
)

const (
	// GaussK is the Gaussian gravitational constant in AU^(3/2) / day.
	GaussK = 0.01720209895
	// MuSun is GaussK^2 in AU^3/day^2.
	MuSun = GaussK * GaussK

	defaultTol     = 1e-14
	defaultMaxIter = 50
)

// Deg converts degrees to radians.
func Deg(d float64) float64 { return d * math.Pi / 180 }

// WrapPi maps an angle onto (-pi, pi].
func WrapPi(x float64) float64 {
	x = math.Mod(x, 2*math.Pi)
	if x > math.Pi {
		x -= 2 * math.Pi
	} else if x <= -math.Pi {
		x += 2 * math.Pi
	}
	return x
}

// EccentricAnomaly solves M = E - e sin E for E with Newton's method.
func EccentricAnomaly(m, e float64) (float64, error) {
	if e < 0 || e >= 1 {
		return 0, fmt.Errorf("%w: e=%g", ErrNotElliptic, e)
	}
	m = WrapPi(m)
	ea := m
	if e > 0.8 {
		ea = math.Copysign(math.Pi, m)
	}
	for i := 0; i < defaultMaxIter; i++ {
		s, c := math.Sincos(ea)
		d := (ea - e*s - m) / (1 - e*c)
		ea -= d
		if math.Abs(d) < defaultTol {
			return ea, nil
		}
	}
	return 0, fmt.Errorf("%w: M=%g e=%g", ErrNoConvergence, m, e)
}

// Rotate maps perifocal position and velocity into the reference frame
// defined by inclination, ascending node and argument of perihelion.
func Rotate(xp, yp, vxp, vyp, inc, node, argp float64) orbit.State {
	sw, cw := math.Sincos(argp)
	sn, cn := math.Sincos(node)
	si, ci := math.Sincos(inc)

	p1 := cw*cn - sw*sn*ci
	p2 := cw*sn + sw*cn*ci
	p3 := sw * si
	q1 := -sw*cn - cw*sn*ci
	q2 := -sw*sn + cw*cn*ci
	q3 := cw * si

	return orbit.State{
		p1*xp + q1*yp,
		p2*xp + q2*yp,
		p3*xp + q3*yp,
		p1*vxp + q1*vyp,
		p2*vxp + q2*vyp,
		p3*vxp + q3*vyp,
	}
}

// Elliptic returns the cartesian state for an elliptic element set with
// mean anomaly m.
func Elliptic(a, e, inc, node, argp, m, mu float64) (orbit.State, error) {
	if a <= 0 || mu <= 0 {
		return nil, fmt.Errorf("%w: a=%g mu=%g", ErrInvalidElements, a, mu)
	}
	ea, err := EccentricAnomaly(m, e)
	if err != nil {
		return nil, err
	}
	se, ce := math.Sincos(ea)
	b := a * math.Sqrt(1-e*e)
	n := math.Sqrt(mu / (a * a * a))
	denom := 1 - e*ce

	return Rotate(
		a*(ce-e), b*se,
		-a*n*se/denom, b*n*ce/denom,
		inc, node, argp,
	), nil
}

// Perihelion returns the cartesian state at the perihelion of a conic with
// perihelion distance q. Any e >= 0 is accepted.
func Perihelion(q, e, inc, node, argp, mu float64) (orbit.State, error) {
	if q <= 0 || e < 0 || mu <= 0 {
		return nil, fmt.Errorf("%w: q=%g e=%g mu=%g", ErrInvalidElements, q, e, mu)
	}
	v := math.Sqrt(mu * (1 + e) / q)
	return Rotate(q, 0, 0, v, inc, node, argp), nil
}

// SpecificEnergy is v^2/2 - mu/r for a cartesian state.
func SpecificEnergy(s orbit.State, mu float64) float64 {
	r := math.Sqrt(s[0]*s[0] + s[1]*s[1] + s[2]*s[2])
	v2 := s[3]*s[3] + s[4]*s[4] + s[5]*s[5]
	return 0.5*v2 - mu/r
}
