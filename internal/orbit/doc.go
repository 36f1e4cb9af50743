// Package orbit provides the data model shared by every propagation engine.
//
// The package defines the batch types the dispatcher and the backends pass
// between each other, plus the numerical interfaces the integrators consume:
//
//   - [State]: 6-component state vector (cartesian or element set)
//   - [Orbits]: identified batch of states with a common [ElementType]
//   - [System]: interface for ODE systems (dX/dt = f(X, t))
//   - [Integrator]: numerical stepper interface
//
// Units are astronomical units and days throughout: positions in AU,
// velocities in AU/day, gravitational parameters in AU^3/day^2.
//
// # Example
//
//	orbits := orbit.Orbits{
//	    IDs:      []int{1},
//	    States:   []orbit.State{{1, 0, 0, 0, 0.0172, 0}},
//	    Elements: orbit.Cartesian,
//	}
//	if err := orbits.Validate(); err != nil {
//	    return err
//	}
package orbit
