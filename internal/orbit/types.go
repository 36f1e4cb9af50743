package orbit

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// StateDim is the number of components of every orbit state.
const StateDim = 6

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	return floats.Norm(s, 2)
}

func (s State) Add(other State) State {
	return floats.AddTo(make(State, len(s)), s, other)
}

func (s State) Sub(other State) State {
	return floats.SubTo(make(State, len(s)), s, other)
}

func (s State) Scale(factor float64) State {
	return floats.ScaleTo(make(State, len(s)), factor, s)
}

// Position returns the first three components as a vector.
func (s State) Position() [3]float64 {
	return [3]float64{s[0], s[1], s[2]}
}

// Velocity returns the last three components as a vector.
func (s State) Velocity() [3]float64 {
	return [3]float64{s[3], s[4], s[5]}
}

// ElementType names the representation carried by a State.
type ElementType int

const (
	// Cartesian is x, y, z (AU), vx, vy, vz (AU/day).
	Cartesian ElementType = iota
	// Keplerian is a (AU), e, i, node, argument of perihelion, mean anomaly (degrees).
	Keplerian
	// Cometary is q (AU), e, i, node, argument of perihelion (degrees), time of perihelion (MJD).
	Cometary
)

func (e ElementType) String() string {
	switch e {
	case Cartesian:
		return "cartesian"
	case Keplerian:
		return "keplerian"
	case Cometary:
		return "cometary"
	default:
		return fmt.Sprintf("ElementType(%d)", int(e))
	}
}

// ParseElementType maps a case-insensitive name onto an ElementType.
func ParseElementType(s string) (ElementType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cartesian", "":
		return Cartesian, nil
	case "keplerian":
		return Keplerian, nil
	case "cometary":
		return Cometary, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownElements, s)
	}
}

// Orbits is a batch of identified states sharing one element type.
type Orbits struct {
	IDs      []int
	States   []State
	Elements ElementType
}

func (o Orbits) Len() int { return len(o.States) }

// Clone returns a deep copy; backends may mutate their copy freely.
func (o Orbits) Clone() Orbits {
	c := Orbits{
		IDs:      make([]int, len(o.IDs)),
		States:   make([]State, len(o.States)),
		Elements: o.Elements,
	}
	copy(c.IDs, o.IDs)
	for i, s := range o.States {
		c.States[i] = s.Clone()
	}
	return c
}

// WithStates returns a batch with the same identifiers and element type
// carrying the given states.
func (o Orbits) WithStates(states []State) Orbits {
	return Orbits{IDs: o.IDs, States: states, Elements: o.Elements}
}

// Validate checks shape, finiteness and identifier uniqueness.
func (o Orbits) Validate() error {
	if len(o.States) == 0 {
		return ErrEmptyBatch
	}
	if len(o.IDs) != len(o.States) {
		return fmt.Errorf("%w: %d ids, %d states", ErrIDMismatch, len(o.IDs), len(o.States))
	}
	if o.Elements < Cartesian || o.Elements > Cometary {
		return fmt.Errorf("%w: %d", ErrUnknownElements, int(o.Elements))
	}
	seen := make(map[int]struct{}, len(o.IDs))
	for i, s := range o.States {
		id := o.IDs[i]
		if _, dup := seen[id]; dup {
			return &RowError{Row: i, ID: id, Wrapped: ErrDuplicateID}
		}
		seen[id] = struct{}{}
		if len(s) != StateDim {
			return &RowError{Row: i, ID: id, Wrapped: ErrDimensionMismatch}
		}
		if !s.IsValid() {
			return &RowError{Row: i, ID: id, Wrapped: ErrInvalidState}
		}
	}
	return nil
}

// System is an ODE right-hand side dX/dt = f(X, t).
type System interface {
	Derive(x State, t float64) State
	StateDim() int
}

// Hamiltonian systems expose a conserved energy for drift checks.
type Hamiltonian interface {
	Energy(x State) float64
}

type Integrator interface {
	Step(dyn System, x State, t float64, dt float64) State
}

// AdaptiveIntegrator takes an error-controlled step. It returns the new
// state, the step actually taken and a suggested next step.
type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(dyn System, x State, t, dt, tol float64) (State, float64, float64, error)
}
