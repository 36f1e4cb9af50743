package metrics

import (
	"math"
	"sort"

	"github.com/san-kum/orbprop/internal/orbit"
)

// EnergyDrift tracks the largest relative change of a conserved energy over
// a sequence of observed states.
type EnergyDrift struct {
	name          string
	initialEnergy float64
	maxDrift      float64
	samples       int
	dyn           orbit.Hamiltonian
}

func NewEnergyDrift(dyn orbit.Hamiltonian) *EnergyDrift {
	return &EnergyDrift{
		name: "energy_drift",
		dyn:  dyn,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(x orbit.State) {
	energy := e.dyn.Energy(x)

	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Samples() int { return e.samples }

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}

// OrbitDrift is the energy drift of one orbit across its result rows.
type OrbitDrift struct {
	OrbitID int
	Samples int
	Drift   float64
}

// DriftByOrbit groups states by orbit id and reports each orbit's drift,
// sorted by id. States of one orbit are taken in the order given.
func DriftByOrbit(ids []int, states []orbit.State, dyn orbit.Hamiltonian) []OrbitDrift {
	trackers := make(map[int]*EnergyDrift)
	for i, id := range ids {
		tr, ok := trackers[id]
		if !ok {
			tr = NewEnergyDrift(dyn)
			trackers[id] = tr
		}
		tr.Observe(states[i])
	}

	out := make([]OrbitDrift, 0, len(trackers))
	for id, tr := range trackers {
		out = append(out, OrbitDrift{OrbitID: id, Samples: tr.Samples(), Drift: tr.Value()})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].OrbitID < out[b].OrbitID })
	return out
}
