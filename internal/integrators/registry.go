package integrators

import (
	"fmt"
	"sort"

	"github.com/san-kum/orbprop/internal/orbit"
)

var factories = map[string]func() orbit.Integrator{
	"euler":    func() orbit.Integrator { return NewEuler() },
	"rk4":      func() orbit.Integrator { return NewRK4() },
	"rk45":     func() orbit.Integrator { return NewRK45() },
	"verlet":   func() orbit.Integrator { return NewVerlet() },
	"leapfrog": func() orbit.Integrator { return NewLeapfrog() },
}

// New returns a fresh integrator by name. Integrators carry scratch state,
// so each goroutine needs its own instance.
func New(name string) (orbit.Integrator, error) {
	fn, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownIntegrator, name)
	}
	return fn(), nil
}

func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
