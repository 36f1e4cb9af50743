// Package ephem is a general-purpose ephemeris engine. It accepts cartesian,
// Keplerian or cometary elements, integrates heliocentric two-body motion
// numerically and always returns cartesian states. Epochs are read in UTC or
// TT; TDB input is refused.
package ephem

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/san-kum/orbprop/internal/integrators"
	"github.com/san-kum/orbprop/internal/kepler"
	"github.com/san-kum/orbprop/internal/orbit"
	"github.com/san-kum/orbprop/internal/timescale"
)

type TimeScale int

const (
	UTC TimeScale = iota + 1
	TT
	TDB
)

func (s TimeScale) String() string {
	switch s {
	case UTC:
		return "UTC"
	case TT:
		return "TT"
	case TDB:
		return "TDB"
	default:
		return fmt.Sprintf("TimeScale(%d)", int(s))
	}
}

type Options struct {
	Integrator string  `yaml:"integrator" json:"integrator"`
	Step       float64 `yaml:"step" json:"step"`
	Tolerance  float64 `yaml:"tolerance" json:"tolerance"`
	MinStep    float64 `yaml:"min_step" json:"min_step"`
	Mu         float64 `yaml:"mu" json:"mu"`
	Workers    int     `yaml:"workers" json:"workers"`
}

func DefaultOptions() Options {
	return Options{
		Integrator: "rk45",
		Step:       1.0,
		Tolerance:  1e-12,
		MinStep:    1e-8,
		Mu:         kepler.MuSun,
	}
}

// Merge returns o with zero fields taken from base.
func (o Options) Merge(base Options) Options {
	if o.Integrator == "" {
		o.Integrator = base.Integrator
	}
	if o.Step == 0 {
		o.Step = base.Step
	}
	if o.Tolerance == 0 {
		o.Tolerance = base.Tolerance
	}
	if o.MinStep == 0 {
		o.MinStep = base.MinStep
	}
	if o.Mu == 0 {
		o.Mu = base.Mu
	}
	if o.Workers == 0 {
		o.Workers = base.Workers
	}
	return o
}

const minChunk = 4

type Engine struct {
	base Options
	log  zerolog.Logger
}

func New(opts Options, log zerolog.Logger) *Engine {
	return &Engine{
		base: opts.Merge(DefaultOptions()),
		log:  log.With().Str("component", "ephem").Logger(),
	}
}

// Propagate integrates every orbit to every t1 epoch. Rows are orbit-major
// and the epoch column echoes t1 in the requested scale.
func (e *Engine) Propagate(orbits orbit.Orbits, t0, t1 []float64, scale TimeScale, override Options) (*Table, error) {
	opts := override.Merge(e.base)

	if scale != UTC && scale != TT {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedTimeScale, scale)
	}
	n, m := orbits.Len(), len(t1)
	if len(t0) != 1 && len(t0) != n {
		return nil, fmt.Errorf("%w: %d epochs for %d orbits", ErrEpochCount, len(t0), n)
	}
	newInteg, err := integratorFactory(opts)
	if err != nil {
		return nil, err
	}

	uniformT0, err := uniform(t0, scale)
	if err != nil {
		return nil, err
	}
	uniformT1, err := uniform(t1, scale)
	if err != nil {
		return nil, err
	}

	dyn := &TwoBody{Mu: opts.Mu}
	settings := integrators.Settings{Step: opts.Step, Tolerance: opts.Tolerance}
	data := make([][]float64, n*m)

	err = orbit.ParallelMap(n, minChunk, opts.Workers, func(i int) error {
		id := orbits.IDs[i]
		epoch := uniformT0[0]
		if len(uniformT0) == n {
			epoch = uniformT0[i]
		}

		x0, start, err := toCartesian(orbits.States[i], orbits.Elements, epoch, scale, opts.Mu)
		if err != nil {
			return &orbit.RowError{Row: i, ID: id, Wrapped: err}
		}

		states, err := integrators.IntegrateMany(dyn, newInteg, x0, start, uniformT1, settings)
		if err != nil {
			return &orbit.RowError{Row: i, ID: id, Wrapped: err}
		}
		for j, s := range states {
			row := make([]float64, len(Columns))
			row[0] = float64(id)
			row[1] = t1[j]
			copy(row[2:], s)
			data[i*m+j] = row
		}
		return nil
	})
	if err != nil {
		e.log.Debug().Err(err).Int("orbits", n).Msg("propagation failed")
		return nil, err
	}

	e.log.Debug().
		Int("orbits", n).
		Int("epochs", m).
		Str("elements", orbits.Elements.String()).
		Str("integrator", opts.Integrator).
		Stringer("scale", scale).
		Msg("propagated")

	cols := make([]string, len(Columns))
	copy(cols, Columns)
	return &Table{Columns: cols, Data: data}, nil
}

func integratorFactory(opts Options) (func() orbit.Integrator, error) {
	if _, err := integrators.New(opts.Integrator); err != nil {
		return nil, err
	}
	return func() orbit.Integrator {
		integ, _ := integrators.New(opts.Integrator)
		if rk, ok := integ.(*integrators.RK45); ok {
			rk.WithMinStep(opts.MinStep)
		}
		return integ
	}, nil
}

// uniform maps epochs onto TT so that UTC leap seconds do not distort the
// integration span.
func uniform(mjd []float64, scale TimeScale) ([]float64, error) {
	if scale == TT {
		return mjd, nil
	}
	tt, err := timescale.ToTT(timescale.New(timescale.UTC, mjd...))
	if err != nil {
		return nil, err
	}
	return tt.Values, nil
}

// toCartesian converts an input row to a cartesian state and the epoch the
// state refers to.
func toCartesian(x orbit.State, elements orbit.ElementType, t0 float64, scale TimeScale, mu float64) (orbit.State, float64, error) {
	switch elements {
	case orbit.Cartesian:
		return x.Clone(), t0, nil

	case orbit.Keplerian:
		s, err := kepler.Elliptic(x[0], x[1], kepler.Deg(x[2]), kepler.Deg(x[3]), kepler.Deg(x[4]), kepler.Deg(x[5]), mu)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrInvalidElements, err)
		}
		return s, t0, nil

	case orbit.Cometary:
		s, err := kepler.Perihelion(x[0], x[1], kepler.Deg(x[2]), kepler.Deg(x[3]), kepler.Deg(x[4]), mu)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrInvalidElements, err)
		}
		tp, err := uniform([]float64{x[5]}, scale)
		if err != nil {
			return nil, 0, err
		}
		return s, tp[0], nil

	default:
		return nil, 0, fmt.Errorf("%w: %s", orbit.ErrUnknownElements, elements)
	}
}
