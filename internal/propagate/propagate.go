// Package propagate dispatches orbit propagation to one of two backends and
// returns every result in one canonical, TDB-labelled table.
//
// The internal backend works in TDB on heliocentric (or consistently shifted
// barycentric) cartesian states. The external backend cannot take TDB, so it
// is handed TT-labelled epochs corrected by the instantaneous TDB-TT offset
// and its output epochs are relabelled TDB afterwards.
package propagate

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/san-kum/orbprop/internal/ephem"
	"github.com/san-kum/orbprop/internal/metrics"
	"github.com/san-kum/orbprop/internal/orbit"
	"github.com/san-kum/orbprop/internal/origin"
	"github.com/san-kum/orbprop/internal/timescale"
	"github.com/san-kum/orbprop/internal/universal"
)

// InternalBackend propagates cartesian states with TDB epochs and returns
// rows of [orbit_id, epoch, x, y, z, vx, vy, vz].
type InternalBackend interface {
	Propagate(orbits orbit.Orbits, t0, t1 []float64, opts universal.Options) ([][8]float64, error)
}

// ExternalBackend propagates any supported element type in UTC or TT.
type ExternalBackend interface {
	Propagate(orbits orbit.Orbits, t0, t1 []float64, scale ephem.TimeScale, opts ephem.Options) (*ephem.Table, error)
}

// Propagator holds only immutable collaborators and is safe for concurrent use.
type Propagator struct {
	internal InternalBackend
	external ExternalBackend
	shifter  origin.Shifter
	defaults DefaultsProvider
	log      zerolog.Logger
}

func New(internal InternalBackend, external ExternalBackend, shifter origin.Shifter, defaults DefaultsProvider, log zerolog.Logger) *Propagator {
	if defaults == nil {
		defaults = StaticDefaults(DefaultOptions())
	}
	return &Propagator{
		internal: internal,
		external: external,
		shifter:  shifter,
		defaults: defaults,
		log:      log.With().Str("component", "propagate").Logger(),
	}
}

// Propagate runs one request. Backend and shifter errors are returned as is;
// there is no partial result and no fallback to the other backend.
func (p *Propagator) Propagate(req Request) (res *Result, err error) {
	start := time.Now()
	defer func() {
		rows := 0
		if res != nil {
			rows = res.Len()
		}
		metrics.ObservePropagation(backendLabel(req.Backend), rows, time.Since(start), err)
		if err != nil {
			p.log.Error().Err(err).
				Stringer("backend", req.Backend).
				Int("orbits", req.Orbits.Len()).
				Int("epochs", req.T1.Len()).
				Msg("propagation failed")
			return
		}
		p.log.Debug().
			Stringer("backend", res.Resolved.Backend).
			Str("origin", res.Resolved.Origin.String()).
			Str("time_scale", res.Resolved.TimeScale).
			Int("rows", rows).
			Dur("elapsed", time.Since(start)).
			Msg("propagated")
	}()

	if err := p.validate(req); err != nil {
		return nil, err
	}

	var opts Options
	if req.Options != nil {
		opts = *req.Options
	} else {
		opts = p.defaults.Defaults(req.Backend)
	}

	t0TDB, err := timescale.ForInternal(req.T0)
	if err != nil {
		return nil, fmt.Errorf("%w: t0: %w", ErrInvalidTimeInput, err)
	}
	t1TDB, err := timescale.ForInternal(req.T1)
	if err != nil {
		return nil, fmt.Errorf("%w: t1: %w", ErrInvalidTimeInput, err)
	}

	switch req.Backend {
	case Internal:
		return p.runInternal(req, opts, t0TDB, t1TDB)
	case External:
		return p.runExternal(req, opts, t1TDB)
	default:
		return nil, fmt.Errorf("%w: got %v", ErrUnsupportedBackend, req.Backend)
	}
}

func (p *Propagator) validate(req Request) error {
	if err := req.T0.Validate(); err != nil {
		return fmt.Errorf("%w: t0: %w", ErrInvalidTimeInput, err)
	}
	if err := req.T1.Validate(); err != nil {
		return fmt.Errorf("%w: t1: %w", ErrInvalidTimeInput, err)
	}
	if err := req.Orbits.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOrbits, err)
	}
	if n := req.Orbits.Len(); req.T0.Len() != 1 && req.T0.Len() != n {
		return fmt.Errorf("%w: t0 has %d epochs for %d orbits", ErrInvalidTimeInput, req.T0.Len(), n)
	}
	switch req.Backend {
	case Internal, External:
		return nil
	default:
		return fmt.Errorf("%w: got %v", ErrUnsupportedBackend, req.Backend)
	}
}

func (p *Propagator) runInternal(req Request, opts Options, t0, t1 []float64) (*Result, error) {
	orb := opts.Internal.Origin
	if !orb.Valid() {
		return nil, fmt.Errorf("%w: origin should be one of 'heliocenter' or 'barycenter', got %q", ErrInvalidConfiguration, orb.String())
	}
	if req.Orbits.Elements != orbit.Cartesian {
		return nil, fmt.Errorf("%w: internal backend needs cartesian states, got %s", ErrInvalidConfiguration, req.Orbits.Elements)
	}

	orbits := req.Orbits
	if orb == origin.Barycenter {
		shifted, err := p.shifter.Shift(orbits.States, req.T0, origin.Heliocenter, origin.Barycenter)
		if err != nil {
			return nil, err
		}
		orbits = orbits.WithStates(shifted)
	}

	rows, err := p.internal.Propagate(orbits, t0, t1, opts.Internal.Solver)
	if err != nil {
		return nil, err
	}

	if orb == origin.Barycenter {
		states := make([]orbit.State, len(rows))
		epochs := make([]float64, len(rows))
		for i := range rows {
			states[i] = orbit.State(rows[i][2:])
			epochs[i] = rows[i][1]
		}
		helio, err := p.shifter.Shift(states, timescale.New(timescale.TDB, epochs...), origin.Barycenter, origin.Heliocenter)
		if err != nil {
			return nil, err
		}
		for i := range rows {
			copy(rows[i][2:], helio[i])
		}
	}

	table := make([]Row, len(rows))
	for i, r := range rows {
		table[i] = Row{
			OrbitID:     int(math.Round(r[0])),
			EpochMJDTDB: r[1],
			X:           r[2], Y: r[3], Z: r[4],
			VX: r[5], VY: r[6], VZ: r[7],
		}
	}

	return &Result{
		Table: table,
		Resolved: Resolved{
			Backend:   Internal,
			Origin:    orb,
			TimeScale: timescale.TDB.String(),
			Options:   opts,
		},
	}, nil
}

func (p *Propagator) runExternal(req Request, opts Options, t1TDB []float64) (*Result, error) {
	t0TT, t0Offsets, err := timescale.ForExternal(req.T0)
	if err != nil {
		return nil, fmt.Errorf("%w: t0: %w", ErrInvalidTimeInput, err)
	}
	t1TT, t1Offsets, err := timescale.ForExternal(req.T1)
	if err != nil {
		return nil, fmt.Errorf("%w: t1: %w", ErrInvalidTimeInput, err)
	}
	// The offset is frozen per epoch rather than followed along the span.
	p.log.Debug().
		Float64("t0_max_tdb_tt_s", maxAbsSeconds(t0Offsets)).
		Float64("t1_max_tdb_tt_s", maxAbsSeconds(t1Offsets)).
		Msg("external epochs corrected by instantaneous TDB-TT")

	tab, err := p.external.Propagate(req.Orbits, t0TT, t1TT, ephem.TT, opts.External)
	if err != nil {
		return nil, err
	}

	n, m := req.Orbits.Len(), len(t1TDB)
	if tab.Len() != n*m {
		return nil, fmt.Errorf("propagate: external backend returned %d rows, want %d", tab.Len(), n*m)
	}

	if err := tab.Rename("epoch_mjd", "epoch_mjd_tdb"); err != nil {
		return nil, err
	}
	epochs := make([]float64, 0, n*m)
	for i := 0; i < n; i++ {
		epochs = append(epochs, t1TDB...)
	}
	if err := tab.SetColumn("epoch_mjd_tdb", epochs); err != nil {
		return nil, err
	}

	table, err := rowsFromTable(tab)
	if err != nil {
		return nil, err
	}

	return &Result{
		Table: table,
		Resolved: Resolved{
			Backend:   External,
			TimeScale: ephem.TT.String(),
			Options:   opts,
		},
	}, nil
}

// rowsFromTable reads canonical columns by name.
func rowsFromTable(tab *ephem.Table) ([]Row, error) {
	idx := make([]int, len(Columns))
	for i, name := range Columns {
		j, err := tab.Index(name)
		if err != nil {
			return nil, err
		}
		idx[i] = j
	}

	rows := make([]Row, tab.Len())
	for i, d := range tab.Data {
		rows[i] = Row{
			OrbitID:     int(math.Round(d[idx[0]])),
			EpochMJDTDB: d[idx[1]],
			X:           d[idx[2]], Y: d[idx[3]], Z: d[idx[4]],
			VX: d[idx[5]], VY: d[idx[6]], VZ: d[idx[7]],
		}
	}
	return rows, nil
}

func maxAbsSeconds(days []float64) float64 {
	var m float64
	for _, d := range days {
		m = math.Max(m, math.Abs(d))
	}
	return m * 86400
}

// backendLabel keeps metric label values bounded.
func backendLabel(b Backend) string {
	if b == Internal || b == External {
		return b.String()
	}
	return "unsupported"
}
