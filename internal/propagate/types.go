package propagate

import (
	"fmt"
	"strings"

	"github.com/san-kum/orbprop/internal/ephem"
	"github.com/san-kum/orbprop/internal/orbit"
	"github.com/san-kum/orbprop/internal/origin"
	"github.com/san-kum/orbprop/internal/timescale"
	"github.com/san-kum/orbprop/internal/universal"
)

// Backend selects the propagation engine.
type Backend int

const (
	// Internal is the universal-variable two-body propagator.
	Internal Backend = iota + 1
	// External is the numerical ephemeris engine.
	External
)

func (b Backend) String() string {
	switch b {
	case Internal:
		return "internal"
	case External:
		return "external"
	default:
		return fmt.Sprintf("Backend(%d)", int(b))
	}
}

// ParseBackend accepts "internal" or "THOR" and "external" or "PYOORB",
// ignoring case.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "internal", "thor":
		return Internal, nil
	case "external", "pyoorb":
		return External, nil
	default:
		return 0, fmt.Errorf("%w: got %q", ErrUnsupportedBackend, s)
	}
}

func (b Backend) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *Backend) UnmarshalText(text []byte) error {
	parsed, err := ParseBackend(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// Options are per-call backend settings. Zero solver or engine fields fall
// back to the backend's own configuration.
type Options struct {
	Internal InternalOptions `yaml:"internal" json:"internal"`
	External ephem.Options   `yaml:"external" json:"external"`
}

type InternalOptions struct {
	Origin origin.Origin     `yaml:"origin" json:"origin"`
	Solver universal.Options `yaml:"solver" json:"solver"`
}

func DefaultOptions() Options {
	return Options{
		Internal: InternalOptions{
			Origin: origin.Heliocenter,
			Solver: universal.DefaultOptions(),
		},
		External: ephem.DefaultOptions(),
	}
}

// DefaultsProvider supplies options when a request carries none.
type DefaultsProvider interface {
	Defaults(b Backend) Options
}

// StaticDefaults returns the same options for every backend.
type StaticDefaults Options

func (s StaticDefaults) Defaults(Backend) Options { return Options(s) }

type Request struct {
	Orbits  orbit.Orbits
	T0      timescale.Times
	T1      timescale.Times
	Backend Backend
	// Options nil selects the injected defaults.
	Options *Options
}

// Columns of the canonical result table.
var Columns = []string{"orbit_id", "epoch_mjd_tdb", "x", "y", "z", "vx", "vy", "vz"}

type Row struct {
	OrbitID     int     `json:"orbit_id"`
	EpochMJDTDB float64 `json:"epoch_mjd_tdb"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Z           float64 `json:"z"`
	VX          float64 `json:"vx"`
	VY          float64 `json:"vy"`
	VZ          float64 `json:"vz"`
}

func (r Row) State() orbit.State {
	return orbit.State{r.X, r.Y, r.Z, r.VX, r.VY, r.VZ}
}

// Values returns the row in column order.
func (r Row) Values() [8]float64 {
	return [8]float64{float64(r.OrbitID), r.EpochMJDTDB, r.X, r.Y, r.Z, r.VX, r.VY, r.VZ}
}

// Resolved echoes the configuration a call actually ran with.
type Resolved struct {
	Backend Backend `json:"backend"`
	// Origin is Unset on the external path.
	Origin origin.Origin `json:"origin,omitempty"`
	// TimeScale is the scale handed to the backend.
	TimeScale string  `json:"time_scale"`
	Options   Options `json:"options"`
}

type Result struct {
	Table    []Row    `json:"table"`
	Resolved Resolved `json:"resolved"`
}

func (r *Result) Len() int { return len(r.Table) }

// IDs and States return the table's identifiers and cartesian states in row order.
func (r *Result) IDs() []int {
	ids := make([]int, len(r.Table))
	for i, row := range r.Table {
		ids[i] = row.OrbitID
	}
	return ids
}

func (r *Result) States() []orbit.State {
	states := make([]orbit.State, len(r.Table))
	for i, row := range r.Table {
		states[i] = row.State()
	}
	return states
}
