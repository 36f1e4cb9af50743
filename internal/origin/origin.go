// Package origin moves cartesian states between heliocentric and
// solar-system-barycentric coordinates.
package origin

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/orbprop/internal/kepler"
	"github.com/san-kum/orbprop/internal/orbit"
	"github.com/san-kum/orbprop/internal/timescale"
)

type Origin int

const (
	// Unset is the zero value and is never a valid origin.
	Unset Origin = iota
	Heliocenter
	Barycenter
)

func (o Origin) String() string {
	switch o {
	case Unset:
		return ""
	case Heliocenter:
		return "heliocenter"
	case Barycenter:
		return "barycenter"
	default:
		return fmt.Sprintf("Origin(%d)", int(o))
	}
}

func (o Origin) Valid() bool { return o == Heliocenter || o == Barycenter }

func ParseOrigin(s string) (Origin, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "heliocenter", "heliocentric", "sun":
		return Heliocenter, nil
	case "barycenter", "barycentric", "ssb":
		return Barycenter, nil
	default:
		return Unset, fmt.Errorf("%w: %q", ErrUnknownOrigin, s)
	}
}

// MarshalText lets origins appear by name in YAML and JSON.
func (o Origin) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Origin) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*o = Unset
		return nil
	}
	parsed, err := ParseOrigin(string(b))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// Shifter transforms a batch of cartesian states between origins.
type Shifter interface {
	Shift(states []orbit.State, epochs timescale.Times, in, out Origin) ([]orbit.State, error)
}

const (
	jdMin = 625673.5  // 3000 BC
	jdMax = 2816787.5 // 3000 AD
)

// Planetary locates the barycenter from approximate mean elements of the eight
// planets. Positions of the Sun relative to the barycenter are good to a few
// thousand kilometres.
type Planetary struct {
	mu    sync.Mutex
	cache map[float64]orbit.State
}

func NewPlanetary() *Planetary {
	return &Planetary{cache: make(map[float64]orbit.State)}
}

// SunState returns the barycentric position (AU) and velocity (AU/day) of
// the Sun at a TDB modified Julian date.
func (p *Planetary) SunState(mjd float64) (orbit.State, error) {
	jd := mjd + timescale.MJDOffset
	if jd < jdMin || jd > jdMax || math.IsNaN(jd) {
		return nil, fmt.Errorf("%w: MJD %.5f", ErrEpochOutOfRange, mjd)
	}

	p.mu.Lock()
	if s, ok := p.cache[mjd]; ok {
		p.mu.Unlock()
		return s, nil
	}
	p.mu.Unlock()

	tCen := (jd - timescale.J2000) / 36525
	weighted := make(orbit.State, orbit.StateDim)
	total := 1.0
	for _, pl := range planets {
		s, err := pl.heliocentric(tCen)
		if err != nil {
			return nil, err
		}
		w := 1 / pl.massRatio
		floats.AddScaled(weighted, w, s)
		total += w
	}
	sun := weighted.Scale(-1 / total)

	p.mu.Lock()
	if len(p.cache) > 4096 {
		p.cache = make(map[float64]orbit.State)
	}
	p.cache[mjd] = sun
	p.mu.Unlock()
	return sun, nil
}

// Planet returns the heliocentric state of a planet by name.
func (p *Planetary) Planet(name string, mjd float64) (orbit.State, error) {
	jd := mjd + timescale.MJDOffset
	if jd < jdMin || jd > jdMax {
		return nil, fmt.Errorf("%w: MJD %.5f", ErrEpochOutOfRange, mjd)
	}
	for _, pl := range planets {
		if pl.name == name {
			return pl.heliocentric((jd - timescale.J2000) / 36525)
		}
	}
	return nil, fmt.Errorf("origin: unknown planet %q", name)
}

// PlanetNames lists the planets known to Planet, innermost first.
func PlanetNames() []string {
	names := make([]string, len(planets))
	for i, pl := range planets {
		names[i] = pl.name
	}
	return names
}

func (p *Planetary) Shift(states []orbit.State, epochs timescale.Times, in, out Origin) ([]orbit.State, error) {
	if !in.Valid() {
		return nil, fmt.Errorf("%w: in=%v", ErrUnknownOrigin, in)
	}
	if !out.Valid() {
		return nil, fmt.Errorf("%w: out=%v", ErrUnknownOrigin, out)
	}
	if epochs.Len() != 1 && epochs.Len() != len(states) {
		return nil, fmt.Errorf("%w: %d epochs for %d states", ErrEpochMismatch, epochs.Len(), len(states))
	}

	shifted := make([]orbit.State, len(states))
	if in == out {
		for i, s := range states {
			shifted[i] = s.Clone()
		}
		return shifted, nil
	}

	tdb, err := timescale.ToTDB(epochs)
	if err != nil {
		return nil, err
	}

	sign := 1.0
	if in == Barycenter {
		sign = -1
	}
	for i, s := range states {
		epoch := tdb.Values[0]
		if tdb.Len() > 1 {
			epoch = tdb.Values[i]
		}
		sun, err := p.SunState(epoch)
		if err != nil {
			return nil, err
		}
		shifted[i] = s.Clone()
		floats.AddScaled(shifted[i], sign, sun)
	}
	return shifted, nil
}

func (pl planet) heliocentric(tCen float64) (orbit.State, error) {
	const (
		deg    = math.Pi / 180
		perDay = 1.0 / 36525
	)

	a := pl.a.eval(tCen)
	e := pl.e.eval(tCen)
	inc := pl.inc.eval(tCen)
	longPeri := pl.longPeri.eval(tCen)
	node := pl.node.eval(tCen)

	m := pl.meanLong.eval(tCen) - longPeri
	// dM/dT in degrees per century.
	mDot := pl.meanLong.rate - pl.longPeri.rate
	if pl.f != 0 {
		sf, cf := math.Sincos(pl.f * tCen * deg)
		m += pl.b*tCen*tCen + pl.c*cf + pl.s*sf
		mDot += 2*pl.b*tCen + (pl.s*cf-pl.c*sf)*pl.f*deg
	}

	// Choose mu so the Keplerian velocity follows the tabulated mean motion.
	n := mDot * deg * perDay
	mu := n * n * a * a * a

	return kepler.Elliptic(a, e, inc*deg, node*deg, (longPeri-node)*deg, m*deg, mu)
}
