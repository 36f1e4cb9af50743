package origin

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/orbprop/internal/orbit"
	"github.com/san-kum/orbprop/internal/timescale"
)

const mjdJ2000 = timescale.J2000 - timescale.MJDOffset

func TestPlanetPositionsAtJ2000(t *testing.T) {
	tests := []struct {
		name string
		want []float64
		tol  float64
	}{
		{"earth-moon", []float64{-0.1771, 0.9672, 0}, 0.01},
		{"jupiter", []float64{4.0012, 2.9385, -0.1018}, 0.02},
	}

	p := NewPlanetary()
	for _, tc := range tests {
		s, err := p.Planet(tc.name, mjdJ2000)
		if err != nil {
			t.Fatal(err)
		}
		if !floats.EqualApprox(s[:3], tc.want, tc.tol) {
			t.Errorf("%s: got %v, want %v", tc.name, s[:3], tc.want)
		}
	}
}

func TestPlanetVelocityMatchesFiniteDifference(t *testing.T) {
	p := NewPlanetary()
	const h = 0.01
	for _, name := range []string{"mercury", "earth-moon", "saturn"} {
		s, err := p.Planet(name, 60000)
		if err != nil {
			t.Fatal(err)
		}
		ahead, _ := p.Planet(name, 60000+h)
		behind, _ := p.Planet(name, 60000-h)
		for k := 0; k < 3; k++ {
			fd := (ahead[k] - behind[k]) / (2 * h)
			if math.Abs(fd-s[3+k]) > 1e-6*math.Abs(s.Norm()) {
				t.Errorf("%s: v[%d] = %g, finite difference %g", name, k, s[3+k], fd)
			}
		}
	}
}

func TestPlanetNames(t *testing.T) {
	names := PlanetNames()
	if len(names) != 8 || names[0] != "mercury" || names[7] != "neptune" {
		t.Fatalf("unexpected planets %v", names)
	}
	p := NewPlanetary()
	for _, name := range names {
		s, err := p.Planet(name, 60000)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if r := math.Sqrt(s[0]*s[0] + s[1]*s[1] + s[2]*s[2]); r < 0.3 || r > 31 {
			t.Errorf("%s: heliocentric distance %g AU", name, r)
		}
	}
	if _, err := p.Planet("pluto", 60000); err == nil {
		t.Error("expected error for unknown planet")
	}
}

func TestSunStateAtJ2000(t *testing.T) {
	sun, err := NewPlanetary().SunState(mjdJ2000)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{-0.00714, -0.00264, 0.00021}
	if !floats.EqualApprox(sun[:3], want, 5e-4) {
		t.Errorf("got %v, want about %v", sun[:3], want)
	}
}

func TestSunStaysNearBarycenter(t *testing.T) {
	p := NewPlanetary()
	for mjd := -100000.0; mjd < 150000; mjd += 3333 {
		sun, err := p.SunState(mjd)
		if err != nil {
			t.Fatal(err)
		}
		pos := orbit.State(sun[:3])
		vel := orbit.State(sun[3:])
		if r := pos.Norm(); r > 0.011 {
			t.Errorf("MJD %.0f: sun %g AU from barycenter", mjd, r)
		}
		if v := vel.Norm(); v > 1.2e-5 {
			t.Errorf("MJD %.0f: sun moves %g AU/day", mjd, v)
		}
	}
}

func TestShiftRoundTrip(t *testing.T) {
	states := []orbit.State{
		{1, 0, 0, 0, 0.0172, 0},
		{-2.5, 0.3, 0.1, 0.001, -0.009, 0.0002},
	}
	epochs := timescale.New(timescale.TDB, 59000, 61000)
	p := NewPlanetary()

	bary, err := p.Shift(states, epochs, Heliocenter, Barycenter)
	if err != nil {
		t.Fatal(err)
	}
	if floats.EqualApprox(bary[0], states[0], 1e-6) {
		t.Error("shift to barycenter left the state unchanged")
	}
	helio, err := p.Shift(bary, epochs, Barycenter, Heliocenter)
	if err != nil {
		t.Fatal(err)
	}
	for i := range states {
		if !floats.EqualApprox(helio[i], states[i], 1e-15) {
			t.Errorf("state %d: round trip %v, want %v", i, helio[i], states[i])
		}
	}
}

func TestShiftBroadcastsSingleEpoch(t *testing.T) {
	states := []orbit.State{{1, 0, 0, 0, 0, 0}, {2, 0, 0, 0, 0, 0}}
	p := NewPlanetary()

	bary, err := p.Shift(states, timescale.New(timescale.TDB, 59000), Heliocenter, Barycenter)
	if err != nil {
		t.Fatal(err)
	}
	sun, _ := p.SunState(59000)
	for i := range states {
		diff := orbit.State(bary[i]).Sub(states[i])
		if !floats.EqualApprox(diff, sun, 1e-15) {
			t.Errorf("state %d shifted by %v, want %v", i, diff, sun)
		}
	}
}

func TestShiftSameOriginCopies(t *testing.T) {
	states := []orbit.State{{1, 2, 3, 4, 5, 6}}
	out, err := NewPlanetary().Shift(states, timescale.New(timescale.TDB, 59000), Barycenter, Barycenter)
	if err != nil {
		t.Fatal(err)
	}
	out[0][0] = 99
	if states[0][0] != 1 {
		t.Error("identity shift aliased its input")
	}
}

func TestShiftConvertsEpochScale(t *testing.T) {
	states := []orbit.State{{1, 0, 0, 0, 0.0172, 0}}
	p := NewPlanetary()

	utc := timescale.New(timescale.UTC, 59000)
	tdb, _ := timescale.ToTDB(utc)

	a, err := p.Shift(states, utc, Heliocenter, Barycenter)
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.Shift(states, tdb, Heliocenter, Barycenter)
	if err != nil {
		t.Fatal(err)
	}
	if !floats.Equal(a[0], b[0]) {
		t.Errorf("UTC and TDB epochs shift differently: %v vs %v", a[0], b[0])
	}
}

func TestShiftErrors(t *testing.T) {
	p := NewPlanetary()
	states := []orbit.State{{1, 0, 0, 0, 0, 0}, {2, 0, 0, 0, 0, 0}}

	tests := []struct {
		name    string
		epochs  timescale.Times
		in, out Origin
		want    error
	}{
		{"epoch count", timescale.New(timescale.TDB, 1, 2, 3), Heliocenter, Barycenter, ErrEpochMismatch},
		{"unset origin", timescale.New(timescale.TDB, 59000), Unset, Barycenter, ErrUnknownOrigin},
		{"out of range", timescale.New(timescale.TDB, 500000), Heliocenter, Barycenter, ErrEpochOutOfRange},
		{"bad time", timescale.New(timescale.TDB, math.NaN()), Heliocenter, Barycenter, timescale.ErrInvalidTimeInput},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := p.Shift(states, tc.epochs, tc.in, tc.out); !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestParseOrigin(t *testing.T) {
	for _, o := range []Origin{Heliocenter, Barycenter} {
		got, err := ParseOrigin(o.String())
		if err != nil || got != o {
			t.Errorf("ParseOrigin(%q) = %v, %v", o.String(), got, err)
		}
	}
	if _, err := ParseOrigin("geocenter"); !errors.Is(err, ErrUnknownOrigin) {
		t.Errorf("got %v, want ErrUnknownOrigin", err)
	}

	var o Origin
	if err := o.UnmarshalText([]byte("barycenter")); err != nil || o != Barycenter {
		t.Errorf("UnmarshalText: %v, %v", o, err)
	}
}
