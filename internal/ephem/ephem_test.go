package ephem

import (
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/orbprop/internal/integrators"
	"github.com/san-kum/orbprop/internal/kepler"
	"github.com/san-kum/orbprop/internal/orbit"
	"github.com/san-kum/orbprop/internal/timescale"
)

func newEngine() *Engine {
	return New(Options{}, zerolog.Nop())
}

func single(elements orbit.ElementType, s orbit.State) orbit.Orbits {
	return orbit.Orbits{IDs: []int{11}, States: []orbit.State{s}, Elements: elements}
}

func TestRejectsTDB(t *testing.T) {
	o := single(orbit.Cartesian, orbit.State{1, 0, 0, 0, kepler.GaussK, 0})
	tab, err := newEngine().Propagate(o, []float64{59000}, []float64{59001}, TDB, Options{})
	if !errors.Is(err, ErrUnsupportedTimeScale) {
		t.Fatalf("got %v, want ErrUnsupportedTimeScale", err)
	}
	if tab != nil {
		t.Error("expected no table on error")
	}
}

func TestCartesianMatchesAnalytic(t *testing.T) {
	a, e := 2.2, 0.3
	inc, node, argp := kepler.Deg(7), kepler.Deg(40), kepler.Deg(100)
	x0, err := kepler.Elliptic(a, e, inc, node, argp, 0.4, kepler.MuSun)
	if err != nil {
		t.Fatal(err)
	}
	dts := []float64{-200, 0, 35, 600}
	t1 := make([]float64, len(dts))
	for i, dt := range dts {
		t1[i] = 60000 + dt
	}

	tab, err := newEngine().Propagate(single(orbit.Cartesian, x0), []float64{60000}, t1, TT, Options{})
	if err != nil {
		t.Fatal(err)
	}
	n := math.Sqrt(kepler.MuSun / (a * a * a))
	for j, dt := range dts {
		want, _ := kepler.Elliptic(a, e, inc, node, argp, 0.4+n*dt, kepler.MuSun)
		if !floats.EqualApprox(tab.Data[j][2:5], want[:3], 1e-8) {
			t.Errorf("dt=%g: position %v, want %v", dt, tab.Data[j][2:5], want[:3])
		}
	}
}

func TestKeplerianInput(t *testing.T) {
	elems := orbit.State{1.5, 0.2, 3, 50, 70, 10}
	tab, err := newEngine().Propagate(single(orbit.Keplerian, elems), []float64{59000}, []float64{59000}, TT, Options{})
	if err != nil {
		t.Fatal(err)
	}
	want, _ := kepler.Elliptic(1.5, 0.2, kepler.Deg(3), kepler.Deg(50), kepler.Deg(70), kepler.Deg(10), kepler.MuSun)
	if !floats.EqualApprox(tab.Data[0][2:], want, 1e-14) {
		t.Errorf("got %v, want %v", tab.Data[0][2:], want)
	}
}

func TestCometaryStartsAtPerihelion(t *testing.T) {
	q, e := 0.9, 0.5
	tp := 59100.0
	elems := orbit.State{q, e, 12, 30, 60, tp}

	// t0 is ignored for cometary rows.
	tab, err := newEngine().Propagate(single(orbit.Cometary, elems), []float64{1234}, []float64{tp, tp + 150}, TT, Options{})
	if err != nil {
		t.Fatal(err)
	}

	inc, node, argp := kepler.Deg(12), kepler.Deg(30), kepler.Deg(60)
	peri, _ := kepler.Perihelion(q, e, inc, node, argp, kepler.MuSun)
	if !floats.EqualApprox(tab.Data[0][2:], peri, 1e-14) {
		t.Errorf("at perihelion: got %v, want %v", tab.Data[0][2:], peri)
	}

	a := q / (1 - e)
	n := math.Sqrt(kepler.MuSun / (a * a * a))
	want, _ := kepler.Elliptic(a, e, inc, node, argp, n*150, kepler.MuSun)
	if !floats.EqualApprox(tab.Data[1][2:5], want[:3], 1e-8) {
		t.Errorf("after 150 days: got %v, want %v", tab.Data[1][2:5], want[:3])
	}
}

func TestTableShape(t *testing.T) {
	o := orbit.Orbits{
		IDs:      []int{4, 9},
		States:   []orbit.State{{1, 0, 0, 0, 0.017, 0}, {0, -1.4, 0.1, 0.014, 0, 0}},
		Elements: orbit.Cartesian,
	}
	t1 := []float64{59010, 59005, 58990}
	tab, err := newEngine().Propagate(o, []float64{59000, 59001}, t1, TT, Options{Integrator: "rk4", Step: 0.5})
	if err != nil {
		t.Fatal(err)
	}
	if len(tab.Columns) != 8 || tab.Columns[1] != "epoch_mjd" {
		t.Errorf("unexpected columns %v", tab.Columns)
	}
	if tab.Len() != 6 {
		t.Fatalf("got %d rows, want 6", tab.Len())
	}
	for i, row := range tab.Data {
		if row[0] != float64(o.IDs[i/3]) || row[1] != t1[i%3] {
			t.Errorf("row %d: id %g epoch %g", i, row[0], row[1])
		}
	}
}

func TestUTCIntegratesInUniformTime(t *testing.T) {
	o := single(orbit.Cartesian, orbit.State{1, 0, 0, 0, kepler.GaussK, 0})
	// Spans the 2016-12-31 leap second.
	utc0, utc1 := []float64{57753.5}, []float64{57754.5}

	got, err := newEngine().Propagate(o, utc0, utc1, UTC, Options{})
	if err != nil {
		t.Fatal(err)
	}

	tt0, _ := timescale.ToTT(timescale.New(timescale.UTC, utc0...))
	tt1, _ := timescale.ToTT(timescale.New(timescale.UTC, utc1...))
	want, err := newEngine().Propagate(o, tt0.Values, tt1.Values, TT, Options{})
	if err != nil {
		t.Fatal(err)
	}

	if !floats.EqualApprox(got.Data[0][2:], want.Data[0][2:], 1e-12) {
		t.Errorf("UTC %v, TT %v", got.Data[0][2:], want.Data[0][2:])
	}
	if got.Data[0][1] != utc1[0] {
		t.Errorf("epoch column %g, want the UTC input %g", got.Data[0][1], utc1[0])
	}
}

func TestErrors(t *testing.T) {
	eng := newEngine()

	_, err := eng.Propagate(single(orbit.Keplerian, orbit.State{1, 1.3, 0, 0, 0, 0}), []float64{0}, []float64{1}, TT, Options{})
	if !errors.Is(err, ErrInvalidElements) {
		t.Errorf("got %v, want ErrInvalidElements", err)
	}
	var rowErr *orbit.RowError
	if !errors.As(err, &rowErr) || rowErr.ID != 11 {
		t.Errorf("error does not name orbit 11: %v", err)
	}

	o := single(orbit.Cartesian, orbit.State{1, 0, 0, 0, kepler.GaussK, 0})
	if _, err := eng.Propagate(o, []float64{0}, []float64{1}, TT, Options{Integrator: "gauss-jackson"}); !errors.Is(err, integrators.ErrUnknownIntegrator) {
		t.Errorf("got %v, want ErrUnknownIntegrator", err)
	}
	if _, err := eng.Propagate(o, []float64{0, 1}, []float64{1}, TT, Options{}); !errors.Is(err, ErrEpochCount) {
		t.Errorf("got %v, want ErrEpochCount", err)
	}
}

func TestTableEdits(t *testing.T) {
	tab := &Table{Columns: []string{"orbit_id", "epoch_mjd"}, Data: [][]float64{{1, 10}, {1, 11}}}

	if err := tab.Rename("epoch_mjd", "epoch_mjd_tdb"); err != nil {
		t.Fatal(err)
	}
	if err := tab.SetColumn("epoch_mjd_tdb", []float64{20, 21}); err != nil {
		t.Fatal(err)
	}
	if tab.Data[1][1] != 21 {
		t.Errorf("got %v", tab.Data)
	}
	if err := tab.Rename("epoch_mjd", "x"); !errors.Is(err, ErrNoColumn) {
		t.Errorf("got %v, want ErrNoColumn", err)
	}
	if err := tab.SetColumn("orbit_id", []float64{1}); err == nil {
		t.Error("expected length mismatch error")
	}
}

func TestTwoBodyEnergyConservedByVerlet(t *testing.T) {
	dyn := &TwoBody{Mu: kepler.MuSun}
	x0 := orbit.State{1, 0, 0, 0, 0.019, 0}
	x, err := integrators.Integrate(dyn, integrators.NewVerlet(), x0, 0, 3650, integrators.Settings{Step: 0.1})
	if err != nil {
		t.Fatal(err)
	}
	drift := math.Abs((dyn.Energy(x) - dyn.Energy(x0)) / dyn.Energy(x0))
	if drift > 1e-4 {
		t.Errorf("energy drift %e", drift)
	}
}
