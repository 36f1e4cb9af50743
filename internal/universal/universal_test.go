package universal

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/san-kum/orbprop/internal/kepler"
	"github.com/san-kum/orbprop/internal/orbit"
)

func cartesian(states ...orbit.State) orbit.Orbits {
	ids := make([]int, len(states))
	for i := range ids {
		ids[i] = i + 1
	}
	return orbit.Orbits{IDs: ids, States: states, Elements: orbit.Cartesian}
}

func TestStumpffContinuity(t *testing.T) {
	for _, z := range []float64{-1e-3, 1e-3} {
		cs, ss := stumpff(z * 0.999)
		ca, sa := stumpff(z * 1.001)
		if math.Abs(cs-ca) > 1e-7 || math.Abs(ss-sa) > 1e-7 {
			t.Errorf("z=%g: series and closed form disagree: C %g/%g S %g/%g", z, cs, ca, ss, sa)
		}
	}
}

func TestCircularQuarterPeriod(t *testing.T) {
	p := New(Options{})
	period := 2 * math.Pi / kepler.GaussK

	rows, err := p.Propagate(cartesian(orbit.State{1, 0, 0, 0, kepler.GaussK, 0}), []float64{0}, []float64{period / 4}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 1, 0, -kepler.GaussK, 0, 0}
	if !floats.EqualApprox(rows[0][2:], want, 1e-12) {
		t.Errorf("got %v, want %v", rows[0][2:], want)
	}
}

func TestMatchesKeplerEquation(t *testing.T) {
	tests := []struct {
		name string
		a, e float64
		dts  []float64
	}{
		{"near circular", 1.2, 0.01, []float64{1, 100, -250}},
		{"eccentric", 2.8, 0.6, []float64{30, 900, -4000}},
		{"many revolutions", 0.4, 0.2, []float64{36525}},
	}

	p := New(Options{})
	inc, node, argp := kepler.Deg(10), kepler.Deg(80), kepler.Deg(120)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m0 := 0.7
			x0, err := kepler.Elliptic(tc.a, tc.e, inc, node, argp, m0, kepler.MuSun)
			if err != nil {
				t.Fatal(err)
			}
			rows, err := p.Propagate(cartesian(x0), []float64{60000}, offsets(60000, tc.dts), Options{})
			if err != nil {
				t.Fatal(err)
			}
			n := math.Sqrt(kepler.MuSun / (tc.a * tc.a * tc.a))
			for j, dt := range tc.dts {
				want, err := kepler.Elliptic(tc.a, tc.e, inc, node, argp, m0+n*dt, kepler.MuSun)
				if err != nil {
					t.Fatal(err)
				}
				if !floats.EqualApprox(rows[j][2:5], want[:3], 1e-9) {
					t.Errorf("dt=%g: position %v, want %v", dt, rows[j][2:5], want[:3])
				}
				if !floats.EqualApprox(rows[j][5:], want[3:], 1e-11) {
					t.Errorf("dt=%g: velocity %v, want %v", dt, rows[j][5:], want[3:])
				}
			}
		})
	}
}

func TestHyperbolicConservesIntegrals(t *testing.T) {
	x0 := orbit.State{0.8, 0.2, 0.05, 0.004, 0.03, 0.001}
	p := New(Options{})

	rows, err := p.Propagate(cartesian(x0), []float64{0}, []float64{-400, -5, 5, 400}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	e0 := kepler.SpecificEnergy(x0, kepler.MuSun)
	if e0 <= 0 {
		t.Fatalf("test orbit is not hyperbolic: energy %g", e0)
	}
	h0 := angularMomentum(x0)
	for _, row := range rows {
		s := orbit.State(row[2:])
		if e := kepler.SpecificEnergy(s, kepler.MuSun); !scalar.EqualWithinRel(e, e0, 1e-10) {
			t.Errorf("t=%g: energy %g, want %g", row[1], e, e0)
		}
		if h := angularMomentum(s); !floats.EqualApprox(h[:], h0[:], 1e-11) {
			t.Errorf("t=%g: angular momentum %v, want %v", row[1], h, h0)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	x0 := orbit.State{-1.3, 0.7, 0.1, -0.006, -0.011, 0.0008}
	p := New(Options{})

	fwd, err := p.Propagate(cartesian(x0), []float64{59000}, []float64{59750}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	back, err := p.Propagate(cartesian(orbit.State(fwd[0][2:])), []float64{59750}, []float64{59000}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !floats.EqualApprox(back[0][2:], x0, 1e-10) {
		t.Errorf("round trip %v, want %v", back[0][2:], x0)
	}
}

func TestRowLayout(t *testing.T) {
	o := orbit.Orbits{
		IDs:      []int{7, 3},
		States:   []orbit.State{{1, 0, 0, 0, 0.017, 0}, {0, 2, 0, -0.012, 0, 0}},
		Elements: orbit.Cartesian,
	}
	t1 := []float64{59001, 59002, 59003}
	rows, err := New(Options{}).Propagate(o, []float64{59000, 58990}, t1, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 6 {
		t.Fatalf("got %d rows, want 6", len(rows))
	}
	for i, row := range rows {
		wantID := float64(o.IDs[i/3])
		if row[0] != wantID || row[1] != t1[i%3] {
			t.Errorf("row %d: id %g epoch %g, want id %g epoch %g", i, row[0], row[1], wantID, t1[i%3])
		}
	}
}

func TestWorkersDoNotChangeOutput(t *testing.T) {
	states := make([]orbit.State, 200)
	for i := range states {
		a := 0.5 + float64(i)*0.02
		states[i] = orbit.State{a, 0.1, 0, -0.001, kepler.GaussK / math.Sqrt(a), 0.0005}
	}
	o := cartesian(states...)
	t1 := []float64{59100, 59500}

	serial, err := New(Options{Workers: 1}).Propagate(o, []float64{59000}, t1, Options{})
	if err != nil {
		t.Fatal(err)
	}
	parallel, err := New(Options{Workers: 8}).Propagate(o, []float64{59000}, t1, Options{})
	if err != nil {
		t.Fatal(err)
	}
	for i := range serial {
		if serial[i] != parallel[i] {
			t.Fatalf("row %d differs: %v vs %v", i, serial[i], parallel[i])
		}
	}
}

func TestErrors(t *testing.T) {
	p := New(Options{})
	good := cartesian(orbit.State{1, 0, 0, 0, 0.02, 0}, orbit.State{2, 0, 0, 0, 0.01, 0})

	kep := good
	kep.Elements = orbit.Keplerian
	if _, err := p.Propagate(kep, []float64{0}, []float64{1}, Options{}); !errors.Is(err, ErrNotCartesian) {
		t.Errorf("got %v, want ErrNotCartesian", err)
	}

	if _, err := p.Propagate(good, []float64{0, 1, 2}, []float64{1}, Options{}); !errors.Is(err, ErrEpochCount) {
		t.Errorf("got %v, want ErrEpochCount", err)
	}

	_, err := p.Propagate(good, []float64{0}, []float64{0, 300}, Options{MaxIterations: 1})
	if !errors.Is(err, ErrNoConvergence) {
		t.Fatalf("got %v, want ErrNoConvergence", err)
	}
	var ce *ConvergenceError
	if !errors.As(err, &ce) || ce.OrbitID != 1 || ce.Epoch != 300 {
		t.Errorf("convergence error does not name orbit 1 at 300: %v", err)
	}
}

func TestMergeKeepsOverrides(t *testing.T) {
	got := Options{Tolerance: 1e-9}.Merge(DefaultOptions())
	if got.Tolerance != 1e-9 || got.Mu != kepler.MuSun || got.MaxIterations != 100 {
		t.Errorf("unexpected merge result %+v", got)
	}
}

func offsets(base float64, dts []float64) []float64 {
	out := make([]float64, len(dts))
	for i, dt := range dts {
		out[i] = base + dt
	}
	return out
}

func angularMomentum(s orbit.State) [3]float64 {
	return [3]float64{
		s[1]*s[5] - s[2]*s[4],
		s[2]*s[3] - s[0]*s[5],
		s[0]*s[4] - s[1]*s[3],
	}
}
