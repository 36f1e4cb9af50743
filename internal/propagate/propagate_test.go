package propagate_test

import (
	"bytes"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"

	"github.com/san-kum/orbprop/internal/ephem"
	"github.com/san-kum/orbprop/internal/kepler"
	"github.com/san-kum/orbprop/internal/orbit"
	"github.com/san-kum/orbprop/internal/origin"
	"github.com/san-kum/orbprop/internal/propagate"
	"github.com/san-kum/orbprop/internal/timescale"
	"github.com/san-kum/orbprop/internal/universal"
)

var errBoom = errors.New("backend exploded")

type failingInternal struct{}

func (failingInternal) Propagate(orbit.Orbits, []float64, []float64, universal.Options) ([][8]float64, error) {
	return nil, errBoom
}

type failingExternal struct{}

func (failingExternal) Propagate(orbit.Orbits, []float64, []float64, ephem.TimeScale, ephem.Options) (*ephem.Table, error) {
	return nil, errBoom
}

type recordingExternal struct {
	inner  propagate.ExternalBackend
	scale  ephem.TimeScale
	t1     []float64
	called bool
}

func (r *recordingExternal) Propagate(o orbit.Orbits, t0, t1 []float64, scale ephem.TimeScale, opts ephem.Options) (*ephem.Table, error) {
	r.called = true
	r.scale = scale
	r.t1 = append([]float64(nil), t1...)
	return r.inner.Propagate(o, t0, t1, scale, opts)
}

type countingShifter struct {
	inner origin.Shifter
	calls int
}

func (c *countingShifter) Shift(states []orbit.State, epochs timescale.Times, in, out origin.Origin) ([]orbit.State, error) {
	c.calls++
	return c.inner.Shift(states, epochs, in, out)
}

type failingShifter struct{}

func (failingShifter) Shift([]orbit.State, timescale.Times, origin.Origin, origin.Origin) ([]orbit.State, error) {
	return nil, errBoom
}

type recordingDefaults struct {
	asked []propagate.Backend
}

func (r *recordingDefaults) Defaults(b propagate.Backend) propagate.Options {
	r.asked = append(r.asked, b)
	opts := propagate.DefaultOptions()
	opts.Internal.Origin = origin.Barycenter
	return opts
}

func sampleOrbits() orbit.Orbits {
	earthLike, _ := kepler.Elliptic(1.0, 0.0167, kepler.Deg(0.001), 0, kepler.Deg(102.9), 1.0, kepler.MuSun)
	asteroid, _ := kepler.Elliptic(2.77, 0.0785, kepler.Deg(10.6), kepler.Deg(80.3), kepler.Deg(73.6), 2.1, kepler.MuSun)
	comet, _ := kepler.Elliptic(17.8, 0.967, kepler.Deg(162.3), kepler.Deg(58.4), kepler.Deg(111.3), 0.01, kepler.MuSun)
	return orbit.Orbits{
		IDs:      []int{101, 202, 303},
		States:   []orbit.State{earthLike, asteroid, comet},
		Elements: orbit.Cartesian,
	}
}

func withOrigin(o origin.Origin) *propagate.Options {
	opts := propagate.DefaultOptions()
	opts.Internal.Origin = o
	return &opts
}

func states(res *propagate.Result) [][]float64 {
	out := make([][]float64, res.Len())
	for i, s := range res.States() {
		out[i] = s
	}
	return out
}

var _ = Describe("Propagator", func() {
	var (
		uni      *universal.Propagator
		external *recordingExternal
		shifter  *countingShifter
		defaults *recordingDefaults
		p        *propagate.Propagator
		orbits   orbit.Orbits
		t0, t1   timescale.Times
	)

	BeforeEach(func() {
		uni = universal.New(universal.Options{})
		external = &recordingExternal{inner: ephem.New(ephem.Options{}, zerolog.Nop())}
		shifter = &countingShifter{inner: origin.NewPlanetary()}
		defaults = &recordingDefaults{}
		p = propagate.New(uni, external, shifter, defaults, zerolog.Nop())

		orbits = sampleOrbits()
		t0 = timescale.New(timescale.UTC, 59000.0)
		t1 = timescale.New(timescale.UTC, 59010.0, 59000.5, 58950.25, 59100.0)
	})

	DescribeTable("canonical table shape",
		func(backend propagate.Backend) {
			res, err := p.Propagate(propagate.Request{Orbits: orbits, T0: t0, T1: t1, Backend: backend, Options: withOrigin(origin.Heliocenter)})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Table).To(HaveLen(orbits.Len() * t1.Len()))

			tdb, err := timescale.ForInternal(t1)
			Expect(err).NotTo(HaveOccurred())
			for i, row := range res.Table {
				Expect(row.OrbitID).To(Equal(orbits.IDs[i/t1.Len()]))
				Expect(row.EpochMJDTDB).To(BeNumerically("~", tdb[i%t1.Len()], 1e-12))
			}
		},
		Entry("internal", propagate.Internal),
		Entry("external", propagate.External),
	)

	Context("with the internal backend", func() {
		It("matches a direct backend call for heliocentric orbits", func() {
			res, err := p.Propagate(propagate.Request{Orbits: orbits, T0: t0, T1: t1, Backend: propagate.Internal, Options: withOrigin(origin.Heliocenter)})
			Expect(err).NotTo(HaveOccurred())

			t0TDB, _ := timescale.ForInternal(t0)
			t1TDB, _ := timescale.ForInternal(t1)
			direct, err := uni.Propagate(orbits, t0TDB, t1TDB, universal.Options{})
			Expect(err).NotTo(HaveOccurred())

			for i, row := range res.Table {
				Expect(row.Values()).To(Equal(direct[i]))
			}
			Expect(shifter.calls).To(BeZero())
		})

		It("returns heliocentric states after a barycentric propagation", func() {
			same := timescale.New(timescale.UTC, 59000.0)
			res, err := p.Propagate(propagate.Request{Orbits: orbits, T0: t0, T1: same, Backend: propagate.Internal, Options: withOrigin(origin.Barycenter)})
			Expect(err).NotTo(HaveOccurred())
			Expect(shifter.calls).To(Equal(2))

			for i, s := range states(res) {
				for k := range s {
					Expect(s[k]).To(BeNumerically("~", orbits.States[i][k], 1e-14))
				}
			}
		})

		It("stays close to the heliocentric answer over short spans", func() {
			short := timescale.New(timescale.UTC, 59005.0)
			helio, err := p.Propagate(propagate.Request{Orbits: orbits, T0: t0, T1: short, Backend: propagate.Internal, Options: withOrigin(origin.Heliocenter)})
			Expect(err).NotTo(HaveOccurred())
			bary, err := p.Propagate(propagate.Request{Orbits: orbits, T0: t0, T1: short, Backend: propagate.Internal, Options: withOrigin(origin.Barycenter)})
			Expect(err).NotTo(HaveOccurred())

			for i := range helio.Table {
				d := helio.Table[i].State().Sub(bary.Table[i].State()).Position()
				Expect(orbit.State(d[:]).Norm()).To(BeNumerically("<", 1e-3))
			}
		})

		It("leaves the caller's options untouched and echoes the origin", func() {
			opts := withOrigin(origin.Barycenter)
			before := *opts

			res, err := p.Propagate(propagate.Request{Orbits: orbits, T0: t0, T1: t1, Backend: propagate.Internal, Options: opts})
			Expect(err).NotTo(HaveOccurred())
			Expect(*opts).To(Equal(before))
			Expect(res.Resolved.Origin).To(Equal(origin.Barycenter))
			Expect(res.Resolved.Backend).To(Equal(propagate.Internal))
			Expect(res.Resolved.TimeScale).To(Equal("TDB"))
		})

		It("rejects a missing origin", func() {
			opts := propagate.DefaultOptions()
			opts.Internal.Origin = origin.Unset

			res, err := p.Propagate(propagate.Request{Orbits: orbits, T0: t0, T1: t1, Backend: propagate.Internal, Options: &opts})
			Expect(err).To(MatchError(propagate.ErrInvalidConfiguration))
			Expect(res).To(BeNil())
		})

		It("rejects an origin outside the known set", func() {
			opts := propagate.DefaultOptions()
			opts.Internal.Origin = origin.Origin(9)

			res, err := p.Propagate(propagate.Request{Orbits: orbits, T0: t0, T1: t1, Backend: propagate.Internal, Options: &opts})
			Expect(err).To(MatchError(propagate.ErrInvalidConfiguration))
			Expect(res).To(BeNil())
			Expect(shifter.calls).To(BeZero())
		})

		It("rejects non-cartesian states", func() {
			kep := orbit.Orbits{IDs: []int{1}, States: []orbit.State{{2.5, 0.1, 5, 30, 40, 50}}, Elements: orbit.Keplerian}
			_, err := p.Propagate(propagate.Request{Orbits: kep, T0: t0, T1: t1, Backend: propagate.Internal, Options: withOrigin(origin.Heliocenter)})
			Expect(err).To(MatchError(propagate.ErrInvalidConfiguration))
		})

		It("returns backend errors unchanged", func() {
			p = propagate.New(failingInternal{}, external, shifter, defaults, zerolog.Nop())
			res, err := p.Propagate(propagate.Request{Orbits: orbits, T0: t0, T1: t1, Backend: propagate.Internal, Options: withOrigin(origin.Heliocenter)})
			Expect(err).To(BeIdenticalTo(errBoom))
			Expect(res).To(BeNil())
		})

		It("returns shifter errors unchanged", func() {
			p = propagate.New(uni, external, failingShifter{}, defaults, zerolog.Nop())
			_, err := p.Propagate(propagate.Request{Orbits: orbits, T0: t0, T1: t1, Backend: propagate.Internal, Options: withOrigin(origin.Barycenter)})
			Expect(err).To(BeIdenticalTo(errBoom))
		})

		It("produces two TDB rows for one orbit and two epochs", func() {
			one := orbit.Orbits{IDs: []int{1}, States: orbits.States[:1], Elements: orbit.Cartesian}
			a := timescale.New(timescale.TT, 59000.0)
			bc := timescale.New(timescale.UTC, 59001.0, 59002.0)

			res, err := p.Propagate(propagate.Request{Orbits: one, T0: a, T1: bc, Backend: propagate.Internal, Options: withOrigin(origin.Heliocenter)})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Table).To(HaveLen(2))

			tdb, _ := timescale.ToTDB(bc)
			Expect(res.Table[0].OrbitID).To(Equal(1))
			Expect(res.Table[1].OrbitID).To(Equal(1))
			Expect(res.Table[0].EpochMJDTDB).To(Equal(tdb.Values[0]))
			Expect(res.Table[1].EpochMJDTDB).To(Equal(tdb.Values[1]))
		})
	})

	Context("with the external backend", func() {
		It("hands the engine TT-labelled corrected epochs and never shifts", func() {
			_, err := p.Propagate(propagate.Request{Orbits: orbits, T0: t0, T1: t1, Backend: propagate.External, Options: withOrigin(origin.Barycenter)})
			Expect(err).NotTo(HaveOccurred())
			Expect(external.called).To(BeTrue())
			Expect(external.scale).To(Equal(ephem.TT))
			Expect(shifter.calls).To(BeZero())

			corrected, _, _ := timescale.ForExternal(t1)
			Expect(external.t1).To(Equal(corrected))
		})

		It("returns backend errors unchanged", func() {
			p = propagate.New(uni, failingExternal{}, shifter, defaults, zerolog.Nop())
			res, err := p.Propagate(propagate.Request{Orbits: orbits, T0: t0, T1: t1, Backend: propagate.External, Options: withOrigin(origin.Heliocenter)})
			Expect(err).To(BeIdenticalTo(errBoom))
			Expect(res).To(BeNil())
		})

		It("logs the TDB-TT offset applied to the epochs", func() {
			var buf bytes.Buffer
			log := zerolog.New(&buf).Level(zerolog.DebugLevel)
			p = propagate.New(uni, external, shifter, defaults, log)

			_, err := p.Propagate(propagate.Request{Orbits: orbits, T0: t0, T1: t1, Backend: propagate.External, Options: withOrigin(origin.Heliocenter)})
			Expect(err).NotTo(HaveOccurred())

			var found bool
			for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
				var entry map[string]any
				Expect(json.Unmarshal(line, &entry)).To(Succeed())
				offset, ok := entry["t1_max_tdb_tt_s"].(float64)
				if !ok {
					continue
				}
				found = true
				Expect(offset).To(BeNumerically(">", 0))
				Expect(offset).To(BeNumerically("<", 0.002))
				Expect(entry).To(HaveKey("t0_max_tdb_tt_s"))
			}
			Expect(found).To(BeTrue())
		})

		It("accepts Keplerian input and reports no origin", func() {
			kep := orbit.Orbits{IDs: []int{5, 6}, States: []orbit.State{{2.5, 0.1, 5, 30, 40, 50}, {1.2, 0.3, 1, 10, 20, 30}}, Elements: orbit.Keplerian}
			res, err := p.Propagate(propagate.Request{Orbits: kep, T0: t0, T1: t1, Backend: propagate.External, Options: withOrigin(origin.Heliocenter)})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Table).To(HaveLen(8))
			Expect(res.Resolved.Origin).To(Equal(origin.Unset))
			Expect(res.Resolved.TimeScale).To(Equal("TT"))
		})

		It("agrees with the internal backend for cartesian orbits", func() {
			internal, err := p.Propagate(propagate.Request{Orbits: orbits, T0: t0, T1: t1, Backend: propagate.Internal, Options: withOrigin(origin.Heliocenter)})
			Expect(err).NotTo(HaveOccurred())
			ext, err := p.Propagate(propagate.Request{Orbits: orbits, T0: t0, T1: t1, Backend: propagate.External, Options: withOrigin(origin.Heliocenter)})
			Expect(err).NotTo(HaveOccurred())

			for i := range internal.Table {
				d := internal.Table[i].State().Sub(ext.Table[i].State()).Position()
				Expect(orbit.State(d[:]).Norm()).To(BeNumerically("<", 1e-7))
			}
		})
	})

	Context("validation", func() {
		It("rejects unknown backends", func() {
			_, err := propagate.ParseBackend("BOGUS")
			Expect(err).To(MatchError(propagate.ErrUnsupportedBackend))

			res, err := p.Propagate(propagate.Request{Orbits: orbits, T0: t0, T1: t1, Backend: propagate.Backend(42)})
			Expect(err).To(MatchError(propagate.ErrUnsupportedBackend))
			Expect(res).To(BeNil())
		})

		It("parses backend aliases", func() {
			for in, want := range map[string]propagate.Backend{
				"internal": propagate.Internal, "THOR": propagate.Internal,
				"External": propagate.External, "pyoorb": propagate.External,
			} {
				got, err := propagate.ParseBackend(in)
				Expect(err).NotTo(HaveOccurred())
				Expect(got).To(Equal(want))
			}
		})

		It("rejects malformed times", func() {
			bad := timescale.New(timescale.UTC, 40000.0)
			_, err := p.Propagate(propagate.Request{Orbits: orbits, T0: bad, T1: t1, Backend: propagate.Internal})
			Expect(err).To(MatchError(propagate.ErrInvalidTimeInput))
			Expect(errors.Is(err, timescale.ErrInvalidTimeInput)).To(BeTrue())

			_, err = p.Propagate(propagate.Request{Orbits: orbits, T0: t0, T1: timescale.New(timescale.TDB), Backend: propagate.Internal})
			Expect(err).To(MatchError(propagate.ErrInvalidTimeInput))
		})

		It("rejects a t0 count that does not match the batch", func() {
			two := timescale.New(timescale.TDB, 59000.0, 59001.0)
			_, err := p.Propagate(propagate.Request{Orbits: orbits, T0: two, T1: t1, Backend: propagate.Internal})
			Expect(err).To(MatchError(propagate.ErrInvalidTimeInput))
		})

		It("rejects malformed orbits", func() {
			bad := orbits.Clone()
			bad.IDs[2] = bad.IDs[0]
			_, err := p.Propagate(propagate.Request{Orbits: bad, T0: t0, T1: t1, Backend: propagate.Internal})
			Expect(err).To(MatchError(propagate.ErrInvalidOrbits))
			Expect(errors.Is(err, orbit.ErrDuplicateID)).To(BeTrue())
		})
	})

	Context("defaults", func() {
		It("asks the provider once when a request has no options", func() {
			res, err := p.Propagate(propagate.Request{Orbits: orbits, T0: t0, T1: t1, Backend: propagate.Internal})
			Expect(err).NotTo(HaveOccurred())
			Expect(defaults.asked).To(Equal([]propagate.Backend{propagate.Internal}))
			Expect(res.Resolved.Origin).To(Equal(origin.Barycenter))
		})

		It("falls back to built-in defaults without a provider", func() {
			p = propagate.New(uni, external, shifter, nil, zerolog.Nop())
			res, err := p.Propagate(propagate.Request{Orbits: orbits, T0: t0, T1: t1, Backend: propagate.Internal})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Resolved.Origin).To(Equal(origin.Heliocenter))
		})
	})
})
