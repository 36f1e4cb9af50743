package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/orbprop/internal/automation"
	"github.com/san-kum/orbprop/internal/config"
	"github.com/san-kum/orbprop/internal/integrators"
	"github.com/san-kum/orbprop/internal/orbit"
	"github.com/san-kum/orbprop/internal/propagate"
	"github.com/san-kum/orbprop/internal/storage"
	"github.com/san-kum/orbprop/internal/timescale"
	"github.com/san-kum/orbprop/internal/viz"
)

type requestFlags struct {
	backend    string
	elements   string
	scale      string
	origin     string
	integrator string
	step       float64
	epochs     []float64
	start      float64
	stop       float64
	every      float64
}

func (f *requestFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.backend, "backend", "", "internal (THOR) or external (PYOORB)")
	fl.StringVar(&f.elements, "elements", "", "cartesian, keplerian or cometary")
	fl.StringVar(&f.scale, "scale", "", "time scale of input epochs: UTC, TT or TDB")
	fl.StringVar(&f.origin, "origin", "", "internal backend origin: heliocenter or barycenter")
	fl.StringVar(&f.integrator, "integrator", "", "external integrator: "+strings.Join(integrators.Names(), ", "))
	fl.Float64Var(&f.step, "step", 0, "external initial step in days")
	fl.Float64SliceVar(&f.epochs, "epochs", nil, "target epochs (MJD)")
	fl.Float64Var(&f.start, "start", 0, "first target epoch of a span (MJD)")
	fl.Float64Var(&f.stop, "stop", 0, "last target epoch of a span (MJD)")
	fl.Float64Var(&f.every, "every", 0, "span spacing in days")
}

// apply overlays changed flags onto a copy of the configuration.
func (f *requestFlags) apply(cmd *cobra.Command, base *config.Config) (*config.Config, error) {
	c := *base
	fl := cmd.Flags()
	if fl.Changed("backend") {
		c.Backend = f.backend
	}
	if fl.Changed("elements") {
		c.Elements = f.elements
	}
	if fl.Changed("scale") {
		c.TimeScale = f.scale
	}
	if fl.Changed("origin") {
		c.Internal.Origin = f.origin
	}
	if fl.Changed("integrator") {
		c.External.Integrator = f.integrator
	}
	if fl.Changed("step") {
		c.External.Step = f.step
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (f *requestFlags) targets() ([]float64, error) {
	out := append([]float64(nil), f.epochs...)
	if f.every != 0 {
		span, err := automation.Span{Start: f.start, Stop: f.stop, Step: f.every}.Expand()
		if err != nil {
			return nil, err
		}
		out = append(out, span...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no target epochs: use --epochs or --start/--stop/--every")
	}
	return out, nil
}

func readOrbitsArg(path string, elements orbit.ElementType) (orbit.Orbits, []float64, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return orbit.Orbits{}, nil, err
		}
		defer f.Close()
		r = f
	}
	return storage.ReadOrbits(r, elements)
}

func buildRequest(c *config.Config, orbitsPath string, targets []float64) (propagate.Request, error) {
	backend, err := c.BackendValue()
	if err != nil {
		return propagate.Request{}, err
	}
	elements, err := orbit.ParseElementType(c.Elements)
	if err != nil {
		return propagate.Request{}, err
	}
	scale, err := timescale.ParseScale(c.TimeScale)
	if err != nil {
		return propagate.Request{}, err
	}
	orbits, epochs, err := readOrbitsArg(orbitsPath, elements)
	if err != nil {
		return propagate.Request{}, err
	}
	opts := c.Defaults(backend)
	return propagate.Request{
		Orbits:  orbits,
		T0:      timescale.New(scale, epochs...),
		T1:      timescale.New(scale, targets...),
		Backend: backend,
		Options: &opts,
	}, nil
}

func writeResult(w io.Writer, res *propagate.Result, format string, limit int) error {
	switch format {
	case "csv":
		return storage.WriteCSV(w, res.Table)
	case "json":
		return storage.ExportJSON(w, res)
	case "table":
		theme := viz.GetTheme(themeName)
		fmt.Fprintln(w, viz.RenderTable(res.Table, theme, 0, limit))
		fmt.Fprint(w, viz.RenderSummary(viz.Summarize(res.Table), theme))
		return nil
	default:
		return fmt.Errorf("unknown format %q (table, csv, json)", format)
	}
}

func propagateCmd() *cobra.Command {
	var (
		rf     requestFlags
		save   string
		format string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "propagate [orbits.csv|-]",
		Short: "propagate orbits to target epochs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rf.apply(cmd, cfg)
			if err != nil {
				return err
			}
			targets, err := rf.targets()
			if err != nil {
				return err
			}
			req, err := buildRequest(c, args[0], targets)
			if err != nil {
				return err
			}

			res, err := newPropagator(c).Propagate(req)
			if err != nil {
				return err
			}

			if save != "" {
				st := openStore()
				if err := st.Init(); err != nil {
					return err
				}
				id, err := st.Save(save, res, nil)
				if err != nil {
					return err
				}
				log.Info().Str("run", id).Msg("saved")
			}
			return writeResult(os.Stdout, res, format, limit)
		},
	}
	rf.register(cmd)
	cmd.Flags().StringVar(&save, "save", "", "store the result under this label")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table, csv or json")
	cmd.Flags().IntVar(&limit, "limit", 50, "table rows to print (0 for all)")
	return cmd
}

// compareCmd runs the external engine once per integrator and measures each
// against the internal universal-variable solution.
func compareCmd() *cobra.Command {
	var (
		rf    requestFlags
		names []string
	)
	cmd := &cobra.Command{
		Use:   "compare [orbits.csv]",
		Short: "compare external integrators against the internal propagator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rf.apply(cmd, cfg)
			if err != nil {
				return err
			}
			if c.Elements != "cartesian" {
				return fmt.Errorf("compare needs cartesian orbits")
			}
			targets, err := rf.targets()
			if err != nil {
				return err
			}

			ref := *c
			ref.Backend = "internal"
			ref.Internal.Origin = "heliocenter"
			req, err := buildRequest(&ref, args[0], targets)
			if err != nil {
				return err
			}
			reference, err := newPropagator(&ref).Propagate(req)
			if err != nil {
				return fmt.Errorf("reference: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "INTEGRATOR\tMAX |dr| (AU)\tMAX |dv| (AU/d)\tTIME")
			for _, name := range names {
				run := *c
				run.Backend = "external"
				run.External.Integrator = name
				if err := run.Validate(); err != nil {
					fmt.Fprintf(w, "%s\terror: %v\t\t\n", name, err)
					continue
				}
				req, err := buildRequest(&run, args[0], targets)
				if err != nil {
					return err
				}
				start := time.Now()
				res, err := newPropagator(&run).Propagate(req)
				elapsed := time.Since(start)
				if err != nil {
					fmt.Fprintf(w, "%s\terror: %v\t\t\n", name, err)
					continue
				}
				dr, dv := maxDeviation(reference.Table, res.Table)
				fmt.Fprintf(w, "%s\t%.3e\t%.3e\t%s\n", name, dr, dv, elapsed.Round(time.Millisecond))
			}
			return w.Flush()
		},
	}
	rf.register(cmd)
	cmd.Flags().StringSliceVar(&names, "integrators", []string{"rk4", "rk45", "verlet"}, "external integrators to compare")
	return cmd
}

// maxDeviation matches rows by orbit id and epoch.
func maxDeviation(ref, got []propagate.Row) (dr, dv float64) {
	type key struct {
		id    int
		epoch float64
	}
	index := make(map[key]propagate.Row, len(ref))
	for _, r := range ref {
		index[key{r.OrbitID, r.EpochMJDTDB}] = r
	}
	for _, g := range got {
		r, ok := index[key{g.OrbitID, g.EpochMJDTDB}]
		if !ok {
			continue
		}
		d := g.State().Sub(r.State())
		dr = math.Max(dr, math.Sqrt(d[0]*d[0]+d[1]*d[1]+d[2]*d[2]))
		dv = math.Max(dv, math.Sqrt(d[3]*d[3]+d[4]*d[4]+d[5]*d[5]))
	}
	return dr, dv
}

func batchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch [scenario.yaml]",
		Short: "run a scripted scenario of propagations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := automation.LoadScenario(args[0])
			if err != nil {
				return err
			}
			st := openStore()
			if err := st.Init(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			results, err := automation.RunScenario(ctx, sc, newPropagator(cfg), cfg, st, log)
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STEP\tBACKEND\tROWS\tRUN")
			for _, r := range results {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", r.Name, r.Result.Resolved.Backend, r.Result.Len(), r.RunID)
			}
			if ferr := w.Flush(); ferr != nil && err == nil {
				err = ferr
			}
			return err
		},
	}
}

func monteCarloCmd() *cobra.Command {
	var (
		mc      automation.MonteCarloConfig
		state   []float64
		backend string
		scale   string
	)
	cmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "propagate a cloud of perturbed states and report dispersion",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := propagate.ParseBackend(backend)
			if err != nil {
				return err
			}
			s, err := timescale.ParseScale(scale)
			if err != nil {
				return err
			}
			mc.Backend, mc.Scale, mc.BaseState = b, s, orbit.State(state)
			mc.Mu = cfg.Internal.Mu

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			results, err := automation.RunMonteCarlo(ctx, mc, newPropagator(cfg), log)
			if err != nil {
				return err
			}
			bound, unbound := automation.MonteCarloStats(results)
			fmt.Printf("trials: %d  bound: %d  unbound: %d  max miss: %.3e AU\n",
				mc.NumTrials, bound, unbound, automation.MaxMiss(results))
			return nil
		},
	}
	fl := cmd.Flags()
	fl.Float64SliceVar(&state, "state", []float64{1, 0, 0, 0, 0.01720209895, 0}, "nominal cartesian state x,y,z,vx,vy,vz")
	fl.Float64Var(&mc.PositionSpread, "dr", 1e-4, "position half-width (AU)")
	fl.Float64Var(&mc.VelocitySpread, "dv", 1e-6, "velocity half-width (AU/day)")
	fl.IntVar(&mc.NumTrials, "trials", 100, "number of perturbed trials")
	fl.Float64Var(&mc.Epoch, "epoch", 60000, "state epoch (MJD)")
	fl.Float64Var(&mc.Target, "target", 60365, "target epoch (MJD)")
	fl.Int64Var(&mc.Seed, "seed", 0, "random seed (0 for time-based)")
	fl.StringVar(&backend, "backend", "internal", "backend")
	fl.StringVar(&scale, "scale", "TDB", "time scale of the epochs")
	return cmd
}
