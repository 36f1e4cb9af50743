package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/orbprop/internal/config"
	"github.com/san-kum/orbprop/internal/ephem"
	"github.com/san-kum/orbprop/internal/export"
	"github.com/san-kum/orbprop/internal/metrics"
	"github.com/san-kum/orbprop/internal/orbit"
	"github.com/san-kum/orbprop/internal/origin"
	"github.com/san-kum/orbprop/internal/propagate"
	"github.com/san-kum/orbprop/internal/server"
	"github.com/san-kum/orbprop/internal/storage"
	"github.com/san-kum/orbprop/internal/viz"
)

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := openStore().List()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no runs found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tBACKEND\tORIGIN\tSCALE\tORBITS\tROWS\tTIME")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
					run.ID,
					run.Backend,
					run.Origin,
					run.TimeScale,
					run.Orbits,
					run.Rows,
					run.Timestamp.Local().Format("2006-01-02 15:04:05"),
				)
			}
			return w.Flush()
		},
	}
}

func loadRun(runID string) (*storage.RunMetadata, []propagate.Row, error) {
	st := openStore()
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	rows, err := st.LoadRows(runID)
	if err != nil {
		return nil, nil, err
	}
	return meta, rows, nil
}

func showCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "print a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, rows, err := loadRun(args[0])
			if err != nil {
				return err
			}
			theme := viz.GetTheme(themeName)
			fmt.Printf("run: %s\nbackend: %s  origin: %s  scale: %s\n\n", meta.ID, meta.Backend, meta.Origin, meta.TimeScale)
			fmt.Println(viz.RenderTable(rows, theme, 0, limit))
			fmt.Print(viz.RenderSummary(viz.Summarize(rows), theme))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "rows to print (0 for all)")
	return cmd
}

func plotCmd() *cobra.Command {
	var orbitID, width, height int
	cmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot distance against epoch for one orbit of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, rows, err := loadRun(args[0])
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return fmt.Errorf("no data to plot")
			}
			id := orbitID
			if !cmd.Flags().Changed("orbit") {
				id = rows[0].OrbitID
			}
			graph, err := viz.DistancePlot(rows, id, width, height)
			if err != nil {
				return err
			}
			fmt.Println(graph)
			return nil
		},
	}
	cmd.Flags().IntVar(&orbitID, "orbit", 0, "orbit id (default: first in the run)")
	cmd.Flags().IntVar(&width, "width", 80, "plot width")
	cmd.Flags().IntVar(&height, "height", 12, "plot height")
	return cmd
}

// checkCmd reports two-body energy drift per orbit. Barycentric runs are
// expected to drift because the two-body energy is heliocentric.
func checkCmd() *cobra.Command {
	var threshold float64
	cmd := &cobra.Command{
		Use:   "check [run_id]",
		Short: "report two-body energy drift per orbit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, rows, err := loadRun(args[0])
			if err != nil {
				return err
			}
			ids := make([]int, len(rows))
			states := make([]orbit.State, len(rows))
			for i, r := range rows {
				ids[i], states[i] = r.OrbitID, r.State()
			}

			mu := meta.Options.External.Mu
			if meta.Backend == propagate.Internal.String() {
				mu = meta.Options.Internal.Solver.Mu
			}
			if mu == 0 {
				mu = cfg.Internal.Mu
			}

			drifts := metrics.DriftByOrbit(ids, states, &ephem.TwoBody{Mu: mu})
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ORBIT\tSAMPLES\tDRIFT\tSTATUS")
			failed := 0
			for _, d := range drifts {
				status := "ok"
				if d.Drift > threshold {
					status = "DRIFT"
					failed++
				}
				fmt.Fprintf(w, "%d\t%d\t%.3e\t%s\n", d.OrbitID, d.Samples, d.Drift, status)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d orbits exceed drift %.1e", failed, len(drifts), threshold)
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&threshold, "threshold", 1e-8, "maximum acceptable relative energy drift")
	return cmd
}

func exportCSVCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "write a stored run as CSV to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, rows, err := loadRun(args[0])
			if err != nil {
				return err
			}
			return storage.WriteCSV(os.Stdout, rows)
		},
	}
}

func exportJSONCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "write a stored run with its configuration as JSON to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, rows, err := loadRun(args[0])
			if err != nil {
				return err
			}
			backend, err := propagate.ParseBackend(meta.Backend)
			if err != nil {
				return err
			}
			res := &propagate.Result{
				Table: rows,
				Resolved: propagate.Resolved{
					Backend:   backend,
					TimeScale: meta.TimeScale,
					Options:   meta.Options,
				},
			}
			if backend == propagate.Internal {
				res.Resolved.Origin = meta.Options.Internal.Origin
			}
			return storage.ExportJSON(os.Stdout, res)
		},
	}
}

func exportSVGCmd() *cobra.Command {
	var (
		out        string
		size       int
		rotX, rotY float64
	)
	cmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "draw the orbit tracks of a stored run as SVG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, rows, err := loadRun(args[0])
			if err != nil {
				return err
			}
			view := viz.NewView()
			view.RotateX(rotX)
			view.RotateY(rotY)

			w := os.Stdout
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return export.TracksToSVG(w, rows, export.SVGOptions{
				Size:  size,
				View:  view,
				Theme: viz.GetTheme(themeName),
			})
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	cmd.Flags().IntVar(&size, "size", 800, "image side in pixels")
	cmd.Flags().Float64Var(&rotX, "rot-x", 0, "rotation about x in radians")
	cmd.Flags().Float64Var(&rotY, "rot-y", 0, "rotation about y in radians")
	return cmd
}

func browseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "browse stored runs interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			return viz.RunBrowser(openStore(), viz.GetTheme(themeName))
		},
	}
}

func presetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets [name]",
		Short: "list configuration presets, or print one as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				preset := config.GetPreset(args[0])
				if preset == nil {
					return fmt.Errorf("unknown preset %q (available: %v)", args[0], config.ListPresets())
				}
				return writeYAML(os.Stdout, preset)
			}
			for _, name := range config.ListPresets() {
				fmt.Printf("  %-12s %s\n", name, config.Presets[name].Description)
			}
			return nil
		},
	}
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// bodiesCmd prints heliocentric planet states and the Sun's barycentric
// state from the model the barycentric origin shift uses.
func bodiesCmd() *cobra.Command {
	var epoch float64
	cmd := &cobra.Command{
		Use:   "bodies",
		Short: "print planet and Sun states at a TDB epoch",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := origin.NewPlanetary()
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "BODY\tFRAME\tX\tY\tZ\tVX\tVY\tVZ\n")
			row := func(name, frame string, s orbit.State) {
				fmt.Fprintf(w, "%s\t%s\t% .9f\t% .9f\t% .9f\t% .3e\t% .3e\t% .3e\n",
					name, frame, s[0], s[1], s[2], s[3], s[4], s[5])
			}
			for _, name := range origin.PlanetNames() {
				s, err := p.Planet(name, epoch)
				if err != nil {
					return err
				}
				row(name, "helio", s)
			}
			sun, err := p.SunState(epoch)
			if err != nil {
				return err
			}
			row("sun", "bary", sun)
			return w.Flush()
		},
	}
	cmd.Flags().Float64Var(&epoch, "epoch", 51544.5, "epoch (MJD TDB)")
	return cmd
}

func configCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			if out != "" {
				return config.Save(out, cfg)
			}
			return writeYAML(os.Stdout, cfg)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write to a file instead of stdout")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "serve propagation and Prometheus metrics over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := *cfg
			if addr != "" {
				c.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.New(newPropagator(&c), &c, log).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
