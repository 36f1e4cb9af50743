package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/san-kum/orbprop/internal/config"
	"github.com/san-kum/orbprop/internal/ephem"
	"github.com/san-kum/orbprop/internal/logger"
	"github.com/san-kum/orbprop/internal/origin"
	"github.com/san-kum/orbprop/internal/propagate"
	"github.com/san-kum/orbprop/internal/storage"
	"github.com/san-kum/orbprop/internal/universal"
	"github.com/san-kum/orbprop/internal/viz"
)

var (
	configFile string
	presetName string
	dataDir    string
	logLevel   string
	themeName  string

	cfg *config.Config
	log zerolog.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "orbprop",
		Short:         "orbit propagation with selectable backends",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return viz.RunBrowser(openStore(), viz.GetTheme(themeName))
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&presetName, "preset", "", "apply a named preset over the config")
	pf.StringVar(&dataDir, "data", "", "run storage directory (overrides config)")
	pf.StringVar(&logLevel, "log-level", "", "log level (overrides config)")
	pf.StringVar(&themeName, "theme", "deepspace", "color theme: "+fmt.Sprint(viz.ThemeNames()))

	rootCmd.AddCommand(
		propagateCmd(),
		compareCmd(),
		batchCmd(),
		monteCarloCmd(),
		listCmd(),
		showCmd(),
		plotCmd(),
		checkCmd(),
		exportCSVCmd(),
		exportJSONCmd(),
		exportSVGCmd(),
		browseCmd(),
		bodiesCmd(),
		presetsCmd(),
		configCmd(),
		serveCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup resolves the configuration in order defaults, file, environment,
// preset, flags and then builds the root logger.
func setup(cmd *cobra.Command) error {
	c, err := config.Resolve(configFile)
	if err != nil {
		return err
	}
	if presetName != "" {
		if err := c.ApplyPreset(presetName); err != nil {
			return fmt.Errorf("%w (available: %v)", err, config.ListPresets())
		}
	}
	if dataDir != "" {
		c.Storage.Dir = dataDir
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c

	logger.Init(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Service: "orbprop"})
	log = logger.Named(cmd.Name())
	return nil
}

func openStore() *storage.Store {
	return storage.New(cfg.Storage.Dir, log)
}

func newPropagator(c *config.Config) *propagate.Propagator {
	return propagate.New(
		universal.New(c.UniversalOptions()),
		ephem.New(c.EphemOptions(), log),
		origin.NewPlanetary(),
		c,
		log,
	)
}
