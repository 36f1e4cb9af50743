// Package config loads orbprop settings: built-in defaults, then an optional
// YAML file, then ORBPROP_* environment variables, then validation.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/orbprop/internal/ephem"
	"github.com/san-kum/orbprop/internal/kepler"
	"github.com/san-kum/orbprop/internal/origin"
	"github.com/san-kum/orbprop/internal/propagate"
	"github.com/san-kum/orbprop/internal/universal"
)

const (
	DefaultBackend       = "internal"
	DefaultTimeScale     = "UTC"
	DefaultElements      = "cartesian"
	DefaultOrigin        = "heliocenter"
	DefaultMaxIterations = 100
	DefaultTolerance     = 1e-14
	DefaultIntegrator    = "rk45"
	DefaultStep          = 1.0
	DefaultEphemTol      = 1e-12
	DefaultMinStep       = 1e-8
	DefaultStorageDir    = "runs"
	DefaultServerAddr    = ":9464"
	EnvPrefix            = "ORBPROP_"
)

// ErrInvalidConfig wraps validation failures.
var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Backend   string         `yaml:"backend" env:"BACKEND" validate:"oneof=internal external THOR PYOORB thor pyoorb"`
	TimeScale string         `yaml:"time_scale" env:"TIME_SCALE" validate:"oneof=UTC TT TDB utc tt tdb"`
	Elements  string         `yaml:"elements" env:"ELEMENTS" validate:"oneof=cartesian keplerian cometary"`
	Internal  InternalConfig `yaml:"internal" envPrefix:"INTERNAL_"`
	External  ExternalConfig `yaml:"external" envPrefix:"EXTERNAL_"`
	Log       LogConfig      `yaml:"log" envPrefix:"LOG_"`
	Storage   StorageConfig  `yaml:"storage" envPrefix:"STORAGE_"`
	Server    ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
}

type InternalConfig struct {
	Origin        string  `yaml:"origin" env:"ORIGIN" validate:"oneof=heliocenter barycenter"`
	Mu            float64 `yaml:"mu" env:"MU" validate:"gt=0"`
	MaxIterations int     `yaml:"max_iterations" env:"MAX_ITERATIONS" validate:"min=1"`
	Tolerance     float64 `yaml:"tolerance" env:"TOLERANCE" validate:"gt=0,lt=1"`
	Workers       int     `yaml:"workers" env:"WORKERS" validate:"min=0"`
}

type ExternalConfig struct {
	Integrator string  `yaml:"integrator" env:"INTEGRATOR" validate:"oneof=rk45 rk4 verlet leapfrog euler"`
	Step       float64 `yaml:"step" env:"STEP" validate:"gt=0"`
	Tolerance  float64 `yaml:"tolerance" env:"TOLERANCE" validate:"gt=0,lt=1"`
	MinStep    float64 `yaml:"min_step" env:"MIN_STEP" validate:"gt=0,ltefield=Step"`
	Mu         float64 `yaml:"mu" env:"MU" validate:"gt=0"`
	Workers    int     `yaml:"workers" env:"WORKERS" validate:"min=0"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL" validate:"oneof=trace debug info warn error disabled"`
	Format string `yaml:"format" env:"FORMAT" validate:"oneof=console json"`
}

type StorageConfig struct {
	Dir string `yaml:"dir" env:"DIR" validate:"required"`
}

// ServerConfig is the listen address of the HTTP API and /metrics.
type ServerConfig struct {
	Addr string `yaml:"addr" env:"ADDR" validate:"required,hostname_port"`
}

func DefaultConfig() *Config {
	return &Config{
		Backend:   DefaultBackend,
		TimeScale: DefaultTimeScale,
		Elements:  DefaultElements,
		Internal: InternalConfig{
			Origin:        DefaultOrigin,
			Mu:            kepler.MuSun,
			MaxIterations: DefaultMaxIterations,
			Tolerance:     DefaultTolerance,
		},
		External: ExternalConfig{
			Integrator: DefaultIntegrator,
			Step:       DefaultStep,
			Tolerance:  DefaultEphemTol,
			MinStep:    DefaultMinStep,
			Mu:         kepler.MuSun,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Storage: StorageConfig{Dir: DefaultStorageDir},
		Server:  ServerConfig{Addr: DefaultServerAddr},
	}
}

// Load reads a YAML file over the defaults. It does not apply the
// environment or validate.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Resolve builds the effective configuration. An empty path skips the file.
func Resolve(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from ORBPROP_* variables that are set.
func (c *Config) ApplyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	return nil
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// BackendValue parses the configured backend.
func (c *Config) BackendValue() (propagate.Backend, error) {
	return propagate.ParseBackend(c.Backend)
}

func (c *Config) UniversalOptions() universal.Options {
	return universal.Options{
		Mu:            c.Internal.Mu,
		MaxIterations: c.Internal.MaxIterations,
		Tolerance:     c.Internal.Tolerance,
		Workers:       c.Internal.Workers,
	}
}

func (c *Config) EphemOptions() ephem.Options {
	return ephem.Options{
		Integrator: c.External.Integrator,
		Step:       c.External.Step,
		Tolerance:  c.External.Tolerance,
		MinStep:    c.External.MinStep,
		Mu:         c.External.Mu,
		Workers:    c.External.Workers,
	}
}

// Defaults implements propagate.DefaultsProvider. Both option groups are
// filled regardless of the backend asked for.
func (c *Config) Defaults(propagate.Backend) propagate.Options {
	o, err := origin.ParseOrigin(c.Internal.Origin)
	if err != nil {
		o = origin.Unset
	}
	return propagate.Options{
		Internal: propagate.InternalOptions{
			Origin: o,
			Solver: c.UniversalOptions(),
		},
		External: c.EphemOptions(),
	}
}
