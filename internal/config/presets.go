package config

import (
	"fmt"
	"sort"
)

type Preset struct {
	Description string
	apply       func(*Config)
}

var Presets = map[string]Preset{
	"fast": {
		Description: "loose tolerances, RK4 with 2-day steps",
		apply: func(c *Config) {
			c.Internal.Tolerance = 1e-10
			c.Internal.MaxIterations = 50
			c.External.Integrator = "rk4"
			c.External.Step = 2.0
		},
	},
	"precise": {
		Description: "tight tolerances, adaptive RK45 with small initial steps",
		apply: func(c *Config) {
			c.Internal.Tolerance = 1e-15
			c.Internal.MaxIterations = 200
			c.External.Integrator = "rk45"
			c.External.Step = 0.25
			c.External.Tolerance = 1e-13
			c.External.MinStep = 1e-10
		},
	},
	"barycentric": {
		Description: "internal backend propagating about the solar-system barycenter",
		apply: func(c *Config) {
			c.Backend = "internal"
			c.Internal.Origin = "barycenter"
		},
	},
	"comet": {
		Description: "external backend, cometary elements, symplectic stepping",
		apply: func(c *Config) {
			c.Backend = "external"
			c.Elements = "cometary"
			c.External.Integrator = "verlet"
			c.External.Step = 0.1
		},
	},
}

// GetPreset returns the defaults with the named preset applied, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	p.apply(cfg)
	return cfg
}

// ApplyPreset overlays a preset onto cfg.
func (c *Config) ApplyPreset(name string) error {
	p, ok := Presets[name]
	if !ok {
		return fmt.Errorf("%w: unknown preset %q", ErrInvalidConfig, name)
	}
	p.apply(c)
	return nil
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
