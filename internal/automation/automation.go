// Package automation runs scripted propagation scenarios and Monte Carlo
// dispersion studies on top of a propagator.
package automation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/orbprop/internal/config"
	"github.com/san-kum/orbprop/internal/kepler"
	"github.com/san-kum/orbprop/internal/orbit"
	"github.com/san-kum/orbprop/internal/origin"
	"github.com/san-kum/orbprop/internal/propagate"
	"github.com/san-kum/orbprop/internal/storage"
	"github.com/san-kum/orbprop/internal/timescale"
)

var ErrInvalidScenario = errors.New("automation: invalid scenario")

// Runner is satisfied by *propagate.Propagator.
type Runner interface {
	Propagate(req propagate.Request) (*propagate.Result, error)
}

// Saver is satisfied by *storage.Store.
type Saver interface {
	Save(label string, res *propagate.Result, metrics map[string]float64) (string, error)
}

// Scenario is a named sequence of propagation requests.
type Scenario struct {
	Name        string         `yaml:"name" json:"name,omitempty"`
	Description string         `yaml:"description" json:"description,omitempty"`
	Steps       []ScenarioStep `yaml:"steps" json:"steps,omitempty"`

	dir string
}

type ScenarioStep struct {
	Name      string `yaml:"name" json:"name,omitempty"`
	Backend   string `yaml:"backend" json:"backend,omitempty"`
	Elements  string `yaml:"elements" json:"elements,omitempty"`
	TimeScale string `yaml:"time_scale" json:"time_scale,omitempty"`
	Origin    string `yaml:"origin" json:"origin,omitempty"`
	Preset    string `yaml:"preset" json:"preset,omitempty"`

	Orbits []OrbitSpec `yaml:"orbits" json:"orbits,omitempty"`
	// OrbitsFile is a CSV in storage.OrbitColumns layout, relative to the scenario file.
	OrbitsFile string `yaml:"orbits_file" json:"orbits_file,omitempty"`

	Epochs []float64 `yaml:"epochs" json:"epochs,omitempty"`
	Span   *Span     `yaml:"span" json:"span,omitempty"`
	SaveAs string    `yaml:"save_as" json:"save_as,omitempty"`
}

type OrbitSpec struct {
	ID    int       `yaml:"id" json:"id,omitempty"`
	Epoch float64   `yaml:"epoch" json:"epoch,omitempty"`
	State []float64 `yaml:"state" json:"state,omitempty"`
}

// Span expands to Start, Start+Step, ... up to and including Stop.
type Span struct {
	Start float64 `yaml:"start" json:"start,omitempty"`
	Stop  float64 `yaml:"stop" json:"stop,omitempty"`
	Step  float64 `yaml:"step" json:"step,omitempty"`
}

func (s Span) Expand() ([]float64, error) {
	if s.Step == 0 || (s.Stop-s.Start)*s.Step < 0 {
		return nil, fmt.Errorf("%w: span %v..%v by %v never terminates", ErrInvalidScenario, s.Start, s.Stop, s.Step)
	}
	n := int(math.Floor((s.Stop-s.Start)/s.Step+1e-9)) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = s.Start + float64(i)*s.Step
	}
	return out, nil
}

type StepResult struct {
	Name   string
	RunID  string
	Result *propagate.Result
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("%w: %s has no steps", ErrInvalidScenario, path)
	}
	scenario.dir = filepath.Dir(path)
	return &scenario, nil
}

// RunScenario executes the steps in order and stops at the first failure,
// returning the results gathered so far. A nil saver skips persistence.
func RunScenario(ctx context.Context, scenario *Scenario, runner Runner, cfg *config.Config, saver Saver, log zerolog.Logger) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step%d", i+1)
		}
		log.Info().Str("scenario", scenario.Name).Str("step", name).
			Msgf("running step %d/%d", i+1, len(scenario.Steps))

		req, err := step.Request(scenario.dir, cfg)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		res, err := runner.Propagate(req)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		sr := StepResult{Name: name, Result: res}
		if saver != nil && step.SaveAs != "" {
			sr.RunID, err = saver.Save(step.SaveAs, res, nil)
			if err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
		}
		results = append(results, sr)
	}

	return results, nil
}

// Request builds a propagation request from the step over base. Relative
// orbit files resolve against dir.
func (s ScenarioStep) Request(dir string, base *config.Config) (propagate.Request, error) {
	cfg := *base
	if s.Preset != "" {
		if err := cfg.ApplyPreset(s.Preset); err != nil {
			return propagate.Request{}, err
		}
	}
	if s.Backend != "" {
		cfg.Backend = s.Backend
	}
	if s.Elements != "" {
		cfg.Elements = s.Elements
	}
	if s.TimeScale != "" {
		cfg.TimeScale = s.TimeScale
	}
	if s.Origin != "" {
		cfg.Internal.Origin = s.Origin
	}

	backend, err := cfg.BackendValue()
	if err != nil {
		return propagate.Request{}, err
	}
	elements, err := orbit.ParseElementType(cfg.Elements)
	if err != nil {
		return propagate.Request{}, err
	}
	scale, err := timescale.ParseScale(cfg.TimeScale)
	if err != nil {
		return propagate.Request{}, err
	}
	if _, err := origin.ParseOrigin(cfg.Internal.Origin); err != nil {
		return propagate.Request{}, err
	}

	orbits, epochs, err := s.orbits(dir, elements)
	if err != nil {
		return propagate.Request{}, err
	}

	targets := s.Epochs
	if s.Span != nil {
		spanned, err := s.Span.Expand()
		if err != nil {
			return propagate.Request{}, err
		}
		targets = append(append([]float64(nil), targets...), spanned...)
	}
	if len(targets) == 0 {
		return propagate.Request{}, fmt.Errorf("%w: no target epochs", ErrInvalidScenario)
	}

	opts := cfg.Defaults(backend)
	return propagate.Request{
		Orbits:  orbits,
		T0:      timescale.New(scale, epochs...),
		T1:      timescale.New(scale, targets...),
		Backend: backend,
		Options: &opts,
	}, nil
}

func (s ScenarioStep) orbits(dir string, elements orbit.ElementType) (orbit.Orbits, []float64, error) {
	if s.OrbitsFile != "" {
		path := s.OrbitsFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		f, err := os.Open(path)
		if err != nil {
			return orbit.Orbits{}, nil, err
		}
		defer f.Close()
		return storage.ReadOrbits(f, elements)
	}
	if len(s.Orbits) == 0 {
		return orbit.Orbits{}, nil, fmt.Errorf("%w: no orbits", ErrInvalidScenario)
	}
	orbits := orbit.Orbits{Elements: elements}
	epochs := make([]float64, 0, len(s.Orbits))
	for _, o := range s.Orbits {
		orbits.IDs = append(orbits.IDs, o.ID)
		orbits.States = append(orbits.States, orbit.State(o.State).Clone())
		epochs = append(epochs, o.Epoch)
	}
	return orbits, epochs, nil
}

// MonteCarloConfig describes a cloud of cartesian states scattered
// uniformly around BaseState and propagated together.
type MonteCarloConfig struct {
	Backend   propagate.Backend
	BaseState orbit.State
	// PositionSpread (AU) and VelocitySpread (AU/day) are half-widths.
	PositionSpread float64
	VelocitySpread float64
	NumTrials      int
	Epoch          float64
	Target         float64
	Scale          timescale.Scale
	Seed           int64
	Mu             float64
}

type MonteCarloResult struct {
	TrialID    int
	InitState  orbit.State
	FinalState orbit.State
	// Bound reports negative two-body energy at the target epoch.
	Bound bool
	// Miss is the distance (AU) from the unperturbed trajectory at the target.
	Miss float64
}

// RunMonteCarlo propagates the nominal state as trial 0 and NumTrials
// perturbed clones as trials 1..NumTrials in a single request.
func RunMonteCarlo(ctx context.Context, cfg MonteCarloConfig, runner Runner, log zerolog.Logger) ([]MonteCarloResult, error) {
	if cfg.NumTrials < 1 {
		return nil, fmt.Errorf("%w: need at least one trial", ErrInvalidScenario)
	}
	if len(cfg.BaseState) != orbit.StateDim {
		return nil, fmt.Errorf("%w: base state has %d components", ErrInvalidScenario, len(cfg.BaseState))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mu := cfg.Mu
	if mu == 0 {
		mu = kepler.MuSun
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	if cfg.Seed == 0 {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	n := cfg.NumTrials + 1
	orbits := orbit.Orbits{
		IDs:      make([]int, n),
		States:   make([]orbit.State, n),
		Elements: orbit.Cartesian,
	}
	for trial := 0; trial < n; trial++ {
		s := cfg.BaseState.Clone()
		if trial > 0 {
			for i := 0; i < 3; i++ {
				s[i] += (rng.Float64() - 0.5) * 2 * cfg.PositionSpread
				s[i+3] += (rng.Float64() - 0.5) * 2 * cfg.VelocitySpread
			}
		}
		orbits.IDs[trial] = trial
		orbits.States[trial] = s
	}

	res, err := runner.Propagate(propagate.Request{
		Orbits:  orbits,
		T0:      timescale.New(cfg.Scale, cfg.Epoch),
		T1:      timescale.New(cfg.Scale, cfg.Target),
		Backend: cfg.Backend,
	})
	if err != nil {
		return nil, err
	}
	if res.Len() != n {
		return nil, fmt.Errorf("automation: expected %d rows, got %d", n, res.Len())
	}

	final := make(map[int]orbit.State, n)
	for _, row := range res.Table {
		final[row.OrbitID] = row.State()
	}
	nominal := final[0]

	results := make([]MonteCarloResult, 0, n)
	for trial := 0; trial < n; trial++ {
		f := final[trial]
		d := f.Sub(nominal)
		results = append(results, MonteCarloResult{
			TrialID:    trial,
			InitState:  orbits.States[trial],
			FinalState: f,
			Bound:      kepler.SpecificEnergy(f, mu) < 0,
			Miss:       math.Sqrt(d[0]*d[0] + d[1]*d[1] + d[2]*d[2]),
		})
	}

	bound, unbound := MonteCarloStats(results)
	log.Info().Int("trials", cfg.NumTrials).Int("bound", bound).Int("unbound", unbound).
		Float64("max_miss_au", MaxMiss(results)).Msg("monte carlo complete")
	return results, nil
}

func MonteCarloStats(results []MonteCarloResult) (bound int, unbound int) {
	for _, r := range results {
		if r.Bound {
			bound++
		} else {
			unbound++
		}
	}
	return
}

func MaxMiss(results []MonteCarloResult) float64 {
	var m float64
	for _, r := range results {
		m = math.Max(m, r.Miss)
	}
	return m
}
