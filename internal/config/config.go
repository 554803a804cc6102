package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/gcfg.v1"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/gravsim/internal/compute"
	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/scheme"
)

const (
	DefaultBodies     = 1000
	DefaultScheme     = "galaxy"
	DefaultSeed       = 1
	DefaultIterations = 100
	DefaultBackend    = string(compute.Pool)
	DefaultBatch      = 2
	DefaultSchedule   = string(compute.Static)

	// AutoBackend picks a CUDA device when one is present and the worker
	// pool otherwise.
	AutoBackend = "auto"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Bodies        int           `yaml:"bodies" json:"bodies"`
	Scheme        string        `yaml:"scheme" json:"scheme"`
	Seed          uint64        `yaml:"seed" json:"seed"`
	Iterations    int           `yaml:"iterations" json:"iterations"`
	Backend       string        `yaml:"backend" json:"backend"`
	Workers       int           `yaml:"workers" json:"workers"`
	Batch         int           `yaml:"batch" json:"batch"`
	Schedule      string        `yaml:"schedule" json:"schedule"`
	ValidateState bool          `yaml:"validate_state" json:"validate_state"`
	TrackEnergy   bool          `yaml:"track_energy" json:"track_energy"`
	Physics       PhysicsConfig `yaml:"physics" json:"physics"`
}

type PhysicsConfig struct {
	G         float64 `yaml:"g" json:"g"`
	Softening float64 `yaml:"softening" json:"softening"`
	Dt        float64 `yaml:"dt" json:"dt"`
	Theta     float64 `yaml:"theta" json:"theta"`
}

func DefaultConfig() *Config {
	p := dynamo.DefaultParams()
	return &Config{
		Bodies:        DefaultBodies,
		Scheme:        DefaultScheme,
		Seed:          DefaultSeed,
		Iterations:    DefaultIterations,
		Backend:       DefaultBackend,
		Batch:         DefaultBatch,
		Schedule:      DefaultSchedule,
		ValidateState: true,
		TrackEnergy:   true,
		Physics: PhysicsConfig{
			G:         p.G,
			Softening: p.Softening,
			Dt:        p.Dt,
			Theta:     p.Theta,
		},
	}
}

func isINI(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gcfg", ".ini":
		return true
	}
	return false
}

// Load reads a YAML file, or a gcfg file when the extension is .gcfg or
// .ini. Keys missing from the file keep their default values.
func Load(path string) (*Config, error) {
	if isINI(path) {
		return loadINI(path)
	}
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
	var data []byte
	if isINI(path) {
		data = formatINI(cfg)
	} else {
		var err error
		if data, err = yaml.Marshal(cfg); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

// iniFile mirrors Config in gcfg sections:
//
//	[Simulation]
//	Bodies = 1000
//	Backend = pool
//
//	[Physics]
//	Dt = 3600
type iniFile struct {
	Simulation struct {
		Bodies        int
		Scheme        string
		Seed          string
		Iterations    int
		Backend       string
		Workers       int
		Batch         int
		Schedule      string
		ValidateState bool
		TrackEnergy   bool
	}
	Physics PhysicsConfig
}

func loadINI(path string) (*Config, error) {
	cfg := DefaultConfig()

	var f iniFile
	sim := &f.Simulation
	sim.Bodies, sim.Scheme, sim.Seed = cfg.Bodies, cfg.Scheme, strconv.FormatUint(cfg.Seed, 10)
	sim.Iterations, sim.Backend, sim.Workers = cfg.Iterations, cfg.Backend, cfg.Workers
	sim.Batch, sim.Schedule, sim.ValidateState = cfg.Batch, cfg.Schedule, cfg.ValidateState
	sim.TrackEnergy = cfg.TrackEnergy
	f.Physics = cfg.Physics

	if err := gcfg.ReadFileInto(&f, path); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	seed, err := strconv.ParseUint(strings.TrimSpace(sim.Seed), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: seed = %q, want an unsigned 64-bit integer", ErrInvalidConfig, sim.Seed)
	}

	cfg.Bodies, cfg.Scheme, cfg.Seed = sim.Bodies, sim.Scheme, seed
	cfg.Iterations, cfg.Backend, cfg.Workers = sim.Iterations, sim.Backend, sim.Workers
	cfg.Batch, cfg.Schedule, cfg.ValidateState = sim.Batch, sim.Schedule, sim.ValidateState
	cfg.TrackEnergy = sim.TrackEnergy
	cfg.Physics = f.Physics
	return cfg, nil
}

func formatINI(cfg *Config) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "[Simulation]\n")
	fmt.Fprintf(&b, "Bodies = %d\n", cfg.Bodies)
	fmt.Fprintf(&b, "Scheme = %s\n", cfg.Scheme)
	fmt.Fprintf(&b, "Seed = %d\n", cfg.Seed)
	fmt.Fprintf(&b, "Iterations = %d\n", cfg.Iterations)
	fmt.Fprintf(&b, "Backend = %s\n", cfg.Backend)
	fmt.Fprintf(&b, "Workers = %d\n", cfg.Workers)
	fmt.Fprintf(&b, "Batch = %d\n", cfg.Batch)
	fmt.Fprintf(&b, "Schedule = %s\n", cfg.Schedule)
	fmt.Fprintf(&b, "ValidateState = %t\n", cfg.ValidateState)
	fmt.Fprintf(&b, "TrackEnergy = %t\n", cfg.TrackEnergy)
	fmt.Fprintf(&b, "\n[Physics]\n")
	fmt.Fprintf(&b, "G = %g\n", cfg.Physics.G)
	fmt.Fprintf(&b, "Softening = %g\n", cfg.Physics.Softening)
	fmt.Fprintf(&b, "Dt = %g\n", cfg.Physics.Dt)
	fmt.Fprintf(&b, "Theta = %g\n", cfg.Physics.Theta)
	return b.Bytes()
}

// Validate checks every field a run depends on.
func (c *Config) Validate() error {
	if c.Bodies <= 0 {
		return fmt.Errorf("%w: bodies = %d: %w", ErrInvalidConfig, c.Bodies, dynamo.ErrNoBodies)
	}
	if c.Iterations <= 0 {
		return fmt.Errorf("%w: iterations = %d, want > 0", ErrInvalidConfig, c.Iterations)
	}
	if _, err := scheme.Lookup(c.Scheme); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Backend != AutoBackend {
		if _, err := c.Kind(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	if s := compute.Schedule(c.Schedule); s != compute.Static && s != compute.Guided {
		return fmt.Errorf("%w: schedule = %q, want static or guided", ErrInvalidConfig, c.Schedule)
	}
	if c.Workers < 0 || c.Batch < 0 {
		return fmt.Errorf("%w: workers and batch must not be negative", ErrInvalidConfig)
	}
	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) Kind() (compute.Kind, error) {
	return compute.ParseKind(c.Backend)
}

func (c *Config) Params() dynamo.Params {
	return dynamo.Params{
		G:         c.Physics.G,
		Softening: c.Physics.Softening,
		Dt:        c.Physics.Dt,
		Theta:     c.Physics.Theta,
	}
}

func (c *Config) Options() compute.Options {
	return compute.Options{
		Workers:  c.Workers,
		Batch:    c.Batch,
		Schedule: compute.Schedule(c.Schedule),
	}
}

func (c *Config) RunConfig() dynamo.Config {
	return dynamo.Config{
		Iterations:    c.Iterations,
		ValidateState: c.ValidateState,
	}
}

func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}
