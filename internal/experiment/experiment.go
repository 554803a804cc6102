package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/san-kum/gravsim/internal/bodies"
	"github.com/san-kum/gravsim/internal/compute"
	"github.com/san-kum/gravsim/internal/config"
	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/metrics"
	"github.com/san-kum/gravsim/internal/scheme"
	"github.com/san-kum/gravsim/internal/storage"
)

var ErrNotSetup = errors.New("experiment: not set up")

// Experiment is one configured simulation: a store built from a scheme,
// a backend and the simulator that drives them.
type Experiment struct {
	cfg       *config.Config
	simulator *dynamo.Simulator
	drift     *metrics.EnergyDrift
	records   []storage.StepRecord
	log       *slog.Logger
}

func New(cfg *config.Config) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Experiment{
		cfg: cfg.Clone(),
		log: slog.Default().With("scheme", cfg.Scheme, "backend", cfg.Backend),
	}, nil
}

// Setup allocates the store and constructs the backend. Device backends
// report ErrDeviceUnavailable here.
func (e *Experiment) Setup() error {
	sim, err := Build(e.cfg, e.cfg.Seed)
	if err != nil {
		return err
	}
	e.simulator = sim

	for _, m := range DefaultMetrics(e.cfg) {
		if d, ok := m.(*metrics.EnergyDrift); ok {
			e.drift = d
		}
		sim.AddMetric(m)
	}
	sim.AddObserver(dynamo.ObserverFunc(e.record))

	e.log.Debug("experiment ready",
		"bodies", sim.Store().N(),
		"padding", sim.Store().Padding(),
		"bytes", sim.Store().AllocatedBytes(),
		"backend_name", sim.Backend().Name())
	return nil
}

// Build constructs a simulator for cfg with the given seed, without any
// metrics attached.
func Build(cfg *config.Config, seed uint64) (*dynamo.Simulator, error) {
	gen, err := scheme.Lookup(cfg.Scheme)
	if err != nil {
		return nil, err
	}
	store, err := bodies.New(cfg.Bodies, gen, seed)
	if err != nil {
		return nil, err
	}
	backend, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}

	sim, err := dynamo.New(store, backend, cfg.Params())
	if err != nil {
		backend.Cleanup()
		return nil, err
	}
	sim.SetValidateState(cfg.ValidateState)
	return sim, nil
}

func newBackend(cfg *config.Config) (compute.Backend, error) {
	if cfg.Backend == config.AutoBackend {
		return compute.AutoSelectBackend(cfg.Options()), nil
	}
	kind, err := cfg.Kind()
	if err != nil {
		return nil, err
	}
	backend, err := compute.New(kind, cfg.Options())
	if err != nil {
		return nil, fmt.Errorf("experiment: backend %s: %w", kind, err)
	}
	return backend, nil
}

func (e *Experiment) record(s *bodies.Store, step int, t float64) {
	rec := storage.StepRecord{Step: step, Time: t}
	if e.drift != nil {
		rec.Energy = e.drift.Energy()
		rec.Drift = e.drift.Current()
	}
	e.records = append(e.records, rec)
}

func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	if e.simulator == nil {
		return nil, ErrNotSetup
	}

	e.records = e.records[:0]
	e.log.Info("run started", "bodies", e.cfg.Bodies, "iterations", e.cfg.Iterations)
	result, err := e.simulator.Run(ctx, e.cfg.RunConfig())
	if result != nil {
		for i := range e.records {
			if i < len(result.StepTimes) {
				e.records[i].Millis = float64(result.StepTimes[i].Microseconds()) / 1e3
			}
		}
		e.log.Info("run finished",
			"steps", result.Steps,
			"elapsed", result.Elapsed,
			"fps", result.FPS,
			"gflops", result.Gflops)
	}
	if err != nil {
		e.log.Error("run stopped", "err", err)
	}
	return result, err
}

// Save persists the current store and step records of a finished run.
func (e *Experiment) Save(st *storage.Store, result *dynamo.Result) (string, error) {
	if e.simulator == nil {
		return "", ErrNotSetup
	}
	return st.Save(storage.Run{
		Config:  e.cfg,
		Backend: e.simulator.Backend().Name(),
		Result:  result,
		Bodies:  e.simulator.Store().Snapshot(),
		Steps:   e.records,
	})
}

func (e *Experiment) Config() *config.Config { return e.cfg }

// Simulator returns the underlying simulator for adding observers.
func (e *Experiment) Simulator() *dynamo.Simulator { return e.simulator }

// Drift is nil when energy tracking is disabled.
func (e *Experiment) Drift() *metrics.EnergyDrift { return e.drift }

func (e *Experiment) Records() []storage.StepRecord { return e.records }

func (e *Experiment) Close() {
	if e.simulator != nil {
		e.simulator.Close()
	}
}
