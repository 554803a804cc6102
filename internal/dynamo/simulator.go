package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/san-kum/gravsim/internal/bodies"
	"github.com/san-kum/gravsim/internal/compute"
)

// Simulator advances one body store with one force backend. It is not safe
// for concurrent use; see Ensemble for independent parallel runs.
type Simulator struct {
	store     *bodies.Store
	backend   compute.Backend
	params    Params
	acc       *bodies.Accelerations
	metrics   []Metric
	observers []Observer
	validate  bool

	step int
	t    float64
}

func New(store *bodies.Store, backend compute.Backend, params Params) (*Simulator, error) {
	if store == nil || store.N() == 0 {
		return nil, ErrNoBodies
	}
	if backend == nil {
		return nil, errors.New("dynamo: nil backend")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Simulator{
		store:   store,
		backend: backend,
		params:  params,
		acc:     bodies.NewAccelerations(store.Len()),
	}, nil
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// SetValidateState makes Step fail once the store holds a NaN or Inf.
func (s *Simulator) SetValidateState(v bool) { s.validate = v }

func (s *Simulator) Store() *bodies.Store     { return s.store }
func (s *Simulator) Backend() compute.Backend { return s.backend }
func (s *Simulator) Params() Params           { return s.params }
func (s *Simulator) Time() float64            { return s.t }
func (s *Simulator) StepCount() int           { return s.step }

// Accelerations are those computed by the last step. Callers must not
// modify them.
func (s *Simulator) Accelerations() *bodies.Accelerations { return s.acc }

// Step resets the accumulator, computes accelerations with the backend and
// integrates the store by dt. A backend failure leaves the store and the
// step count untouched.
func (s *Simulator) Step() error {
	s.acc.Reset()
	s.backend.Accelerations(s.store, s.params.Compute(), s.acc)
	if r, ok := s.backend.(compute.ErrorReporter); ok {
		if err := r.Err(); err != nil {
			return &SimulationError{Step: s.step, Time: s.t, Wrapped: err}
		}
	}
	s.store.Integrate(s.acc, s.params.Dt)
	s.step++
	s.t += s.params.Dt

	if s.validate && !s.store.IsValid() {
		return &SimulationError{Step: s.step, Time: s.t, Wrapped: ErrInvalidState}
	}

	for _, m := range s.metrics {
		m.Observe(s.store, s.step, s.t)
	}
	for _, o := range s.observers {
		o.OnStep(s.store, s.step, s.t)
	}
	return nil
}

// Run performs cfg.Iterations steps. The context is checked between steps
// only; a step always runs to completion. On cancellation the partial
// result is returned with an error wrapping ErrContextCanceled.
func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.Iterations <= 0 {
		return nil, boundsError("iterations", float64(cfg.Iterations), "positive")
	}
	if cfg.ValidateState {
		s.validate = true
	}

	result := &Result{
		StepTimes: make([]time.Duration, 0, cfg.Iterations),
		Metrics:   make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
		m.Observe(s.store, s.step, s.t)
	}

	start := time.Now()
	var err error
	for i := 0; i < cfg.Iterations; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = &SimulationError{
				Step:    s.step,
				Time:    s.t,
				Wrapped: fmt.Errorf("%w: %w", ErrContextCanceled, ctxErr),
			}
			break
		}

		stepStart := time.Now()
		err = s.Step()
		result.StepTimes = append(result.StepTimes, time.Since(stepStart))
		if err != nil {
			break
		}
	}

	s.finish(result, time.Since(start))
	return result, err
}

func (s *Simulator) finish(result *Result, elapsed time.Duration) {
	result.Steps = len(result.StepTimes)
	result.SimTime = s.t
	result.Elapsed = elapsed
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	if secs := elapsed.Seconds(); secs > 0 {
		result.FPS = float64(result.Steps) / secs
		result.Gflops = compute.FlopsPerIteration(s.store.N()) * result.FPS / 1e9
	}
}

// Close releases the backend.
func (s *Simulator) Close() {
	s.backend.Cleanup()
}
