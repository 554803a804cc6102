package experiment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/gravsim/internal/bodies"
	"github.com/san-kum/gravsim/internal/compute"
	"github.com/san-kum/gravsim/internal/config"
	"github.com/san-kum/gravsim/internal/dynamo"
)

// Reference is the backend every other one is compared against.
const Reference = compute.Scalar

// Comparison is the outcome of running one backend against the reference.
// Errors are relative position errors of the real bodies after the run.
type Comparison struct {
	Kind        compute.Kind
	Name        string
	Approximate bool
	MaxRelErr   float64
	MeanRelErr  float64
	Elapsed     time.Duration
	Skipped     bool
	Err         error
}

// Verify runs cfg for steps steps once per kind, all from the same seeded
// initial state, and compares the final positions with the scalar
// reference. Kinds whose device is missing are reported as skipped.
func Verify(ctx context.Context, cfg *config.Config, kinds []compute.Kind, steps int) ([]Comparison, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("experiment: verify steps = %d, want > 0", steps)
	}

	ref, _, err := runKind(ctx, cfg, Reference, steps)
	if err != nil {
		return nil, fmt.Errorf("experiment: reference run: %w", err)
	}

	out := make([]Comparison, len(kinds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(2)
	for i, kind := range kinds {
		g.Go(func() error {
			c := Comparison{
				Kind:        kind,
				Approximate: kind == compute.BarnesHut || kind == compute.BarnesHutParallel,
			}
			final, info, err := runKind(gctx, cfg, kind, steps)
			switch {
			case IsDeviceError(err):
				c.Skipped, c.Err = true, err
			case err != nil:
				return fmt.Errorf("experiment: %s: %w", kind, err)
			default:
				c.Name = info.backend
				c.Elapsed = info.elapsed
				c.MaxRelErr, c.MeanRelErr = positionError(ref, final)
			}
			out[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

type runInfo struct {
	backend string
	elapsed time.Duration
}

func runKind(ctx context.Context, cfg *config.Config, kind compute.Kind, steps int) ([]bodies.Body, runInfo, error) {
	c := cfg.Clone()
	c.Backend = string(kind)

	sim, err := Build(c, c.Seed)
	if err != nil {
		return nil, runInfo{}, err
	}
	defer sim.Close()

	result, err := sim.Run(ctx, dynamo.Config{Iterations: steps, ValidateState: c.ValidateState})
	if err != nil {
		return nil, runInfo{}, err
	}
	return sim.Store().Snapshot(), runInfo{backend: sim.Backend().Name(), elapsed: result.Elapsed}, nil
}

// positionError returns the largest and mean |p - p_ref| / |p_ref|.
func positionError(ref, got []bodies.Body) (maxErr, meanErr float64) {
	if len(ref) != len(got) || len(ref) == 0 {
		return math.Inf(1), math.Inf(1)
	}
	sum := 0.0
	for i := range ref {
		scale := r3.Norm(ref[i].Pos)
		if scale == 0 {
			scale = 1
		}
		e := r3.Norm(r3.Sub(got[i].Pos, ref[i].Pos)) / scale
		if math.IsNaN(e) {
			e = math.Inf(1)
		}
		maxErr = math.Max(maxErr, e)
		sum += e
	}
	return maxErr, sum / float64(len(ref))
}

// Failed lists the exact backends whose error exceeds tol.
func Failed(cs []Comparison, tol float64) []Comparison {
	var out []Comparison
	for _, c := range cs {
		if c.Skipped || c.Approximate {
			continue
		}
		if c.MaxRelErr > tol {
			out = append(out, c)
		}
	}
	return out
}

var ErrMismatch = errors.New("experiment: backends disagree with the reference")

// Check returns an error naming every exact backend outside tol.
func Check(cs []Comparison, tol float64) error {
	bad := Failed(cs, tol)
	if len(bad) == 0 {
		return nil
	}
	names := make([]string, len(bad))
	for i, c := range bad {
		names[i] = fmt.Sprintf("%s (%.3g)", c.Kind, c.MaxRelErr)
	}
	return fmt.Errorf("%w: %v", ErrMismatch, names)
}
