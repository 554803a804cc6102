package dynamo

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Factory builds an independent simulator for one seed.
type Factory func(seed uint64) (*Simulator, error)

// Ensemble runs independent simulations, one per seed, concurrently.
type Ensemble struct {
	factory   Factory
	numRuns   int
	seedStart uint64
	limit     int
}

func NewEnsemble(factory Factory, numRuns int, seedStart uint64) *Ensemble {
	return &Ensemble{
		factory:   factory,
		numRuns:   numRuns,
		seedStart: seedStart,
		limit:     runtime.NumCPU(),
	}
}

// SetLimit caps how many simulations run at once.
func (e *Ensemble) SetLimit(n int) {
	if n > 0 {
		e.limit = n
	}
}

// Run returns one result per seed in seed order. The first failing run
// cancels the others and its error is returned.
func (e *Ensemble) Run(ctx context.Context, cfg Config) ([]*Result, error) {
	results := make([]*Result, e.numRuns)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.limit)
	for i := 0; i < e.numRuns; i++ {
		g.Go(func() error {
			sim, err := e.factory(e.seedStart + uint64(i))
			if err != nil {
				return err
			}
			defer sim.Close()

			results[i], err = sim.Run(gctx, cfg)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ParallelFor executes fn over [0, n) split into contiguous ranges, one per
// worker, and waits for all of them. workers <= 0 means runtime.NumCPU().
func ParallelFor(n, workers, minChunk int, fn func(start, end int)) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if n <= minChunk || workers <= 1 {
		fn(0, n)
		return
	}

	if minChunk > 0 && n/minChunk < workers {
		workers = n / minChunk
	}
	workers = max(workers, 1)

	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			break
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}

	wg.Wait()
}
