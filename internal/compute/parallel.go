package compute

import (
	"sync"
	"sync/atomic"

	"github.com/san-kum/gravsim/internal/bodies"
)

const guidedMinChunk = 4

// ParallelBackend runs the vectorized row kernel over disjoint ranges of i.
type ParallelBackend struct {
	workers  int
	schedule Schedule
}

func NewParallelBackend(workers int, schedule Schedule) *ParallelBackend {
	if workers < 1 {
		workers = 1
	}
	return &ParallelBackend{workers: workers, schedule: schedule}
}

func (c *ParallelBackend) Name() string    { return string(Parallel) + "/" + string(c.schedule) }
func (c *ParallelBackend) Available() bool { return true }
func (c *ParallelBackend) Cleanup()        {}

func (c *ParallelBackend) Accelerations(s *bodies.Store, p Params, acc *bodies.Accelerations) {
	k := newRowKernel(s, p)
	if c.schedule == Guided {
		guidedFor(s.N(), c.workers, guidedMinChunk, func(from, to int) {
			k.rows(from, to, acc)
		})
		return
	}
	staticFor(s.N(), c.workers, func(from, to int) {
		k.rows(from, to, acc)
	})
}

// staticFor splits [0, n) into one contiguous range per worker.
func staticFor(n, workers int, fn func(from, to int)) {
	var wg sync.WaitGroup
	chunkSize := (n + workers - 1) / workers

	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			break
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(start, end)
		}()
	}

	wg.Wait()
}

// guidedFor hands out ranges from a shared cursor. Each claim takes half of
// the remaining work divided by the worker count, never less than minChunk.
func guidedFor(n, workers, minChunk int, fn func(from, to int)) {
	var cursor atomic.Int64
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				start := int(cursor.Load())
				if start >= n {
					return
				}
				chunk := max((n-start)/(2*workers), minChunk)
				end := min(start+chunk, n)
				if !cursor.CompareAndSwap(int64(start), int64(end)) {
					continue
				}
				fn(start, end)
			}
		}()
	}

	wg.Wait()
}
