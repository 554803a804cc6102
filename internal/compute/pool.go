package compute

import (
	"sync"
	"sync/atomic"

	"github.com/san-kum/gravsim/internal/bodies"
)

// poolTask is everything a worker needs for one step. Workers claim batches
// of rows with an atomic fetch-and-add on cursor until it passes total.
type poolTask struct {
	kernel rowKernel
	acc    *bodies.Accelerations
	cursor *atomic.Int64
	batch  int
	done   *sync.WaitGroup
}

func (t *poolTask) run() {
	defer t.done.Done()
	for {
		end := int(t.cursor.Add(int64(t.batch)))
		start := end - t.batch
		if start >= t.kernel.total {
			return
		}
		end = min(end, t.kernel.total)
		for i := start; i < end; i += bodies.Lanes {
			t.kernel.block(i, t.acc)
		}
	}
}

// PoolBackend keeps a fixed set of goroutines alive between steps. Each
// step hands every worker the same task and waits for all of them.
type PoolBackend struct {
	workers int
	batch   int

	once  sync.Once
	tasks chan *poolTask
	wg    sync.WaitGroup
}

func NewPoolBackend(workers, batch int) *PoolBackend {
	if workers < 1 {
		workers = 1
	}
	if batch < 1 {
		batch = 1
	}
	return &PoolBackend{workers: workers, batch: batch}
}

func (c *PoolBackend) Name() string    { return string(Pool) }
func (c *PoolBackend) Available() bool { return true }

func (c *PoolBackend) start() {
	c.tasks = make(chan *poolTask)
	for w := 0; w < c.workers; w++ {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			for t := range c.tasks {
				t.run()
			}
		}()
	}
}

func (c *PoolBackend) Accelerations(s *bodies.Store, p Params, acc *bodies.Accelerations) {
	c.once.Do(c.start)

	var cursor atomic.Int64
	var done sync.WaitGroup
	task := &poolTask{
		kernel: newRowKernel(s, p),
		acc:    acc,
		cursor: &cursor,
		batch:  bodies.Lanes * c.batch,
		done:   &done,
	}

	done.Add(c.workers)
	for w := 0; w < c.workers; w++ {
		c.tasks <- task
	}
	done.Wait()
}

// Cleanup stops the workers. A later Accelerations call starts a fresh set.
func (c *PoolBackend) Cleanup() {
	if c.tasks != nil {
		close(c.tasks)
		c.wg.Wait()
		c.tasks = nil
	}
	c.once = sync.Once{}
}
