package scheduler

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Pool is a work-stealing-style scheduler: every block task runs on its own
// goroutine with no OS thread locking, so tasks share Go's runtime threads
// rather than each owning one. Good for graphs with many lightweight blocks
// where OS thread count should stay low. "Work-stealing" here is Go's own
// goroutine scheduler doing the stealing underneath errgroup's fan-out.
type Pool struct {
	// Workers is the errgroup concurrency limit; 0 means GOMAXPROCS(0). The
	// limit is raised to len(tasks) when it is smaller, so it never holds a
	// task back.
	Workers int
}

func (p Pool) Run(ctx context.Context, tasks []BlockTask) error {
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	// Every BlockTask.Run is a long-lived blocking loop that only returns at
	// termination, not a short unit of work handed back to the pool — so a
	// task holds its goroutine for the entire run, not just a slice of it.
	// Capping concurrency below len(tasks) would mean the excess tasks never
	// get a goroutine, and the ones running can depend on exactly those
	// unstarted tasks to make progress (a downstream block waiting on an
	// upstream one), so the whole graph deadlocks. Every task gets its own
	// goroutine; Workers only matters as a floor for tiny graphs.
	if workers < len(tasks) {
		workers = len(tasks)
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, t := range tasks {
		t := t
		g.Go(func() error {
			return runRecovered(ctx, t)
		})
	}
	return g.Wait()
}

var _ Scheduler = Pool{}
