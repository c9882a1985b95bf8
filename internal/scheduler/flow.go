package scheduler

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// Flow is the locality-pinned scheduler: each block task is assigned a core
// by mapBlock, and its goroutine locks an OS thread and pins that thread's
// affinity to the assigned core before running. Blocks sharing a core stay
// cache-local to each other; this trades portability (Linux-only affinity)
// for reduced cross-core migration under heavy pipelines.
type Flow struct {
	// Cores bounds how many distinct cores tasks are spread across; 0
	// means runtime.NumCPU().
	Cores int
}

// mapBlock deterministically assigns a block to one of nCores core slots.
// A plain modulo keeps the mapping stable across runs for a given topology,
// which matters for reasoning about which blocks share a core.
func mapBlock(id uint64, nCores int) int {
	if nCores <= 0 {
		return 0
	}
	return int(id % uint64(nCores))
}

func (f Flow) Run(ctx context.Context, tasks []BlockTask) error {
	cores := f.Cores
	if cores <= 0 {
		cores = runtime.NumCPU()
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, t := range tasks {
		t := t
		core := mapBlock(t.ID, cores)
		g.Go(func() error {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()

			var set unix.CPUSet
			set.Zero()
			set.Set(core)
			// Affinity is best-effort: a sandboxed or non-Linux host may
			// reject it, which should not abort the block itself.
			_ = unix.SchedSetaffinity(0, &set)

			return runRecovered(ctx, t)
		})
	}
	return g.Wait()
}

var _ Scheduler = Flow{}
