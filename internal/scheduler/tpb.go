package scheduler

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// TPB (thread-per-block) gives every block task its own dedicated OS
// thread via LockOSThread, with no affinity pinning. Matches a block that
// wants to avoid the Go scheduler migrating it mid-syscall (e.g. one doing
// its own blocking I/O), at the cost of one OS thread per block.
type TPB struct{}

func (TPB) Run(ctx context.Context, tasks []BlockTask) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, t := range tasks {
		t := t
		g.Go(func() error {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			return runRecovered(ctx, t)
		})
	}
	return g.Wait()
}

var _ Scheduler = TPB{}
