// Package scheduler runs a flowgraph's block harnesses under one of three
// placement policies: a bounded goroutine pool, locality-pinned groups, or
// one dedicated OS thread per block.
package scheduler

import (
	"context"
	"runtime/debug"

	"github.com/ehrlich-b/go-flowgraph/internal/logging"
)

// BlockTask is one schedulable unit: a block's harness run loop, identified
// for locality grouping and error reporting.
type BlockTask struct {
	ID   uint64
	Name string
	Run  func(ctx context.Context) error
}

// Scheduler places a flowgraph's block tasks onto goroutines/threads and
// runs them to completion, returning the first error encountered (if any)
// once every task has returned.
type Scheduler interface {
	Run(ctx context.Context, tasks []BlockTask) error
}

// runRecovered runs t.Run, logging a full diagnostic (block id, name, panic
// value, stack trace) and re-panicking if it panics. A block kernel's bug is
// unrecoverable at the executor level — every other task's goroutine is
// still running and could act on a corrupted shared buffer if this task's
// panic were merely swallowed into an error return, so the process is
// brought down rather than limping on.
func runRecovered(ctx context.Context, t BlockTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Default().Named(t.Name).Error("block panicked",
				"block_id", t.ID,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			panic(r)
		}
	}()
	return t.Run(ctx)
}
