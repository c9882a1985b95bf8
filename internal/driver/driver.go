// Package driver coordinates a flowgraph's block tasks under a scheduler,
// and exposes the command inbox (Terminate, BlockMessage, Description)
// used to interact with a running flowgraph from outside its blocks.
package driver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ehrlich-b/go-flowgraph/internal/block"
	"github.com/ehrlich-b/go-flowgraph/internal/pmt"
	"github.com/ehrlich-b/go-flowgraph/internal/scheduler"
)

// BlockHandle is the driver's view of one running block: enough to route
// commands to it without depending on the block's concrete kernel type.
type BlockHandle struct {
	ID      uint64
	Name    string
	Mailbox *block.Mailbox
	State   func() block.State
}

// BlockDescription is a point-in-time snapshot of one block's identity and
// lifecycle state, returned by the Description command.
type BlockDescription struct {
	ID    uint64
	Name  string
	State string
}

// BlockMessageResult is the outcome of a BlockMessage command.
type BlockMessageResult struct {
	Value pmt.Value
	Err   error
}

// blockMessageCmd delivers v to blockID's named port and awaits one reply.
type blockMessageCmd struct {
	blockID uint64
	port    string
	value   pmt.Value
	reply   chan BlockMessageResult
}

// descriptionCmd requests a topology snapshot.
type descriptionCmd struct {
	reply chan []BlockDescription
}

// Driver runs a flowgraph's block tasks to completion under a Scheduler
// and answers commands posted to its inbox while running.
type Driver struct {
	sched  scheduler.Scheduler
	tasks  []scheduler.BlockTask
	blocks map[uint64]BlockHandle
	order  []uint64

	commands chan any
}

// New creates a driver that will place tasks under sched.
func New(sched scheduler.Scheduler) *Driver {
	return &Driver{
		sched:    sched,
		blocks:   make(map[uint64]BlockHandle),
		commands: make(chan any, 16),
	}
}

// AddBlock registers one block's task and command-routing handle.
func (d *Driver) AddBlock(task scheduler.BlockTask, handle BlockHandle) {
	d.tasks = append(d.tasks, task)
	d.blocks[handle.ID] = handle
	d.order = append(d.order, handle.ID)
}

// Handle is returned by Start; it lets a caller wait for completion or
// issue commands against the running flowgraph.
type Handle struct {
	driver     *Driver
	cancel     context.CancelFunc
	done       chan error
	once       sync.Once
	terminated atomic.Bool
}

// Start runs every registered block task under the driver's scheduler and
// begins serving the command inbox. It returns immediately; use Wait to
// block for completion.
func (d *Driver) Start(ctx context.Context) *Handle {
	runCtx, cancel := context.WithCancel(ctx)
	h := &Handle{driver: d, cancel: cancel, done: make(chan error, 1)}

	go func() {
		h.done <- d.sched.Run(runCtx, d.tasks)
	}()
	go d.serveCommands(runCtx)

	return h
}

func (d *Driver) serveCommands(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-d.commands:
			d.handleCommand(ctx, cmd)
		}
	}
}

func (d *Driver) handleCommand(ctx context.Context, cmd any) {
	switch c := cmd.(type) {
	case blockMessageCmd:
		handle, ok := d.blocks[c.blockID]
		if !ok {
			c.reply <- BlockMessageResult{Err: fmt.Errorf("driver: unknown block %d", c.blockID)}
			return
		}
		reply := make(chan block.Reply, 1)
		if err := handle.Mailbox.Post(ctx, block.Message{Port: c.port, Value: c.value, Reply: reply}); err != nil {
			c.reply <- BlockMessageResult{Err: err}
			return
		}
		select {
		case r := <-reply:
			c.reply <- BlockMessageResult{Value: r.Value, Err: r.Err}
		case <-ctx.Done():
			c.reply <- BlockMessageResult{Err: ctx.Err()}
		}
	case descriptionCmd:
		descs := make([]BlockDescription, 0, len(d.order))
		for _, id := range d.order {
			h := d.blocks[id]
			state := "unknown"
			if h.State != nil {
				state = h.State().String()
			}
			descs = append(descs, BlockDescription{ID: h.ID, Name: h.Name, State: state})
		}
		c.reply <- descs
	}
}

// Wait blocks until every block task has returned, yielding the first
// error reported by the scheduler (nil on clean shutdown). A cancellation
// caused by Terminate is not reported as an error: every block observing
// ctx.Err() and exiting is exactly what a requested stop looks like.
func (h *Handle) Wait() error {
	err := <-h.done
	if h.terminated.Load() && errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Terminate requests a graceful stop: it cancels the run context, which
// propagates to every block's harness the next time it checks ctx.Err().
func (h *Handle) Terminate() {
	h.terminated.Store(true)
	h.once.Do(h.cancel)
}

// BlockMessage delivers v to blockID's named input port and waits for the
// handler's reply.
func (h *Handle) BlockMessage(ctx context.Context, blockID uint64, port string, v pmt.Value) (pmt.Value, error) {
	reply := make(chan BlockMessageResult, 1)
	select {
	case h.driver.commands <- blockMessageCmd{blockID: blockID, port: port, value: v, reply: reply}:
	case <-ctx.Done():
		return pmt.Null, ctx.Err()
	}
	select {
	case r := <-reply:
		return r.Value, r.Err
	case <-ctx.Done():
		return pmt.Null, ctx.Err()
	}
}

// Description returns a point-in-time topology snapshot of every block's
// lifecycle state.
func (h *Handle) Description(ctx context.Context) ([]BlockDescription, error) {
	reply := make(chan []BlockDescription, 1)
	select {
	case h.driver.commands <- descriptionCmd{reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case descs := <-reply:
		return descs, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
