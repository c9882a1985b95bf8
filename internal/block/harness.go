package block

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ehrlich-b/go-flowgraph/internal/constants"
)

// State is a position in the block lifecycle state machine: Created ->
// Initializing -> Ready -> Terminating -> Terminated.
type State int32

const (
	StateCreated State = iota
	StateInitializing
	StateReady
	StateTerminating
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateTerminating:
		return "terminating"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// OutputHandle is the type-erased view of a Writer[T] the harness needs for
// lifecycle management: it neither knows nor cares about the item type.
type OutputHandle interface {
	Finish()
	ParkForSpace(ctx context.Context)
}

// InputHandle is the type-erased view of a Reader[T] the harness needs for
// lifecycle management.
type InputHandle interface {
	Finished() bool
	ParkForData(ctx context.Context)
}

// fairnessBound caps how many mailbox messages the harness drains before
// giving Work a turn, so a message flood cannot starve stream processing.
const fairnessBound = 16

// Harness drives one block kernel through its lifecycle: draining its
// mailbox, invoking Work, observing call_again/finished, and propagating
// finish to its outputs.
type Harness struct {
	kernel  Block
	meta    *Meta
	mailbox *Mailbox
	mio     *MessageOutputs
	handlers map[string]Handler

	mu      sync.Mutex
	inputs  []InputHandle
	outputs []OutputHandle

	state    atomic.Int32
	errMu    sync.Mutex
	err      error
	observer Observer
}

// SetObserver attaches a metrics observer; nil restores the no-op default.
func (h *Harness) SetObserver(o Observer) {
	if o == nil {
		o = noopObserver{}
	}
	h.observer = o
}

// NewHarness builds a harness around kernel, with a mailbox of the given
// capacity (constants.DefaultMailboxCapacity if capacity <= 0).
func NewHarness(kernel Block, meta *Meta, capacity int) *Harness {
	if capacity <= 0 {
		capacity = constants.DefaultMailboxCapacity
	}
	h := &Harness{
		kernel:  kernel,
		meta:    meta,
		mailbox: NewMailbox(capacity),
		mio:     NewMessageOutputs(),
	}
	h.state.Store(int32(StateCreated))
	h.observer = noopObserver{}
	if mp, ok := kernel.(MessagePorts); ok {
		h.handlers = make(map[string]Handler)
		for _, p := range mp.MessagePorts() {
			h.handlers[p.Name] = p.Handler
		}
	}
	return h
}

// Mailbox returns the block's inbound message queue, for the driver to hand
// out Subscriber references when wiring message edges.
func (h *Harness) Mailbox() *Mailbox { return h.mailbox }

// MessageOutputs returns the block's output-port fan-out table, for the
// driver to Subscribe downstream mailboxes onto.
func (h *Harness) MessageOutputs() *MessageOutputs { return h.mio }

// RegisterInput adds a stream input the harness polls for the finish
// condition and parks on when idle.
func (h *Harness) RegisterInput(r InputHandle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inputs = append(h.inputs, r)
}

// RegisterOutput adds a stream output the harness finishes on termination.
func (h *Harness) RegisterOutput(w OutputHandle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.outputs = append(h.outputs, w)
}

// State returns the harness's current lifecycle state.
func (h *Harness) State() State { return State(h.state.Load()) }

func (h *Harness) transition(s State) { h.state.Store(int32(s)) }

// Err returns the fatal error that ended the run, if any.
func (h *Harness) Err() error {
	h.errMu.Lock()
	defer h.errMu.Unlock()
	return h.err
}

func (h *Harness) setErr(err error) {
	h.errMu.Lock()
	defer h.errMu.Unlock()
	if h.err == nil {
		h.err = err
	}
}

// Run drives the block to completion: it returns when the block finishes
// normally, is cancelled via ctx, or hits a fatal error from Work/Init/Deinit.
func (h *Harness) Run(ctx context.Context) error {
	h.transition(StateInitializing)
	if init, ok := h.kernel.(Initializer); ok {
		if err := init.Init(ctx, h.meta); err != nil {
			h.setErr(fmt.Errorf("init %s: %w", h.meta.Name, err))
			h.transition(StateTerminated)
			return h.Err()
		}
	}
	h.transition(StateReady)

	for {
		if ctx.Err() != nil {
			h.setErr(ctx.Err())
			break
		}

		for _, m := range h.mailbox.Drain(fairnessBound) {
			h.dispatch(ctx, m)
		}

		if h.allInputsFinished() {
			break
		}

		io := &WorkIO{}
		start := time.Now()
		err := h.kernel.Work(ctx, io, h.mio, h.meta)
		h.observer.ObserveWork(h.meta.Name, time.Since(start), err)
		if err != nil {
			h.setErr(fmt.Errorf("work %s: %w", h.meta.Name, err))
			break
		}
		if io.Finished {
			break
		}
		if io.CallAgain {
			continue
		}
		parkStart := time.Now()
		h.park(ctx)
		h.observer.ObservePark(h.meta.Name, time.Since(parkStart))
	}

	h.transition(StateTerminating)
	h.finishOutputs()
	if deinit, ok := h.kernel.(Deinitializer); ok {
		if err := deinit.Deinit(ctx, h.meta); err != nil {
			h.setErr(fmt.Errorf("deinit %s: %w", h.meta.Name, err))
		}
	}
	h.transition(StateTerminated)
	return h.Err()
}

func (h *Harness) dispatch(ctx context.Context, m Message) {
	handler, ok := h.handlers[m.Port]
	if !ok {
		if m.Reply != nil {
			m.Reply <- Reply{Err: fmt.Errorf("block %s: no handler for port %q", h.meta.Name, m.Port)}
		}
		return
	}
	v, err := handler(ctx, h.meta, h.mio, m.Value)
	if m.Reply != nil {
		select {
		case m.Reply <- Reply{Value: v, Err: err}:
		default:
		}
	}
}

func (h *Harness) allInputsFinished() bool {
	h.mu.Lock()
	inputs := h.inputs
	h.mu.Unlock()
	if len(inputs) == 0 {
		return false
	}
	for _, r := range inputs {
		if !r.Finished() {
			return false
		}
	}
	return true
}

func (h *Harness) finishOutputs() {
	h.mu.Lock()
	outputs := h.outputs
	h.mu.Unlock()
	for _, w := range outputs {
		w.Finish()
	}
}

// park suspends the harness goroutine until its first registered input has
// data (or, for a block with no inputs, its first registered output has
// space), or DefaultParkTimeout elapses; other inputs and outputs are not
// watched while parked. The timeout
// is the backstop against a message arriving while the harness is blocked
// on a stream waker that nothing will ever signal again. The wait happens
// on this goroutine directly (ParkForData/ParkForSpace take the bounded
// ctx and select on it themselves), so a timed-out park leaves nothing
// behind: there is no helper goroutine to leak.
func (h *Harness) park(ctx context.Context) {
	h.mu.Lock()
	var target func(context.Context)
	switch {
	case len(h.inputs) > 0:
		in := h.inputs[0]
		target = in.ParkForData
	case len(h.outputs) > 0:
		out := h.outputs[0]
		target = out.ParkForSpace
	}
	h.mu.Unlock()

	parkCtx, cancel := context.WithTimeout(ctx, constants.DefaultParkTimeout)
	defer cancel()

	if target == nil {
		<-parkCtx.Done()
		return
	}
	target(parkCtx)
}
