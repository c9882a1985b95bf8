package flowgraph

import (
	"context"
	"time"

	"github.com/ehrlich-b/go-flowgraph/internal/config"
	"github.com/ehrlich-b/go-flowgraph/internal/driver"
	"github.com/ehrlich-b/go-flowgraph/internal/scheduler"
)

// leafPollInterval is how often Start's shutdown-cascade monitor checks
// whether every leaf block has terminated.
const leafPollInterval = 20 * time.Millisecond

// Config is the runtime's scheduler and buffer-sizing configuration. Use
// DefaultConfig or config.LoadEnv-equivalent loading via LoadConfigEnv.
type Config = config.Config

// SchedulerKind selects a Runtime's placement policy.
type SchedulerKind = config.SchedulerKind

const (
	SchedulerPool SchedulerKind = config.SchedulerPool
	SchedulerFlow SchedulerKind = config.SchedulerFlow
	SchedulerTPB  SchedulerKind = config.SchedulerTPB
)

// DefaultConfig returns the library's built-in configuration defaults.
func DefaultConfig() Config { return config.Default() }

// LoadConfigEnv loads configuration from FLOWGRAPH_* environment
// variables, optionally seeding the process environment from envFile
// first (a no-op if envFile is empty or does not exist).
func LoadConfigEnv(envFile string) (Config, error) { return config.LoadEnv(envFile) }

func newScheduler(cfg Config) scheduler.Scheduler {
	switch cfg.Scheduler {
	case config.SchedulerFlow:
		return scheduler.Flow{Cores: cfg.FlowCores}
	case config.SchedulerTPB:
		return scheduler.TPB{}
	default:
		return scheduler.Pool{Workers: cfg.PoolWorkers}
	}
}

// Handle controls a running flowgraph: wait for completion, request a
// graceful stop, or issue BlockMessage/Description commands.
type Handle struct {
	inner *driver.Handle
}

// Wait blocks until every block has terminated, returning the first fatal
// error encountered (nil on clean shutdown).
func (h *Handle) Wait() error { return h.inner.Wait() }

// Terminate requests every block stop at its next opportunity.
func (h *Handle) Terminate() { h.inner.Terminate() }

// BlockMessage delivers v to blockID's named input port and waits for the
// handler's reply.
func (h *Handle) BlockMessage(ctx context.Context, blockID uint64, port string, v Value) (Value, error) {
	return h.inner.BlockMessage(ctx, blockID, port, v)
}

// BlockDescription is a point-in-time snapshot of one block's state.
type BlockDescription = driver.BlockDescription

// Description returns a topology snapshot of every block's current
// lifecycle state.
func (h *Handle) Description(ctx context.Context) ([]BlockDescription, error) {
	return h.inner.Description(ctx)
}

// Start begins running every block under the scheduler cfg.Scheduler
// selects. It performs no topology checks beyond those Connect already
// made. It returns immediately.
func Start(ctx context.Context, fg *Flowgraph, cfg Config) (*Handle, error) {
	fg.mu.Lock()
	sched := newScheduler(cfg)
	d := driver.New(sched)
	for _, id := range fg.order {
		rb := fg.blocks[id]
		h := rb.harness
		d.AddBlock(
			scheduler.BlockTask{ID: id, Name: rb.name, Run: h.Run},
			driver.BlockHandle{ID: id, Name: rb.name, Mailbox: h.Mailbox(), State: h.State},
		)
	}
	fg.mu.Unlock()
	leaves := fg.LeafBlocks()

	h := &Handle{inner: d.Start(ctx)}
	if len(leaves) > 0 {
		go monitorLeafShutdown(ctx, h, leaves)
	}
	return h, nil
}

// monitorLeafShutdown watches for every leaf block (a block with no stream
// output: a sink, or a message-only endpoint) reaching Terminated, and
// calls Terminate once all of them have. Without this, an unbounded
// source feeding a leaf that stops early (e.g. a Head cutting the stream
// short) would run forever: nothing else signals it to stop.
func monitorLeafShutdown(ctx context.Context, h *Handle, leaves []uint64) {
	leafSet := make(map[uint64]bool, len(leaves))
	for _, id := range leaves {
		leafSet[id] = true
	}

	ticker := time.NewTicker(leafPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		descs, err := h.Description(ctx)
		if err != nil {
			return
		}
		allDone := true
		seen := 0
		for _, d := range descs {
			if !leafSet[d.ID] {
				continue
			}
			seen++
			if d.State != "terminated" {
				allDone = false
				break
			}
		}
		if allDone && seen == len(leafSet) {
			h.Terminate()
			return
		}
	}
}

// Run starts fg and blocks until it finishes or ctx is cancelled.
func Run(ctx context.Context, fg *Flowgraph, cfg Config) error {
	h, err := Start(ctx, fg, cfg)
	if err != nil {
		return err
	}
	return h.Wait()
}
