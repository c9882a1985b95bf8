package flowgraph

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ehrlich-b/go-flowgraph/internal/block"
	"github.com/ehrlich-b/go-flowgraph/internal/buffer"
	"github.com/ehrlich-b/go-flowgraph/internal/config"
	"github.com/ehrlich-b/go-flowgraph/internal/logging"
)

// BufferPolicy selects the stream-edge buffer backend Connect instantiates.
type BufferPolicy int

const (
	// PolicyCircular backs the edge with a double-mapped ring: the default,
	// suited to small items produced/consumed in varying-size spans.
	PolicyCircular BufferPolicy = iota
	// PolicySlab backs the edge with a pool of fixed-size owned records,
	// suited to large items or items that must move, not copy, across
	// the edge.
	PolicySlab
)

type connectOptions struct {
	policy        BufferPolicy
	capacity      uint64
	minItems      int
	slabRecordLen int
	slabPool      int
}

// ConnectOption customizes one Connect call's buffer policy and sizing.
type ConnectOption func(*connectOptions)

// WithPolicy selects the buffer backend for this edge.
func WithPolicy(p BufferPolicy) ConnectOption {
	return func(o *connectOptions) { o.policy = p }
}

// WithCapacity overrides a circular edge's ring capacity, in items.
func WithCapacity(n uint64) ConnectOption {
	return func(o *connectOptions) { o.capacity = n }
}

// WithMinItems overrides the minimum slice length exposed to the kernel
// before it is asked to act on it.
func WithMinItems(n int) ConnectOption {
	return func(o *connectOptions) { o.minItems = n }
}

// WithSlabRecord overrides a slab edge's per-record item count and pool
// depth.
func WithSlabRecord(recordLen, poolSize int) ConnectOption {
	return func(o *connectOptions) { o.slabRecordLen = recordLen; o.slabPool = poolSize }
}

// registeredBlock is a Flowgraph's bookkeeping for one added block.
type registeredBlock struct {
	id      uint64
	name    string
	kernel  Block
	harness *block.Harness
	meta    *BlockMeta
}

// Flowgraph is a topology of blocks connected by stream and message edges.
// Build one with NewFlowgraph, add blocks with AddBlock, wire them with
// Connect and ConnectMessage, then hand it to Start or Run.
type Flowgraph struct {
	mu        sync.Mutex
	runID     string
	nextID    uint64
	blocks    map[uint64]*registeredBlock
	order     []uint64
	writers   map[string]any // edge key -> *Writer[T]
	rings     map[string]any // edge key -> *buffer.Ring[T]
	slabs     map[string]any // edge key -> *buffer.Slab[T]
	dstBound  map[string]bool
	hasOutput map[uint64]bool // blockID -> has at least one stream output

	cfg      config.Config
	observer Observer
}

// Option customizes NewFlowgraph.
type Option func(*Flowgraph)

// WithConfig supplies the buffer and mailbox sizing configuration in place
// of config.Default(). Its scheduler fields are not read here: the
// scheduler is chosen by the Config passed to Start or Run.
func WithConfig(cfg config.Config) Option {
	return func(fg *Flowgraph) { fg.cfg = cfg }
}

// WithObserver attaches a metrics observer every block's harness reports
// to. NewMetricsObserver wraps a *Metrics for Prometheus-backed defaults.
func WithObserver(o Observer) Option {
	return func(fg *Flowgraph) { fg.observer = o }
}

// NewFlowgraph creates an empty topology.
func NewFlowgraph(opts ...Option) *Flowgraph {
	fg := &Flowgraph{
		runID:     uuid.NewString(),
		blocks:    make(map[uint64]*registeredBlock),
		writers:   make(map[string]any),
		rings:     make(map[string]any),
		slabs:     make(map[string]any),
		dstBound:  make(map[string]bool),
		hasOutput: make(map[uint64]bool),
		cfg:       config.Default(),
	}
	for _, o := range opts {
		o(fg)
	}
	return fg
}

// RunID is a unique identifier assigned at construction time, useful for
// correlating log lines and metrics across every block in one flowgraph.
func (fg *Flowgraph) RunID() string { return fg.runID }

// AddBlock registers kernel under name and returns its block ID, used to
// address it in Connect/ConnectMessage and driver commands.
func (fg *Flowgraph) AddBlock(name string, kernel Block) uint64 {
	fg.mu.Lock()
	defer fg.mu.Unlock()

	id := fg.nextID
	fg.nextID++

	meta := &BlockMeta{ID: id, Name: name, Logger: logging.Default().Named(name).With("run_id", fg.runID)}
	h := block.NewHarness(kernel, meta, fg.cfg.MailboxCapacity)
	if fg.observer != nil {
		h.SetObserver(fg.observer)
	}

	fg.blocks[id] = &registeredBlock{id: id, name: name, kernel: kernel, harness: h, meta: meta}
	fg.order = append(fg.order, id)
	return id
}

func edgeKey(blockID uint64, port string) string {
	return fmt.Sprintf("%d:%s", blockID, port)
}

func defaultConnectOptions(cfg config.Config) connectOptions {
	return connectOptions{
		policy:        PolicyCircular,
		capacity:      cfg.RingCapacity,
		minItems:      1,
		slabRecordLen: cfg.SlabRecordLen,
		slabPool:      cfg.SlabPoolSize,
	}
}

// Connect wires srcBlock's srcPort output to dstBlock's dstPort input with
// a stream edge of item type T, assigning the shared handles directly into
// the block-declared fields srcField/dstField. Connecting the same source
// port more than once fans that output out to multiple readers, each with
// an independent cursor over the same underlying buffer.
func Connect[T any](fg *Flowgraph, srcBlock uint64, srcPort string, dstBlock uint64, dstPort string, srcField **Writer[T], dstField **Reader[T], opts ...ConnectOption) error {
	fg.mu.Lock()
	defer fg.mu.Unlock()

	cfg := defaultConnectOptions(fg.cfg)
	for _, o := range opts {
		o(&cfg)
	}

	src, ok := fg.blocks[srcBlock]
	if !ok {
		return NewError("connect", ErrCodeInvalidTopology, fmt.Sprintf("unknown source block id %d", srcBlock))
	}
	dst, ok := fg.blocks[dstBlock]
	if !ok {
		return NewError("connect", ErrCodeInvalidTopology, fmt.Sprintf("unknown destination block id %d", dstBlock))
	}

	dstKey := edgeKey(dstBlock, dstPort)
	if fg.dstBound[dstKey] {
		return NewPortError("connect", dst.name, dstPort, ErrCodeDuplicateEdge, "input port already connected")
	}
	fg.hasOutput[srcBlock] = true

	key := edgeKey(srcBlock, srcPort)
	var writer *Writer[T]
	if cached, exists := fg.writers[key]; exists {
		w, ok := cached.(*Writer[T])
		if !ok {
			return NewPortError("connect", src.name, srcPort, ErrCodeTypeMismatch, "output port already connected with a different item type")
		}
		writer = w
	} else {
		switch cfg.policy {
		case PolicySlab:
			slab := buffer.NewSlab[T](cfg.slabPool, cfg.slabRecordLen)
			writer = block.NewSlabWriter[T](slab)
			fg.slabs[key] = slab
		default:
			ring, err := buffer.NewRing[T](cfg.capacity, fg.cfg.TmpDir)
			if err != nil {
				return WrapError("connect", err)
			}
			writer = block.NewRingWriter[T](ring, cfg.minItems)
			fg.rings[key] = ring
		}
		writer.SetObserver(fg.observer, src.name, srcPort)
		fg.writers[key] = writer
		src.harness.RegisterOutput(writer)
	}
	*srcField = writer

	var reader *Reader[T]
	switch cfg.policy {
	case PolicySlab:
		slabAny, ok := fg.slabs[key]
		if !ok {
			return NewPortError("connect", src.name, srcPort, ErrCodeInvalidTopology, "missing slab for output port")
		}
		slab, ok := slabAny.(*buffer.Slab[T])
		if !ok {
			return NewPortError("connect", dst.name, dstPort, ErrCodeTypeMismatch, "reader item type does not match output port")
		}
		reader = block.NewSlabReader[T](slab)
	default:
		ringAny, ok := fg.rings[key]
		if !ok {
			return NewPortError("connect", src.name, srcPort, ErrCodeInvalidTopology, "missing ring for output port")
		}
		ring, ok := ringAny.(*buffer.Ring[T])
		if !ok {
			return NewPortError("connect", dst.name, dstPort, ErrCodeTypeMismatch, "reader item type does not match output port")
		}
		reader = block.NewRingReader[T](ring.NewReader(), cfg.minItems)
	}
	reader.SetObserver(fg.observer, dst.name, dstPort)
	*dstField = reader
	dst.harness.RegisterInput(reader)
	fg.dstBound[dstKey] = true
	return nil
}

// ConnectMessage subscribes dstBlock's dstPort handler onto srcBlock's
// srcPort output, fanning out like stream edges do: multiple
// ConnectMessage calls against the same source port each add another
// subscriber.
func (fg *Flowgraph) ConnectMessage(srcBlock uint64, srcPort string, dstBlock uint64, dstPort string) error {
	fg.mu.Lock()
	defer fg.mu.Unlock()

	src, ok := fg.blocks[srcBlock]
	if !ok {
		return NewError("connect-message", ErrCodeInvalidTopology, fmt.Sprintf("unknown source block id %d", srcBlock))
	}
	dst, ok := fg.blocks[dstBlock]
	if !ok {
		return NewError("connect-message", ErrCodeInvalidTopology, fmt.Sprintf("unknown destination block id %d", dstBlock))
	}

	src.harness.MessageOutputs().Subscribe(srcPort, block.Subscriber{
		BlockID: dstBlock,
		Port:    dstPort,
		Mailbox: dst.harness.Mailbox(),
	})
	return nil
}

// LeafBlocks returns the IDs of every registered block with no stream
// output edge — pure sinks, and message-only blocks. Start uses this set
// to cascade shutdown backward: once every leaf has terminated, nothing
// downstream can still be consuming, so any source still running (an
// unbounded generator with no natural stop condition) is sent Terminate.
func (fg *Flowgraph) LeafBlocks() []uint64 {
	fg.mu.Lock()
	defer fg.mu.Unlock()
	var leaves []uint64
	for _, id := range fg.order {
		if !fg.hasOutput[id] {
			leaves = append(leaves, id)
		}
	}
	return leaves
}

// BlockName returns the registered name for id, or "" if unknown.
func (fg *Flowgraph) BlockName(id uint64) string {
	fg.mu.Lock()
	defer fg.mu.Unlock()
	if b, ok := fg.blocks[id]; ok {
		return b.name
	}
	return ""
}
