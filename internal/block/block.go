package block

import (
	"context"

	"github.com/ehrlich-b/go-flowgraph/internal/logging"
)

// Block is the kernel contract every external block implements: a bounded
// step of work invoked by the harness. Stream input/output handles are not
// passed through Work's arguments — they are typed fields the block author
// declares on their own struct (e.g. `In *block.Reader[float32]`) and that
// the flowgraph wires up at Connect time.
type Block interface {
	Work(ctx context.Context, io *WorkIO, mio *MessageOutputs, meta *Meta) error
}

// Initializer is optionally implemented by a Block for one-time setup.
type Initializer interface {
	Init(ctx context.Context, meta *Meta) error
}

// Deinitializer is optionally implemented by a Block for one-time teardown.
type Deinitializer interface {
	Deinit(ctx context.Context, meta *Meta) error
}

// WorkIO is the per-invocation signal channel between a kernel and its
// harness: the kernel sets CallAgain to request immediate re-invocation,
// and Finished to signal self-termination.
type WorkIO struct {
	CallAgain bool
	Finished  bool
}

// Meta carries a block's runtime identity and logger into Work/Init/Deinit
// and message handler invocations.
type Meta struct {
	ID     uint64
	Name   string
	Logger *logging.Logger
}

// MessagePort describes one declared input message port: a name and the
// handler invoked when a message for it is drained from the mailbox.
type MessagePort struct {
	Name    string
	Handler Handler
}

// MessagePorts is optionally implemented by a Block to declare its input
// message ports.
type MessagePorts interface {
	MessagePorts() []MessagePort
}
