package flowgraph

import (
	"github.com/ehrlich-b/go-flowgraph/internal/block"
	"github.com/ehrlich-b/go-flowgraph/internal/pmt"
)

// Block is the kernel contract every block author implements: Work is
// invoked repeatedly by the block's harness. Stream ports are not
// parameters of Work — a block declares them as typed fields on its own
// struct (e.g. `In *flowgraph.Reader[float32]`) which Connect wires up
// before the flowgraph starts.
type Block = block.Block

// Initializer is optionally implemented for one-time setup before the
// first Work invocation.
type Initializer = block.Initializer

// Deinitializer is optionally implemented for one-time teardown after the
// last Work invocation.
type Deinitializer = block.Deinitializer

// MessagePorts is optionally implemented to declare a block's input
// message ports and their handlers.
type MessagePorts = block.MessagePorts

// MessagePort names one input message port and its handler.
type MessagePort = block.MessagePort

// Handler processes one message delivered to a declared input port.
type Handler = block.Handler

// WorkIO is the per-invocation signal channel between a kernel and its
// harness.
type WorkIO = block.WorkIO

// BlockMeta carries a block's runtime identity and logger.
type BlockMeta = block.Meta

// MessageOutputs lets a handler or Work invocation post to declared output
// message ports.
type MessageOutputs = block.MessageOutputs

// Writer is the per-edge handle a block uses to produce stream items.
type Writer[T any] = block.Writer[T]

// Reader is the per-edge handle a block uses to consume stream items.
type Reader[T any] = block.Reader[T]

// Value is the polymorphic message payload type (null/bool/int/float/
// string/blob/vector/map/named/any).
type Value = pmt.Value

// Re-exported Value constructors, so block authors importing only the root
// package can build message payloads without an internal import.
var (
	Null      = pmt.Null
	BoolValue = pmt.Bool
	I64Value  = pmt.I64
	U64Value  = pmt.U64
	F64Value  = pmt.F64
	StrValue  = pmt.String
	BlobValue = pmt.Blob
	VecValue  = pmt.Vector
	MapValue  = pmt.Map
	AnyValue  = pmt.Any
	Named     = pmt.Named
	NamedU64  = pmt.NamedU64
)
