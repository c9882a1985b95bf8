package flowgraph

import (
	"context"
	"sync"
)

// MockBlock is a scriptable Block for unit tests: each Work invocation
// calls the supplied WorkFunc (or, if nil, marks itself finished). It
// tracks invocation counts so tests can assert on dispatch behavior
// without re-implementing a real DSP kernel.
type MockBlock struct {
	WorkFunc   func(ctx context.Context, io *WorkIO, mio *MessageOutputs, meta *BlockMeta) error
	InitFunc   func(ctx context.Context, meta *BlockMeta) error
	DeinitFunc func(ctx context.Context, meta *BlockMeta) error
	Ports      []MessagePort

	mu         sync.Mutex
	workCalls  int
	initCalls  int
	deinitCalls int
}

// NewMockBlock creates a mock block. With no WorkFunc set, the first Work
// call finishes the block — useful as a placeholder in topology tests.
func NewMockBlock() *MockBlock {
	return &MockBlock{}
}

func (m *MockBlock) Work(ctx context.Context, io *WorkIO, mio *MessageOutputs, meta *BlockMeta) error {
	m.mu.Lock()
	m.workCalls++
	m.mu.Unlock()

	if m.WorkFunc != nil {
		return m.WorkFunc(ctx, io, mio, meta)
	}
	io.Finished = true
	return nil
}

func (m *MockBlock) Init(ctx context.Context, meta *BlockMeta) error {
	m.mu.Lock()
	m.initCalls++
	m.mu.Unlock()
	if m.InitFunc != nil {
		return m.InitFunc(ctx, meta)
	}
	return nil
}

func (m *MockBlock) Deinit(ctx context.Context, meta *BlockMeta) error {
	m.mu.Lock()
	m.deinitCalls++
	m.mu.Unlock()
	if m.DeinitFunc != nil {
		return m.DeinitFunc(ctx, meta)
	}
	return nil
}

func (m *MockBlock) MessagePorts() []MessagePort { return m.Ports }

// WorkCalls returns how many times Work has been invoked.
func (m *MockBlock) WorkCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.workCalls
}

// InitCalls returns how many times Init has been invoked.
func (m *MockBlock) InitCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initCalls
}

// DeinitCalls returns how many times Deinit has been invoked.
func (m *MockBlock) DeinitCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deinitCalls
}

var (
	_ Block         = (*MockBlock)(nil)
	_ Initializer   = (*MockBlock)(nil)
	_ Deinitializer = (*MockBlock)(nil)
	_ MessagePorts  = (*MockBlock)(nil)
)
