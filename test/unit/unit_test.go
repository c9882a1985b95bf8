// +build !integration

package unit

import (
	"testing"

	flowgraph "github.com/ehrlich-b/go-flowgraph"
)

// These tests exercise topology construction and error paths without
// starting a scheduler — see test/integration for running-flowgraph tests.

func TestDefaultConfig(t *testing.T) {
	cfg := flowgraph.DefaultConfig()
	if cfg.RingCapacity == 0 {
		t.Error("RingCapacity should be positive")
	}
	if cfg.Scheduler != flowgraph.SchedulerPool {
		t.Errorf("Scheduler = %v, want SchedulerPool", cfg.Scheduler)
	}
}

func TestAddBlockAssignsStableIDs(t *testing.T) {
	fg := flowgraph.NewFlowgraph()
	a := fg.AddBlock("a", flowgraph.NewMockBlock())
	b := fg.AddBlock("b", flowgraph.NewMockBlock())
	if a == b {
		t.Fatalf("AddBlock returned duplicate IDs: %d, %d", a, b)
	}
	if fg.BlockName(a) != "a" || fg.BlockName(b) != "b" {
		t.Error("BlockName did not round-trip the registered name")
	}
}

func TestConnectUnknownBlockIsInvalidTopology(t *testing.T) {
	fg := flowgraph.NewFlowgraph()
	a := fg.AddBlock("a", flowgraph.NewMockBlock())

	var w *flowgraph.Writer[int32]
	var r *flowgraph.Reader[int32]
	err := flowgraph.Connect(fg, a, "out", 999, "in", &w, &r)
	if err == nil {
		t.Fatal("expected an error connecting to an unregistered block")
	}
	if !flowgraph.IsCode(err, flowgraph.ErrCodeInvalidTopology) {
		t.Errorf("err = %v, want ErrCodeInvalidTopology", err)
	}
}

func TestConnectDuplicateDestinationPortRejected(t *testing.T) {
	fg := flowgraph.NewFlowgraph()
	src := fg.AddBlock("src", flowgraph.NewMockBlock())
	dst1 := fg.AddBlock("dst1", flowgraph.NewMockBlock())
	dst2 := fg.AddBlock("dst2", flowgraph.NewMockBlock())

	var w1, w2 *flowgraph.Writer[int32]
	var r1 *flowgraph.Reader[int32]
	if err := flowgraph.Connect(fg, src, "out", dst1, "in", &w1, &r1); err != nil {
		t.Fatalf("first connect failed: %v", err)
	}

	var r2 *flowgraph.Reader[int32]
	if err := flowgraph.Connect(fg, src, "out", dst1, "in", &w2, &r2); err == nil {
		t.Fatal("expected duplicate destination port to be rejected")
	} else if !flowgraph.IsCode(err, flowgraph.ErrCodeDuplicateEdge) {
		t.Errorf("err = %v, want ErrCodeDuplicateEdge", err)
	}

	// A second connection from the same source to a different destination
	// is fan-out, not a duplicate, and must succeed.
	var w3 *flowgraph.Writer[int32]
	var r3 *flowgraph.Reader[int32]
	if err := flowgraph.Connect(fg, src, "out", dst2, "in", &w3, &r3); err != nil {
		t.Errorf("fan-out connect should succeed: %v", err)
	}
}

func TestConnectTypeMismatchRejected(t *testing.T) {
	fg := flowgraph.NewFlowgraph()
	src := fg.AddBlock("src", flowgraph.NewMockBlock())
	dst := fg.AddBlock("dst", flowgraph.NewMockBlock())

	var w1 *flowgraph.Writer[int32]
	var r1 *flowgraph.Reader[int32]
	if err := flowgraph.Connect(fg, src, "out", dst, "in", &w1, &r1); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	other := fg.AddBlock("other", flowgraph.NewMockBlock())
	var w2 *flowgraph.Writer[float32]
	var r2 *flowgraph.Reader[float32]
	if err := flowgraph.Connect(fg, src, "out", other, "in", &w2, &r2); err == nil {
		t.Fatal("expected a type mismatch against the already-typed output port")
	} else if !flowgraph.IsCode(err, flowgraph.ErrCodeTypeMismatch) {
		t.Errorf("err = %v, want ErrCodeTypeMismatch", err)
	}
}

func TestMockBlockLifecycleCounters(t *testing.T) {
	mb := flowgraph.NewMockBlock()
	if mb.WorkCalls() != 0 || mb.InitCalls() != 0 || mb.DeinitCalls() != 0 {
		t.Fatal("fresh MockBlock should have zero call counts")
	}

	io := &flowgraph.WorkIO{}
	if err := mb.Work(nil, io, nil, nil); err != nil {
		t.Errorf("Work returned an error: %v", err)
	}
	if mb.WorkCalls() != 1 {
		t.Errorf("WorkCalls = %d, want 1", mb.WorkCalls())
	}
	if !io.Finished {
		t.Error("default MockBlock.Work should set Finished")
	}
}

func TestErrorIsMatchesByCode(t *testing.T) {
	err := flowgraph.NewPortError("connect", "src", "out", flowgraph.ErrCodeTypeMismatch, "boom")
	if !flowgraph.IsCode(err, flowgraph.ErrCodeTypeMismatch) {
		t.Error("IsCode should match the error's own code")
	}
	if flowgraph.IsCode(err, flowgraph.ErrCodeDuplicateEdge) {
		t.Error("IsCode should not match an unrelated code")
	}
}
