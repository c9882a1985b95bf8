package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func makeTasks(n int, ran *atomic.Int64) []BlockTask {
	tasks := make([]BlockTask, n)
	for i := 0; i < n; i++ {
		tasks[i] = BlockTask{
			ID:   uint64(i),
			Name: "task",
			Run: func(ctx context.Context) error {
				ran.Add(1)
				return nil
			},
		}
	}
	return tasks
}

func TestPool_RunsAllTasks(t *testing.T) {
	var ran atomic.Int64
	err := Pool{Workers: 2}.Run(context.Background(), makeTasks(10, &ran))
	require.NoError(t, err)
	require.EqualValues(t, 10, ran.Load())
}

func TestFlow_RunsAllTasks(t *testing.T) {
	var ran atomic.Int64
	err := Flow{Cores: 2}.Run(context.Background(), makeTasks(6, &ran))
	require.NoError(t, err)
	require.EqualValues(t, 6, ran.Load())
}

func TestTPB_RunsAllTasks(t *testing.T) {
	var ran atomic.Int64
	err := TPB{}.Run(context.Background(), makeTasks(4, &ran))
	require.NoError(t, err)
	require.EqualValues(t, 4, ran.Load())
}

func TestPool_PropagatesFirstError(t *testing.T) {
	boom := errors.New("boom")
	tasks := []BlockTask{
		{ID: 1, Run: func(ctx context.Context) error { return boom }},
		{ID: 2, Run: func(ctx context.Context) error { <-ctx.Done(); return ctx.Err() }},
	}
	err := Pool{Workers: 2}.Run(context.Background(), tasks)
	require.ErrorIs(t, err, boom)
}

func TestMapBlock_Deterministic(t *testing.T) {
	require.Equal(t, mapBlock(5, 4), mapBlock(5, 4))
	require.Equal(t, 0, mapBlock(8, 4))
}

// TestPool_DoesNotDeadlockWhenTasksOutliveWorkers exercises a harness-shaped
// task: one that blocks for its entire lifetime rather than returning after
// a unit of work. With more such tasks than configured workers, a naive
// SetLimit(workers) would never schedule the excess tasks, and anything
// waiting on one of them would hang forever (modeled here by the test
// itself waiting for every one of the n tasks to start before it cancels).
func TestPool_DoesNotDeadlockWhenTasksOutliveWorkers(t *testing.T) {
	const n = 5
	started := make(chan struct{}, n)
	tasks := make([]BlockTask, n)
	for i := 0; i < n; i++ {
		tasks[i] = BlockTask{
			ID:   uint64(i),
			Name: "task",
			Run: func(ctx context.Context) error {
				started <- struct{}{}
				<-ctx.Done()
				return ctx.Err()
			},
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- (Pool{Workers: 2}).Run(ctx, tasks) }()

	for i := 0; i < n; i++ {
		<-started
	}
	cancel()
	<-done
}

func TestRunRecovered_RepanicsAfterLogging(t *testing.T) {
	task := BlockTask{ID: 1, Name: "boom", Run: func(ctx context.Context) error {
		panic("kernel bug")
	}}

	defer func() {
		r := recover()
		require.Equal(t, "kernel bug", r)
	}()
	_ = runRecovered(context.Background(), task)
	t.Fatal("runRecovered should have re-panicked")
}
