package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAllExecutesEveryTask(t *testing.T) {
	pool := NewPool(4, zerolog.Nop())

	var counter int64
	tasks := make([]Task, 10)
	for i := range tasks {
		tasks[i] = Task{
			Name: fmt.Sprintf("task-%d", i),
			Run: func(ctx context.Context) error {
				atomic.AddInt64(&counter, 1)
				return nil
			},
		}
	}

	results := pool.RunAll(context.Background(), tasks)

	require.Len(t, results, 10)
	assert.Equal(t, int64(10), counter)
	for i, r := range results {
		assert.Equal(t, fmt.Sprintf("task-%d", i), r.Name)
		assert.NoError(t, r.Err)
	}
}

func TestRunAllIsolatesFailures(t *testing.T) {
	pool := NewPool(2, zerolog.Nop())
	boom := errors.New("boom")

	tasks := []Task{
		{Name: "ok", Run: func(ctx context.Context) error { return nil }},
		{Name: "fails", Run: func(ctx context.Context) error { return boom }},
		{Name: "also ok", Run: func(ctx context.Context) error { return nil }},
	}

	results := pool.RunAll(context.Background(), tasks)

	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, boom)
	assert.NoError(t, results[2].Err)
}

func TestRunAllRecoversPanics(t *testing.T) {
	pool := NewPool(2, zerolog.Nop())

	tasks := []Task{
		{Name: "panics", Run: func(ctx context.Context) error { panic("unexpected") }},
		{Name: "survives", Run: func(ctx context.Context) error { return nil }},
	}

	results := pool.RunAll(context.Background(), tasks)

	require.Error(t, results[0].Err)
	assert.Contains(t, results[0].Err.Error(), "panicked")
	assert.NoError(t, results[1].Err)
}

func TestRunAllCancelledContext(t *testing.T) {
	pool := NewPool(2, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tasks := []Task{
		{Name: "skipped", Run: func(ctx context.Context) error {
			t.Error("task must not run after cancellation")
			return nil
		}},
	}

	results := pool.RunAll(ctx, tasks)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
}

func TestRunAllEmpty(t *testing.T) {
	pool := NewPool(0, zerolog.Nop())
	results := pool.RunAll(context.Background(), nil)
	assert.Empty(t, results)
}
