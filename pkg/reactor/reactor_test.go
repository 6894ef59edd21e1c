package reactor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRunsOnReactorGoroutine(t *testing.T) {
	r := New(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	done := make(chan struct{})
	r.Post(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("posted task never ran")
	}
}

func TestPostOrdering(t *testing.T) {
	r := New(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	var order []int
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		i := i
		r.Post(func() { order = append(order, i) })
	}
	r.Post(func() { close(done) })

	<-done
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestDeferRunsAfterCurrentTask(t *testing.T) {
	r := New(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	var order []string
	done := make(chan struct{})

	r.Post(func() {
		order = append(order, "task")
		r.Defer(func() { order = append(order, "deferred") })
	})
	r.Post(func() { close(done) })

	<-done
	require.Len(t, order, 2)
	assert.Equal(t, []string{"task", "deferred"}, order)
}

func TestCallBlocksUntilComplete(t *testing.T) {
	r := New(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	var value int
	r.Call(func() { value = 42 })
	assert.Equal(t, 42, value)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	r := New(8)
	ctx, cancel := context.WithCancel(context.Background())

	stopped := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(stopped)
	}()

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}
