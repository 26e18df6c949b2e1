package tasks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/shipledger/internal/logging"
	"github.com/dmitrijs2005/shipledger/internal/server/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_RunsTasks(t *testing.T) {
	m := metrics.New()
	q := NewQueue(2, 8, time.Second, logging.Nop(), m)

	var n atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		ok := q.Dispatch("count", func(ctx context.Context) error {
			defer wg.Done()
			n.Add(1)
			return nil
		})
		require.True(t, ok)
	}
	wg.Wait()

	require.NoError(t, q.Shutdown(time.Second))
	assert.Equal(t, int32(5), n.Load())
	assert.Equal(t, 5.0, testutil.ToFloat64(m.TasksTotal.WithLabelValues("count", "ok")))
}

func TestQueue_FailureAndPanicAreContained(t *testing.T) {
	m := metrics.New()
	q := NewQueue(1, 4, time.Second, logging.Nop(), m)

	require.True(t, q.Dispatch("fail", func(ctx context.Context) error { return errors.New("boom") }))
	require.True(t, q.Dispatch("panic", func(ctx context.Context) error { panic("kaboom") }))

	done := make(chan struct{})
	require.True(t, q.Dispatch("after", func(ctx context.Context) error { close(done); return nil }))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive failing tasks")
	}
	require.NoError(t, q.Shutdown(time.Second))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksTotal.WithLabelValues("fail", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksTotal.WithLabelValues("panic", "panic")))
}

func TestQueue_DropsWhenFull(t *testing.T) {
	m := metrics.New()
	q := NewQueue(1, 1, time.Second, logging.Nop(), m)

	release := make(chan struct{})
	started := make(chan struct{})
	require.True(t, q.Dispatch("block", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started

	require.True(t, q.Dispatch("queued", func(ctx context.Context) error { return nil }))
	assert.False(t, q.Dispatch("overflow", func(ctx context.Context) error { return nil }))

	close(release)
	require.NoError(t, q.Shutdown(time.Second))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksTotal.WithLabelValues("overflow", "dropped")))
}

func TestQueue_DispatchAfterShutdown(t *testing.T) {
	q := NewQueue(1, 1, time.Second, logging.Nop(), nil)
	require.NoError(t, q.Shutdown(time.Second))
	assert.False(t, q.Dispatch("late", func(ctx context.Context) error { return nil }))
	require.NoError(t, q.Shutdown(time.Second))
}

func TestQueue_TaskTimeout(t *testing.T) {
	q := NewQueue(1, 1, 20*time.Millisecond, logging.Nop(), nil)

	errc := make(chan error, 1)
	require.True(t, q.Dispatch("slow", func(ctx context.Context) error {
		<-ctx.Done()
		errc <- ctx.Err()
		return ctx.Err()
	}))

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("task context was not cancelled")
	}
	require.NoError(t, q.Shutdown(time.Second))
}

func TestQueue_ShutdownTimeout(t *testing.T) {
	q := NewQueue(1, 1, time.Minute, logging.Nop(), nil)

	started := make(chan struct{})
	require.True(t, q.Dispatch("stuck", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}))
	<-started

	err := q.Shutdown(10 * time.Millisecond)
	require.Error(t, err)
}
