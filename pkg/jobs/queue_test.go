package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	done := make(chan string, 2)
	q := NewQueue("runs", func(_ context.Context, job Job) error {
		done <- job.ID
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "a"}))
	require.NoError(t, q.TryEnqueue(Job{ID: "b"}))

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case id := <-done:
			got[id] = true
		case <-time.After(2 * time.Second):
			t.Fatal("job not processed")
		}
	}
	assert.Equal(t, map[string]bool{"a": true, "b": true}, got)
}

func TestQueueRetriesThenReportsDead(t *testing.T) {
	var attempts int32
	dead := make(chan error, 1)
	q := NewQueue("runs", func(context.Context, Job) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("flaky")
	}, QueueConfig{
		MaxRetries: 2,
		RetryDelay: 5 * time.Millisecond,
		OnDead:     func(_ context.Context, _ Job, err error) { dead <- err },
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "r1"}))

	select {
	case err := <-dead:
		assert.EqualError(t, err, "flaky")
	case <-time.After(2 * time.Second):
		t.Fatal("dead handler not called")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestQueuePermanentErrorSkipsRetry(t *testing.T) {
	var attempts int32
	dead := make(chan Job, 1)
	q := NewQueue("runs", func(context.Context, Job) error {
		atomic.AddInt32(&attempts, 1)
		return Permanent(errors.New("malformed"))
	}, QueueConfig{MaxRetries: 5, OnDead: func(_ context.Context, job Job, _ error) { dead <- job }})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "p1"}))

	select {
	case job := <-dead:
		assert.Equal(t, "p1", job.ID)
		assert.Equal(t, 1, job.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("dead handler not called")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestQueueRecoversPanics(t *testing.T) {
	dead := make(chan error, 1)
	q := NewQueue("runs", func(context.Context, Job) error {
		panic("boom")
	}, QueueConfig{OnDead: func(_ context.Context, _ Job, err error) { dead <- err }})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "x"}))

	select {
	case err := <-dead:
		assert.True(t, IsPermanent(err))
		assert.Contains(t, err.Error(), "boom")
	case <-time.After(2 * time.Second):
		t.Fatal("panic not reported")
	}
}

func TestTryEnqueueReportsFullBuffer(t *testing.T) {
	release := make(chan struct{})
	q := NewQueue("runs", func(context.Context, Job) error {
		<-release
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())
	defer func() {
		close(release)
		q.Stop()
	}()

	require.NoError(t, q.Enqueue(Job{ID: "busy"}))
	require.Eventually(t, func() bool { return q.Pending() == 0 }, time.Second, time.Millisecond)
	require.NoError(t, q.TryEnqueue(Job{ID: "buffered"}))

	err := q.TryEnqueue(Job{ID: "overflow"})
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("runs", func(context.Context, Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{ID: "early"}))
	assert.Error(t, q.TryEnqueue(Job{ID: "early"}))
}
