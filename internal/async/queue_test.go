package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestWorkerQueue_DrainsOnShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	var (
		mu   sync.Mutex
		seen []string
		peak atomic.Int32
		cur  atomic.Int32
	)
	q := NewWorkerQueue(func(ctx context.Context, job Job) error {
		n := cur.Add(1)
		defer cur.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		seen = append(seen, job.Path)
		mu.Unlock()
		if job.Path == "bad.xlsx" {
			return errors.New("boom")
		}
		return nil
	}, nil, WithWorkers(2), WithQueueSize(1))

	paths := []string{"a.xlsx", "bad.xlsx", "c.xlsx", "d.xlsx", "e.xlsx"}
	for _, p := range paths {
		require.NoError(t, q.Enqueue(context.Background(), Job{Path: p}))
	}
	q.Shutdown(context.Background())

	assert.ElementsMatch(t, paths, seen)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestWorkerQueue_EnqueueAfterShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)
	q := NewWorkerQueue(func(context.Context, Job) error { return nil }, nil)
	q.Shutdown(context.Background())
	q.Shutdown(context.Background())

	err := q.Enqueue(context.Background(), Job{Path: "late.xlsx"})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestWorkerQueue_JobTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)
	got := make(chan error, 1)
	q := NewWorkerQueue(func(ctx context.Context, job Job) error {
		<-ctx.Done()
		got <- ctx.Err()
		return ctx.Err()
	}, nil, WithWorkers(1), WithProcessTimeout(20*time.Millisecond))

	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "slow.xlsx"}))
	q.Shutdown(context.Background())
	assert.ErrorIs(t, <-got, context.DeadlineExceeded)
}

func TestWorkerQueue_EnqueueBlockedUntilCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)
	release := make(chan struct{})
	q := NewWorkerQueue(func(ctx context.Context, job Job) error {
		<-release
		return nil
	}, nil, WithWorkers(1), WithQueueSize(1))

	// one job held by the worker, one in the buffer
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "1.xlsx"}))
	require.Eventually(t, func() bool { return len(q.ch) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "2.xlsx"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.Enqueue(ctx, Job{Path: "3.xlsx"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	q.Shutdown(context.Background())
}
