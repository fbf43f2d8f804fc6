package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var mu sync.Mutex
	var processed []string
	handler := func(ctx context.Context, job Job) error {
		mu.Lock()
		processed = append(processed, job.ID)
		mu.Unlock()
		return nil
	}

	q := NewQueue("test", handler, QueueConfig{Workers: 2, BufferSize: 4})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "a", Type: "noop"}))
	require.NoError(t, q.Enqueue(Job{ID: "b", Type: "noop"}))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(processed) == 2
	}, time.Second, 10*time.Millisecond)
}

func TestQueueRetriesFailedJob(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	handler := func(ctx context.Context, job Job) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 2 {
			return errors.New("transient")
		}
		return nil
	}

	q := NewQueue("test", handler, QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: 5 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "flaky", Type: "noop"}))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return attempts == 2
	}, time.Second, 10*time.Millisecond)
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	err := q.Enqueue(Job{ID: "early"})
	require.Error(t, err)
}
