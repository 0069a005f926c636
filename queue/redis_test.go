package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docingest/config"
	"docingest/internal/core/domain"
	"docingest/internal/ingest"
)

func newTestQueue(t *testing.T) *RedisQueue {
	t.Helper()

	redisConfig := &config.RedisConfig{
		Host: "localhost",
		Port: "6379",
		DB:   4,
	}
	workerConfig := &config.WorkerConfig{
		QueueName:   "docingest_test_queue",
		PollTimeout: time.Second,
	}

	queue, err := NewRedisQueue(redisConfig, workerConfig)
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() {
		queue.client.Del(context.Background(), workerConfig.QueueName)
		queue.Close()
	})
	return queue
}

func TestEnqueueDequeue(t *testing.T) {
	queue := newTestQueue(t)
	ctx := context.Background()

	job := ingest.Job{
		DocumentID:  "doc-1",
		Owner:       domain.Owner{UserID: "u1"},
		StoragePath: "uploads/report.pdf",
	}
	require.NoError(t, queue.Enqueue(ctx, job))

	depth, err := queue.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth)

	dequeued, err := queue.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, dequeued)
	assert.Equal(t, job, *dequeued)
}

func TestDequeueTimeout(t *testing.T) {
	queue := newTestQueue(t)

	job, err := queue.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestDequeueOrderIsFIFO(t *testing.T) {
	queue := newTestQueue(t)
	ctx := context.Background()

	for _, id := range []string{"first", "second", "third"} {
		require.NoError(t, queue.Enqueue(ctx, ingest.Job{
			DocumentID: id,
			Owner:      domain.Owner{UserID: "u1"},
		}))
	}

	for _, want := range []string{"first", "second", "third"} {
		job, err := queue.Dequeue(ctx)
		require.NoError(t, err)
		require.NotNil(t, job)
		assert.Equal(t, want, job.DocumentID)
	}
}
