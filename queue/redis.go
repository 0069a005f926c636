// Package queue hands uploaded documents to background processing through a
// Redis list. One queue entry is one pending ingestion run.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"docingest/config"
	"docingest/internal/ingest"
)

type RedisQueue struct {
	client      *redis.Client
	queueName   string
	pollTimeout time.Duration
}

func NewRedisQueue(redisConfig *config.RedisConfig, workerConfig *config.WorkerConfig) (*RedisQueue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", redisConfig.Host, redisConfig.Port),
		Password: redisConfig.Password,
		DB:       redisConfig.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisQueue{
		client:      client,
		queueName:   workerConfig.QueueName,
		pollTimeout: workerConfig.PollTimeout,
	}, nil
}

// Enqueue appends one ingestion job to the queue
func (q *RedisQueue) Enqueue(ctx context.Context, job ingest.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, q.queueName, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

// Dequeue blocks up to the poll timeout for the next job. A timeout returns
// (nil, nil) so the caller can poll again and still observe cancellation.
func (q *RedisQueue) Dequeue(ctx context.Context) (*ingest.Job, error) {
	result, err := q.client.BRPop(ctx, q.pollTimeout, q.queueName).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}
	if len(result) < 2 {
		return nil, fmt.Errorf("invalid queue result")
	}

	var job ingest.Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

// Depth returns the number of pending jobs
func (q *RedisQueue) Depth(ctx context.Context) (int64, error) {
	depth, err := q.client.LLen(ctx, q.queueName).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue length: %w", err)
	}
	return depth, nil
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}
