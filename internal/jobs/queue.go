package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrQueueEmpty is returned by Pop when no job id arrived before the timeout.
var ErrQueueEmpty = errors.New("jobs: queue empty")

// Queue carries job ids from the API to workers. Delivery is at-least-once;
// the job claim makes processing idempotent.
type Queue interface {
	Ping(ctx context.Context) error
	Push(ctx context.Context, jobID string) error
	Pop(ctx context.Context, timeout time.Duration) (string, error)
}

// RedisQueue is a Redis list used as a FIFO: LPUSH to enqueue, BRPOP to consume.
type RedisQueue struct {
	client *redis.Client
	name   string
}

// NewRedisQueue wraps an existing client.
func NewRedisQueue(client *redis.Client, name string) *RedisQueue {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "outfit:jobs"
	}
	return &RedisQueue{client: client, name: name}
}

// NewRedisClient opens a client for addr. Connectivity is checked lazily by Ping.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

func (q *RedisQueue) Name() string { return q.name }

func (q *RedisQueue) Ping(ctx context.Context) error {
	if q == nil || q.client == nil {
		return errors.New("jobs: queue not configured")
	}
	return q.client.Ping(ctx).Err()
}

func (q *RedisQueue) Push(ctx context.Context, jobID string) error {
	if err := q.client.LPush(ctx, q.name, jobID).Err(); err != nil {
		return fmt.Errorf("jobs: push %s: %w", jobID, err)
	}
	return nil
}

// Pop blocks up to timeout for the oldest job id.
func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := q.client.BRPop(ctx, timeout, q.name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrQueueEmpty
		}
		return "", fmt.Errorf("jobs: pop: %w", err)
	}
	// res[0] is the list name.
	if len(res) < 2 {
		return "", ErrQueueEmpty
	}
	return res[1], nil
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}
