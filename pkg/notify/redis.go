package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/brightlane/agencyhub/pkg/observability"
)

const (
	pendingKey = "agencyhub:notify:pending"
	retryKey   = "agencyhub:notify:retry"
)

// RedisQueue is the Redis-backed notification queue. Pending deliveries
// live on a list; failed ones are parked on a sorted set scored by their
// next attempt time and swept back by the dispatcher's cron job.
type RedisQueue struct {
	client  *redis.Client
	metrics *observability.Metrics
}

// NewRedisQueue creates a queue over the given Redis client. Metrics may
// be nil.
func NewRedisQueue(client *redis.Client, metrics *observability.Metrics) *RedisQueue {
	return &RedisQueue{client: client, metrics: metrics}
}

// Enqueue pushes a notification onto the pending list.
func (q *RedisQueue) Enqueue(ctx context.Context, n *Notification) error {
	prepare(n)

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	if err := q.client.LPush(ctx, pendingKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}
	if q.metrics != nil {
		q.metrics.NotificationsEnqueuedTotal.Inc()
	}
	return nil
}

// Dequeue pops the oldest pending notification, blocking up to timeout.
// Returns (nil, nil) when the queue stays empty.
func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (*Notification, error) {
	res, err := q.client.BRPop(ctx, timeout, pendingKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue notification: %w", err)
	}

	var n Notification
	if err := json.Unmarshal([]byte(res[1]), &n); err != nil {
		return nil, fmt.Errorf("failed to unmarshal notification: %w", err)
	}
	return &n, nil
}

// ScheduleRetry parks a failed notification until its next attempt time.
func (q *RedisQueue) ScheduleRetry(ctx context.Context, n *Notification, at time.Time) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	err = q.client.ZAdd(ctx, retryKey, &redis.Z{
		Score:  float64(at.Unix()),
		Member: payload,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to schedule retry: %w", err)
	}
	return nil
}

// SweepRetries moves every parked notification whose attempt time has
// passed back onto the pending list. Returns how many were requeued.
func (q *RedisQueue) SweepRetries(ctx context.Context, now time.Time) (int, error) {
	due, err := q.client.ZRangeByScore(ctx, retryKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read retry set: %w", err)
	}

	for _, payload := range due {
		pipe := q.client.TxPipeline()
		pipe.ZRem(ctx, retryKey, payload)
		pipe.LPush(ctx, pendingKey, payload)
		if _, err := pipe.Exec(ctx); err != nil {
			return 0, fmt.Errorf("failed to requeue notification: %w", err)
		}
	}
	return len(due), nil
}
