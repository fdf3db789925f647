package notify

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/brightlane/agencyhub/pkg/async"
	"github.com/brightlane/agencyhub/pkg/observability"
)

const (
	maxAttempts  = 5
	sendTimeout  = 15 * time.Second
	pollInterval = 2 * time.Second
)

// Dispatcher drains the queue and hands deliveries to the sender on a
// bounded worker pool. Failed deliveries are parked for retry with
// exponential backoff; a cron job sweeps due retries back into the queue.
type Dispatcher struct {
	queue   *RedisQueue
	sender  Sender
	logger  *observability.Logger
	metrics *observability.Metrics
	pool    *async.WorkerPool
	cron    *cron.Cron
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewDispatcher creates a dispatcher with the given delivery concurrency.
func NewDispatcher(queue *RedisQueue, sender Sender, workers int, logger *observability.Logger, metrics *observability.Metrics) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		queue:   queue,
		sender:  sender,
		logger:  logger,
		metrics: metrics,
		pool:    async.NewWorkerPool(ctx, workers, "notification delivery", sendTimeout, logger),
		cron:    cron.New(),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Start launches the drain loop and the retry sweep job.
func (d *Dispatcher) Start(ctx context.Context) error {
	_, err := d.cron.AddFunc("@every 1m", func() {
		swept, err := d.queue.SweepRetries(context.Background(), time.Now())
		if err != nil {
			d.logger.WithError(err).Warn("retry sweep failed")
			return
		}
		if swept > 0 {
			d.logger.WithField("count", swept).Info("requeued notifications for retry")
		}
	})
	if err != nil {
		return err
	}
	d.cron.Start()

	go d.drain(ctx)
	return nil
}

func (d *Dispatcher) drain(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := d.queue.Dequeue(ctx, pollInterval)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.logger.WithError(err).Warn("failed to dequeue notification")
			time.Sleep(pollInterval)
			continue
		}
		if n == nil {
			continue
		}

		notification := n
		if err := d.pool.Submit(func(taskCtx context.Context) error {
			d.deliver(taskCtx, notification)
			return nil
		}); err != nil {
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n *Notification) {
	err := d.sender.Send(ctx, n)
	if err == nil {
		if d.metrics != nil {
			d.metrics.NotificationsDeliveredTotal.Inc()
		}
		return
	}

	if d.metrics != nil {
		d.metrics.NotificationsFailedTotal.Inc()
	}

	n.Attempts++
	log := d.logger.WithError(err).WithFields(map[string]interface{}{
		"notification_id": n.ID,
		"attempts":        n.Attempts,
	})
	if n.Attempts >= maxAttempts {
		log.Error("dropping notification after max attempts")
		return
	}

	// Backoff doubles per attempt: 1m, 2m, 4m, 8m.
	delay := time.Duration(1<<(n.Attempts-1)) * time.Minute
	if retryErr := d.queue.ScheduleRetry(ctx, n, time.Now().Add(delay)); retryErr != nil {
		log.WithError(retryErr).Error("failed to schedule notification retry")
		return
	}
	log.Warn("notification delivery failed, scheduled retry")
}

// Stop halts the sweep job and drains in-flight deliveries.
func (d *Dispatcher) Stop(timeout time.Duration) error {
	d.cron.Stop()
	d.cancel()
	select {
	case <-d.done:
	case <-time.After(timeout):
	}
	return d.pool.Shutdown(timeout)
}

// LogSender writes deliveries to the log. It stands in for a real mail
// gateway in development and tests.
type LogSender struct {
	Logger *observability.Logger
}

// Send implements Sender.
func (s *LogSender) Send(ctx context.Context, n *Notification) error {
	s.Logger.WithFields(map[string]interface{}{
		"notification_id": n.ID,
		"recipient":       n.Recipient,
		"subject":         n.Subject,
		"entity_kind":     string(n.EntityKind),
		"entity_id":       n.EntityID,
	}).Info("notification delivered")
	return nil
}
