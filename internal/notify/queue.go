package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/AltairaLabs/lead-oversight/internal/config"
	"github.com/AltairaLabs/lead-oversight/internal/types"
)

var (
	// ErrQueueFull is returned when an alert arrives while the queue is at capacity
	ErrQueueFull = errors.New("notify: delivery queue full")

	// ErrPermanent marks a delivery failure that must not be retried
	ErrPermanent = errors.New("notify: permanent delivery failure")
)

// RetryPolicy defines the backoff between delivery attempts
type RetryPolicy struct {
	MaxRetries        int           // 0 = no retries
	InitialDelay      time.Duration // delay before the first retry
	MaxDelay          time.Duration // cap between retries
	BackoffMultiplier float64       // e.g. 2.0
}

// RetryPolicyFrom extracts the retry policy of a delivery config
func RetryPolicyFrom(cfg config.DeliveryConfig) RetryPolicy {
	return RetryPolicy{
		MaxRetries:        cfg.MaxRetries,
		InitialDelay:      cfg.InitialDelay,
		MaxDelay:          cfg.MaxDelay,
		BackoffMultiplier: cfg.BackoffMultiplier,
	}
}

// NextDelay returns the wait before retry number retryCount+1, or false once retries are exhausted.
// The delay grows exponentially, is capped at MaxDelay and carries ±25% jitter.
func (p RetryPolicy) NextDelay(retryCount int) (time.Duration, bool) {
	if retryCount >= p.MaxRetries {
		return 0, false
	}

	delay := float64(p.InitialDelay)
	for i := 0; i < retryCount; i++ {
		delay *= p.BackoffMultiplier
	}
	if time.Duration(delay) > p.MaxDelay {
		delay = float64(p.MaxDelay)
	}

	jitter := delay * 0.25 * (2*rand.Float64() - 1)
	return time.Duration(delay + jitter), true
}

// IsRetryable reports whether a failed delivery should be attempted again
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPermanent) || errors.Is(err, context.Canceled) {
		return false
	}
	return true
}

type delivery struct {
	alert    types.Alert
	attempts int
	due      time.Time
}

// Queue decouples alert producers from a slow or flaky sink.
// Notify only enqueues; a background loop delivers in arrival order and retries failures with backoff.
type Queue struct {
	next     Notifier
	policy   RetryPolicy
	interval time.Duration
	capacity int
	logger   *slog.Logger
	now      func() time.Time

	dispatchMu sync.Mutex

	mu      sync.Mutex
	pending []delivery
	wake    chan struct{}
}

// NewQueue wraps next with queued delivery
func NewQueue(next Notifier, cfg config.DeliveryConfig, logger *slog.Logger) *Queue {
	return &Queue{
		next:     next,
		policy:   RetryPolicyFrom(cfg),
		interval: cfg.Interval,
		capacity: cfg.Capacity,
		logger:   logger,
		now:      time.Now,
		wake:     make(chan struct{}, 1),
	}
}

// Notify enqueues the alert; it never waits on the sink
func (q *Queue) Notify(ctx context.Context, alert types.Alert) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) >= q.capacity {
		q.logger.WarnContext(ctx, "Alert dropped, delivery queue full",
			"alert_id", alert.ID,
			"alert_type", alert.Type,
			"capacity", q.capacity,
		)
		return fmt.Errorf("%w: alert %s", ErrQueueFull, alert.ID)
	}
	q.pending = append(q.pending, delivery{alert: alert, due: q.now()})

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// Len returns the number of alerts awaiting delivery
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Start delivers until ctx is canceled, then flushes what is left once
func (q *Queue) Start(ctx context.Context) {
	q.logger.Info("Alert delivery started", "interval", q.interval)

	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			q.Dispatch(ctx, q.now())
		case <-q.wake:
			q.Dispatch(ctx, q.now())
		case <-ctx.Done():
			q.Flush(context.WithoutCancel(ctx))
			q.logger.Info("Alert delivery stopped", "undelivered", q.Len())
			return
		}
	}
}

// Dispatch attempts every alert whose backoff has elapsed and returns how many were delivered
func (q *Queue) Dispatch(ctx context.Context, now time.Time) int {
	q.dispatchMu.Lock()
	defer q.dispatchMu.Unlock()
	return q.deliver(ctx, q.take(now, false), now)
}

// Flush attempts every pending alert once, ignoring backoff
func (q *Queue) Flush(ctx context.Context) int {
	q.dispatchMu.Lock()
	defer q.dispatchMu.Unlock()
	now := q.now()
	return q.deliver(ctx, q.take(now, true), now)
}

func (q *Queue) take(now time.Time, all bool) []delivery {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due, rest []delivery
	for _, d := range q.pending {
		if all || !d.due.After(now) {
			due = append(due, d)
		} else {
			rest = append(rest, d)
		}
	}
	q.pending = rest
	return due
}

func (q *Queue) deliver(ctx context.Context, batch []delivery, now time.Time) int {
	delivered := 0
	var retry []delivery

	for _, d := range batch {
		err := q.next.Notify(ctx, d.alert)
		if err == nil {
			delivered++
			continue
		}

		delay, ok := q.policy.NextDelay(d.attempts)
		if !ok || !IsRetryable(err) {
			q.logger.ErrorContext(ctx, "Alert delivery failed permanently",
				"alert_id", d.alert.ID,
				"alert_type", d.alert.Type,
				"attempts", d.attempts+1,
				"error", err,
			)
			continue
		}

		d.attempts++
		d.due = now.Add(delay)
		q.logger.WarnContext(ctx, "Alert delivery failed, scheduled for retry",
			"alert_id", d.alert.ID,
			"alert_type", d.alert.Type,
			"retry_count", d.attempts,
			"retry_in", delay,
			"error", err,
		)
		retry = append(retry, d)
	}

	if len(retry) > 0 {
		q.mu.Lock()
		q.pending = append(retry, q.pending...)
		q.mu.Unlock()
	}
	return delivered
}
