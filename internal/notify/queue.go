package notify

import (
	"context"
	"log"
	"sync"
	"time"

	"linewatch/internal/domain"
	"linewatch/internal/observability"
)

// Default queue configuration values.
const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 5 * time.Second
	DefaultPace       = 1 * time.Second
)

// Queue is a FIFO of pending notifications with a single drain loop.
// Producers may enqueue concurrently; items present at the start of a drain
// pass go out in order. A failed send re-enters at the tail after a linear
// backoff until the retry ceiling, then is dropped with a logged failure.
type Queue struct {
	gateway    Gateway
	maxRetries int
	retryDelay time.Duration // backoff base, multiplied by retryCount
	pace       time.Duration // applied after every attempt, success or not
	logger     *log.Logger

	mu    sync.Mutex
	items []*domain.PendingNotification
	wake  chan struct{}

	delivered int64
	dropped   int64
}

// QueueOptions contains configuration for creating a Queue.
type QueueOptions struct {
	Gateway    Gateway
	MaxRetries int           // default 3
	RetryDelay time.Duration // default 5s
	Pace       time.Duration // default 1s
	Logger     *log.Logger
}

// NewQueue creates a new delivery queue.
func NewQueue(opts QueueOptions) *Queue {
	maxRetries := opts.MaxRetries
	if maxRetries == 0 {
		maxRetries = DefaultMaxRetries
	}
	retryDelay := opts.RetryDelay
	if retryDelay == 0 {
		retryDelay = DefaultRetryDelay
	}
	pace := opts.Pace
	if pace == 0 {
		pace = DefaultPace
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Queue{
		gateway:    opts.Gateway,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		pace:       pace,
		logger:     logger,
		wake:       make(chan struct{}, 1),
	}
}

// Enqueue hands a notification to the queue and wakes the drain loop.
// A true return is the hand-off confirmation the tracker's notified flags
// key off; it says nothing about remote delivery.
func (q *Queue) Enqueue(n *domain.PendingNotification) bool {
	if n == nil || n.Destination == "" {
		return false
	}

	q.mu.Lock()
	q.items = append(q.items, n)
	q.mu.Unlock()

	q.signal()
	return true
}

// Len returns the number of items currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Run drains the queue until ctx is cancelled. It processes to empty, then
// idles until the next Enqueue wakes it.
func (q *Queue) Run(ctx context.Context) error {
	q.logger.Println("Delivery queue started")

	for {
		item := q.pop()
		if item == nil {
			select {
			case <-ctx.Done():
				q.logger.Println("Delivery queue stopping...")
				return ctx.Err()
			case <-q.wake:
				continue
			}
		}

		q.attempt(ctx, item)

		// Pacing between attempts regardless of outcome
		select {
		case <-time.After(q.pace):
		case <-ctx.Done():
			q.logger.Println("Delivery queue stopping...")
			return ctx.Err()
		}
	}
}

// attempt performs one delivery attempt and applies the retry policy.
func (q *Queue) attempt(ctx context.Context, item *domain.PendingNotification) {
	err := q.gateway.Send(ctx, item.Destination, item.Body)
	if err == nil {
		q.mu.Lock()
		q.delivered++
		q.mu.Unlock()
		observability.RecordNotificationDelivered()
		return
	}

	item.RetryCount++
	if item.RetryCount < q.maxRetries {
		q.logger.Printf("Delivery to %s failed (attempt %d): %v", item.Destination, item.RetryCount, err)
		delay := time.Duration(item.RetryCount) * q.retryDelay
		time.AfterFunc(delay, func() {
			q.requeue(item)
		})
		return
	}

	q.mu.Lock()
	q.dropped++
	q.mu.Unlock()
	observability.RecordNotificationDropped()
	q.logger.Printf("Dropping notification to %s after %d attempts: %v", item.Destination, item.RetryCount, err)
}

// requeue puts a failed item back at the tail and wakes the drain loop.
func (q *Queue) requeue(item *domain.PendingNotification) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
	q.signal()
}

// pop removes the head item, or nil when the queue is empty.
func (q *Queue) pop() *domain.PendingNotification {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item
}

// signal wakes the drain loop without blocking a producer.
func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// QueueStats reports delivery counters.
type QueueStats struct {
	Queued    int   `json:"queued"`
	Delivered int64 `json:"delivered"`
	Dropped   int64 `json:"dropped"`
}

// Stats returns current counters.
func (q *Queue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{
		Queued:    len(q.items),
		Delivered: q.delivered,
		Dropped:   q.dropped,
	}
}
