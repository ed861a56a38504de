package notify

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"linewatch/internal/domain"
)

// scriptedGateway fails a configured number of times per destination before
// succeeding, and records deliveries.
type scriptedGateway struct {
	mu        sync.Mutex
	failFirst map[string]int // remaining failures per destination
	delivered []string       // bodies in delivery order
	attempts  map[string]int
}

func newScriptedGateway() *scriptedGateway {
	return &scriptedGateway{
		failFirst: make(map[string]int),
		attempts:  make(map[string]int),
	}
}

func (g *scriptedGateway) Send(_ context.Context, destination, body string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.attempts[body]++
	if g.failFirst[body] > 0 {
		g.failFirst[body]--
		return errors.New("gateway unavailable")
	}
	g.delivered = append(g.delivered, body)
	return nil
}

func (g *scriptedGateway) deliveredBodies() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.delivered...)
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func testQueue(g Gateway) *Queue {
	return NewQueue(QueueOptions{
		Gateway:    g,
		RetryDelay: time.Millisecond,
		Pace:       time.Millisecond,
		Logger:     quietLogger(),
	})
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached before timeout")
}

func TestQueue_FIFODelivery(t *testing.T) {
	g := newScriptedGateway()
	q := testQueue(g)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	for _, body := range []string{"first", "second", "third"} {
		if !q.Enqueue(&domain.PendingNotification{Destination: "42", Body: body}) {
			t.Fatal("Enqueue rejected item")
		}
	}

	waitFor(t, 2*time.Second, func() bool { return len(g.deliveredBodies()) == 3 })

	got := g.deliveredBodies()
	if got[0] != "first" || got[1] != "second" || got[2] != "third" {
		t.Errorf("delivery order: %v", got)
	}
}

func TestQueue_RetryThenSucceed(t *testing.T) {
	g := newScriptedGateway()
	g.failFirst["flaky"] = 2 // fail twice, succeed on third attempt
	q := testQueue(g)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	item := &domain.PendingNotification{Destination: "42", Body: "flaky"}
	q.Enqueue(item)

	waitFor(t, 2*time.Second, func() bool { return len(g.deliveredBodies()) == 1 })

	if item.RetryCount != 2 {
		t.Errorf("RetryCount at success = %d, want 2", item.RetryCount)
	}
	g.mu.Lock()
	attempts := g.attempts["flaky"]
	g.mu.Unlock()
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3 (no duplicate enqueue)", attempts)
	}

	stats := q.Stats()
	if stats.Delivered != 1 || stats.Dropped != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestQueue_DropAfterRetryCeiling(t *testing.T) {
	g := newScriptedGateway()
	g.failFirst["doomed"] = 100
	q := testQueue(g)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	q.Enqueue(&domain.PendingNotification{Destination: "42", Body: "doomed"})

	waitFor(t, 2*time.Second, func() bool { return q.Stats().Dropped == 1 })

	g.mu.Lock()
	attempts := g.attempts["doomed"]
	g.mu.Unlock()
	if attempts != DefaultMaxRetries {
		t.Errorf("attempts = %d, want %d", attempts, DefaultMaxRetries)
	}
	if len(g.deliveredBodies()) != 0 {
		t.Error("dropped item must not be delivered")
	}
}

func TestQueue_FailureDoesNotBlockOthers(t *testing.T) {
	g := newScriptedGateway()
	g.failFirst["bad"] = 100
	q := testQueue(g)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	q.Enqueue(&domain.PendingNotification{Destination: "42", Body: "bad"})
	q.Enqueue(&domain.PendingNotification{Destination: "42", Body: "good"})

	waitFor(t, 2*time.Second, func() bool { return len(g.deliveredBodies()) == 1 })

	if got := g.deliveredBodies(); got[0] != "good" {
		t.Errorf("delivered = %v", got)
	}
}

func TestQueue_EnqueueValidation(t *testing.T) {
	q := testQueue(newScriptedGateway())

	if q.Enqueue(nil) {
		t.Error("nil item must be rejected")
	}
	if q.Enqueue(&domain.PendingNotification{Body: "no destination"}) {
		t.Error("missing destination must be rejected")
	}
	if q.Len() != 0 {
		t.Errorf("queue should stay empty, len=%d", q.Len())
	}
}
