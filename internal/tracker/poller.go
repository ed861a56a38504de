package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"linewatch/internal/domain"
	"linewatch/internal/feed"
	"linewatch/internal/observability"
	"linewatch/internal/resolver"
	"linewatch/internal/storage"
)

// DefaultPollInterval drives the cycle timer when none is configured.
const DefaultPollInterval = 60 * time.Second

// LineResolver resolves the current line observation for a match.
// Implemented by resolver.Resolver.
type LineResolver interface {
	Resolve(ctx context.Context, matchID, externalRef string) (*resolver.Observation, bool)
}

// Notifier accepts notifications for asynchronous delivery. Implemented by
// notify.Queue. A true return confirms the hand-off, not remote delivery.
type Notifier interface {
	Enqueue(n *domain.PendingNotification) bool
}

// Poller drives the tracking engine: one cycle lists the active set, runs
// the state machine per live match, detects completions, and enforces
// retention. Exactly one Poller instance may run against a store.
type Poller struct {
	feed        feed.Client
	resolver    LineResolver
	matches     storage.MatchStore
	history     storage.HistoryStore
	queue       Notifier
	targets     *domain.TargetTable
	enforcer    *Enforcer
	interval    time.Duration
	destination string // notification destination (chat id)
	now         func() time.Time
	logger      *log.Logger

	mu           sync.Mutex
	running      bool
	cycleRunning bool
	cancel       context.CancelFunc
	done         chan struct{}
	cycles       int
	lastCycle    time.Time
}

// PollerOptions contains configuration for creating a Poller.
type PollerOptions struct {
	Feed        feed.Client
	Resolver    LineResolver
	MatchStore  storage.MatchStore
	History     storage.HistoryStore
	Queue       Notifier
	Targets     *domain.TargetTable
	Enforcer    *Enforcer
	Interval    time.Duration // default DefaultPollInterval
	Destination string
	Now         func() time.Time
	Logger      *log.Logger
}

// NewPoller creates a new poll orchestrator.
func NewPoller(opts PollerOptions) *Poller {
	interval := opts.Interval
	if interval == 0 {
		interval = DefaultPollInterval
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Poller{
		feed:        opts.Feed,
		resolver:    opts.Resolver,
		matches:     opts.MatchStore,
		history:     opts.History,
		queue:       opts.Queue,
		targets:     opts.Targets,
		enforcer:    opts.Enforcer,
		interval:    interval,
		destination: opts.Destination,
		now:         now,
		logger:      logger,
	}
}

// Run polls until ctx is cancelled: one immediate cycle, then one per tick.
// A tick that arrives while the previous cycle is still running is skipped
// rather than overlapped.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Printf("Poller started, interval: %v", p.interval)

	p.RunCycle(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Println("Poller stopping...")
			return ctx.Err()
		case <-ticker.C:
			p.RunCycle(ctx)
		}
	}
}

// Start launches Run in a goroutine. Returns an error when already running.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return errors.New("poller already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.running = true
	p.cancel = cancel
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		p.Run(runCtx)

		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()
	return nil
}

// Stop cancels the timer and waits for any in-flight cycle to finish.
// It never interrupts mid-cycle work.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	cancel()
	<-done
}

// Running reports whether the poll loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// CycleResult summarizes one poll cycle.
type CycleResult struct {
	ActiveMatches int
	Created       int
	Touched       int
	Finished      int
	Errors        int
	Duration      time.Duration
}

// RunCycle executes one full cycle. Concurrent calls are single-flight:
// a call that finds a cycle in progress returns immediately.
func (p *Poller) RunCycle(ctx context.Context) *CycleResult {
	p.mu.Lock()
	if p.cycleRunning {
		p.mu.Unlock()
		p.logger.Println("Cycle already running, skipping...")
		return nil
	}
	p.cycleRunning = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.cycleRunning = false
		p.cycles++
		p.lastCycle = p.now()
		p.mu.Unlock()
	}()

	start := p.now()
	result := &CycleResult{}

	active, err := p.feed.ListLive(ctx)
	if err != nil {
		p.logger.Printf("Cycle aborted: list live failed: %v", err)
		observability.RecordCycle("error", p.now().Sub(start).Seconds())
		return result
	}
	result.ActiveMatches = len(active)
	observability.UpdateActiveSetSize(len(active))

	activeSet := make(map[string]bool, len(active))
	for _, lm := range active {
		activeSet[lm.MatchID] = true
		if err := p.processMatch(ctx, lm, result); err != nil {
			p.logger.Printf("Match %s skipped: %v", lm.MatchID, err)
			observability.RecordMatchError()
			result.Errors++
		}
	}

	finished, errs := p.finishVanished(ctx, activeSet)
	result.Finished = finished
	result.Errors += errs

	if p.enforcer != nil {
		p.enforcer.Enforce(ctx)
	}

	if total, err := p.matches.Count(ctx); err == nil {
		observability.UpdateTrackedMatches(total)
	}

	result.Duration = p.now().Sub(start)
	observability.RecordCycle("success", result.Duration.Seconds())
	observability.RecordCycleCompleted(p.now().Unix())
	p.logger.Printf("Cycle completed in %v: %d active, %d created, %d touched, %d finished, %d errors",
		result.Duration, result.ActiveMatches, result.Created, result.Touched, result.Finished, result.Errors)

	return result
}

// processMatch runs the state machine for one live match and applies the
// resulting effects.
func (p *Poller) processMatch(ctx context.Context, lm *feed.LiveMatch, result *CycleResult) error {
	existing, err := p.matches.GetByID(ctx, lm.MatchID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("load match: %w", err)
	}

	var obs *resolver.Observation
	if o, ok := p.resolver.Resolve(ctx, lm.MatchID, lm.ExternalRef); ok {
		obs = o
	}

	target := p.targets.For(lm.LeagueID)
	nowMs := p.now().UnixMilli()
	next, eff := Transition(existing, obs, target, lm, nowMs)

	if eff.Created {
		result.Created++
		observability.RecordMatchCreated()
	}
	if eff.TouchedNow {
		result.Touched++
		observability.RecordTargetTouched()
	}

	// The notified flag flips only on a confirmed queue hand-off; a crash
	// after hand-off but before persist re-sends, which is the accepted
	// at-least-once contract.
	if eff.NotifyDetection {
		ok := p.queue.Enqueue(&domain.PendingNotification{
			Destination: p.destination,
			Body:        detectionMessage(next, target),
		})
		if ok {
			next.DetectionNotified = true
			observability.RecordNotificationEnqueued(notifyKindDetection)
		}
	}

	if eff.Created {
		err = p.matches.Insert(ctx, next)
	} else {
		err = p.matches.Update(ctx, next)
	}
	if err != nil {
		return fmt.Errorf("persist match: %w", err)
	}

	if eff.History != nil {
		if err := p.history.Insert(ctx, eff.History); err != nil {
			if !errors.Is(err, storage.ErrDuplicateKey) {
				return fmt.Errorf("append history: %w", err)
			}
			// Duplicate observation, absorbed
		} else {
			observability.RecordHistoryAppended()
		}
	}

	return nil
}

// finishVanished transitions live matches absent from the active set to
// finished, resolves their final outcome and enqueues completion
// notifications. Returns (finished, errors).
func (p *Poller) finishVanished(ctx context.Context, activeSet map[string]bool) (int, int) {
	live, err := p.matches.GetByStatus(ctx, domain.StatusLive)
	if err != nil {
		p.logger.Printf("Completion detection failed: %v", err)
		return 0, 1
	}

	finished, errs := 0, 0
	for _, m := range live {
		if activeSet[m.MatchID] {
			continue
		}

		m.Status = domain.StatusFinished
		finishedAt := p.now().UnixMilli()
		m.FinishedAt = &finishedAt
		p.resolveOutcome(ctx, m)

		if !m.CompletionNotified {
			ok := p.queue.Enqueue(&domain.PendingNotification{
				Destination: p.destination,
				Body:        completionMessage(m),
			})
			if ok {
				m.CompletionNotified = true
				observability.RecordNotificationEnqueued(notifyKindCompletion)
			}
		}

		if err := p.matches.Update(ctx, m); err != nil {
			p.logger.Printf("Persist completion for %s failed: %v", m.MatchID, err)
			observability.RecordMatchError()
			errs++
			continue
		}
		finished++
		observability.RecordMatchFinished()
	}
	return finished, errs
}

// resolveOutcome fills the final score: the stored progress string first,
// then a remote result lookup. A match can finish with no outcome.
func (p *Poller) resolveOutcome(ctx context.Context, m *domain.TrackedMatch) {
	if home, away, ok := domain.ParseScore(m.CurrentScore); ok {
		m.FinalHome = &home
		m.FinalAway = &away
		return
	}

	if m.ExternalRef == "" {
		return
	}
	score, err := p.feed.Result(ctx, m.ExternalRef)
	if err != nil {
		p.logger.Printf("Result lookup for %s failed: %v", m.MatchID, err)
		return
	}
	if home, away, ok := domain.ParseScore(score); ok {
		m.FinalHome = &home
		m.FinalAway = &away
		m.CurrentScore = domain.FormatScore(home, away)
	}
}

// Cycles reports how many cycles have completed since construction.
func (p *Poller) Cycles() (int, time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cycles, p.lastCycle
}
