// Package resolver turns upstream line quotes into validated observations.
// It chains a live snapshot lookup with a prematch fallback and caches both
// for a short window so one poll cycle cannot hammer the feed.
package resolver

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"linewatch/internal/feed"
)

// DefaultCacheTTL bounds upstream call volume during a poll cycle.
const DefaultCacheTTL = 30 * time.Second

// Observation is a validated line observation. Line is always numeric;
// anything unparsable never leaves this package.
type Observation struct {
	Line      float64
	OverOdds  string
	UnderOdds string
}

// cacheEntry stores one lookup result. quote == nil means the market was
// confirmed absent, which is cached the same as a hit.
type cacheEntry struct {
	quote     *feed.LineQuote
	fetchedAt time.Time
}

// Resolver resolves the current total-goals line for a match.
type Resolver struct {
	feed   feed.Client
	ttl    time.Duration
	now    func() time.Time
	logger *log.Logger

	mu       sync.Mutex
	live     map[string]cacheEntry // by match id
	prematch map[string]cacheEntry // by external ref
}

// Options for creating a Resolver.
type Options struct {
	Feed     feed.Client
	CacheTTL time.Duration // defaults to DefaultCacheTTL
	Now      func() time.Time
	Logger   *log.Logger
}

// New creates a new Resolver.
func New(opts Options) *Resolver {
	ttl := opts.CacheTTL
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Resolver{
		feed:     opts.Feed,
		ttl:      ttl,
		now:      now,
		logger:   logger,
		live:     make(map[string]cacheEntry),
		prematch: make(map[string]cacheEntry),
	}
}

// Resolve returns the current observation for a match, trying the live
// snapshot first and the prematch snapshot as fallback. ok=false means
// unavailable; upstream failures never propagate as errors.
func (r *Resolver) Resolve(ctx context.Context, matchID, externalRef string) (*Observation, bool) {
	if quote, ok := r.lookupLive(ctx, matchID); ok {
		if obs := validate(quote); obs != nil {
			return obs, true
		}
	}

	if externalRef == "" {
		return nil, false
	}

	quote, ok := r.lookupPrematch(ctx, externalRef)
	if !ok {
		return nil, false
	}
	obs := validate(quote)
	if obs == nil {
		return nil, false
	}
	return obs, true
}

// lookupLive fetches the live quote through the cache. ok=false means the
// lookup failed; a nil quote with ok=true means confirmed absent.
func (r *Resolver) lookupLive(ctx context.Context, matchID string) (*feed.LineQuote, bool) {
	if cached, hit := r.cached(r.live, matchID); hit {
		return cached, true
	}

	quote, err := r.feed.LiveTotals(ctx, matchID)
	if err != nil {
		r.logger.Printf("Live totals lookup failed for %s: %v", matchID, err)
		return nil, false
	}
	r.store(r.live, matchID, quote)
	return quote, true
}

// lookupPrematch fetches the prematch quote through the cache.
func (r *Resolver) lookupPrematch(ctx context.Context, externalRef string) (*feed.LineQuote, bool) {
	if cached, hit := r.cached(r.prematch, externalRef); hit {
		return cached, true
	}

	quote, err := r.feed.PrematchTotals(ctx, externalRef)
	if err != nil {
		r.logger.Printf("Prematch totals lookup failed for %s: %v", externalRef, err)
		return nil, false
	}
	r.store(r.prematch, externalRef, quote)
	return quote, true
}

func (r *Resolver) cached(cache map[string]cacheEntry, key string) (*feed.LineQuote, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := cache[key]
	if !ok || r.now().Sub(entry.fetchedAt) > r.ttl {
		return nil, false
	}
	return entry.quote, true
}

func (r *Resolver) store(cache map[string]cacheEntry, key string, quote *feed.LineQuote) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cache[key] = cacheEntry{quote: quote, fetchedAt: r.now()}
}

// validate parses a raw quote into an Observation, failing closed on
// anything non-numeric.
func validate(quote *feed.LineQuote) *Observation {
	if quote == nil {
		return nil
	}
	line, err := strconv.ParseFloat(quote.Line, 64)
	if err != nil || line < 0 {
		return nil
	}
	return &Observation{
		Line:      line,
		OverOdds:  quote.Over,
		UnderOdds: quote.Under,
	}
}
