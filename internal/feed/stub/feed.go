// Package stub provides a scripted in-memory feed for tests and local runs.
package stub

import (
	"context"
	"sync"

	"linewatch/internal/feed"
)

// Feed implements feed.Client from in-memory fixtures. All fields can be
// re-scripted between poll cycles; access is mutex-guarded so tests can
// mutate it while the poller runs.
type Feed struct {
	mu sync.Mutex

	live      []*feed.LiveMatch
	liveLines map[string]*feed.LineQuote // by match id
	prematch  map[string]*feed.LineQuote // by external ref
	results   map[string]string          // by external ref

	listErr    error
	totalsErr  error
	resultErr  error

	listCalls   int
	totalsCalls int
	resultCalls int
}

// New creates an empty stub feed.
func New() *Feed {
	return &Feed{
		liveLines: make(map[string]*feed.LineQuote),
		prematch:  make(map[string]*feed.LineQuote),
		results:   make(map[string]string),
	}
}

// Verify interface compliance at compile time.
var _ feed.Client = (*Feed)(nil)

// SetLive replaces the active set.
func (f *Feed) SetLive(matches ...*feed.LiveMatch) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.live = matches
}

// SetLiveTotals scripts the live totals quote for a match. A nil quote
// means the market is not quoted.
func (f *Feed) SetLiveTotals(matchID string, q *feed.LineQuote) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.liveLines[matchID] = q
}

// SetPrematchTotals scripts the prematch quote for an external ref.
func (f *Feed) SetPrematchTotals(externalRef string, q *feed.LineQuote) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prematch[externalRef] = q
}

// SetResult scripts the final score for an external ref.
func (f *Feed) SetResult(externalRef, score string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[externalRef] = score
}

// FailList makes ListLive return err until cleared with nil.
func (f *Feed) FailList(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}

// FailTotals makes both totals lookups return err until cleared with nil.
func (f *Feed) FailTotals(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.totalsErr = err
}

// FailResult makes Result return err until cleared with nil.
func (f *Feed) FailResult(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resultErr = err
}

// TotalsCalls reports how many totals lookups have been served.
func (f *Feed) TotalsCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.totalsCalls
}

// ListLive returns the scripted active set.
func (f *Feed) ListLive(_ context.Context) ([]*feed.LiveMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}

	result := make([]*feed.LiveMatch, 0, len(f.live))
	for _, m := range f.live {
		matchCopy := *m
		result = append(result, &matchCopy)
	}
	return result, nil
}

// LiveTotals returns the scripted live quote for a match.
func (f *Feed) LiveTotals(_ context.Context, matchID string) (*feed.LineQuote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.totalsCalls++
	if f.totalsErr != nil {
		return nil, f.totalsErr
	}
	q, ok := f.liveLines[matchID]
	if !ok || q == nil {
		return nil, nil
	}
	quoteCopy := *q
	return &quoteCopy, nil
}

// PrematchTotals returns the scripted prematch quote for an external ref.
func (f *Feed) PrematchTotals(_ context.Context, externalRef string) (*feed.LineQuote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.totalsCalls++
	if f.totalsErr != nil {
		return nil, f.totalsErr
	}
	q, ok := f.prematch[externalRef]
	if !ok || q == nil {
		return nil, nil
	}
	quoteCopy := *q
	return &quoteCopy, nil
}

// Result returns the scripted final score for an external ref.
func (f *Feed) Result(_ context.Context, externalRef string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.resultCalls++
	if f.resultErr != nil {
		return "", f.resultErr
	}
	return f.results[externalRef], nil
}
