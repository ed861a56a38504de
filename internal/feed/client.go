// Package feed implements the upstream odds-feed client. All reads go over
// HTTP JSON with bounded timeouts and retries; every call is recorded to the
// operational call log regardless of outcome.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"linewatch/internal/domain"
	"linewatch/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 2
	DefaultRetryDelay = 1 * time.Second
)

// Client is the interface the resolver and poller consume. The HTTP
// implementation below is the production one; internal/feed/stub provides a
// scripted one for tests.
type Client interface {
	// ListLive returns the fixtures the feed currently reports in progress.
	ListLive(ctx context.Context) ([]*LiveMatch, error)

	// LiveTotals returns the current total-goals quote for a fixture, or
	// (nil, nil) when the market is not quoted.
	LiveTotals(ctx context.Context, matchID string) (*LineQuote, error)

	// PrematchTotals returns the pre-match total-goals quote looked up by
	// the secondary ref, or (nil, nil) when absent.
	PrematchTotals(ctx context.Context, externalRef string) (*LineQuote, error)

	// Result returns the final score string for a fixture by secondary ref.
	Result(ctx context.Context, externalRef string) (string, error)
}

// CallLogger records upstream calls. Implemented by the call-log store;
// a nil logger disables recording.
type CallLogger interface {
	Insert(ctx context.Context, e *domain.CallLogEntry) error
}

// HTTPClient implements Client against the upstream REST feed.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
	callLog    CallLogger
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts per call.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets the delay between retries.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithCallLogger sets the call-log recorder.
func WithCallLogger(l CallLogger) ClientOption {
	return func(c *HTTPClient) {
		c.callLog = l
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new upstream feed client.
func NewHTTPClient(baseURL, apiKey string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		client:     &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Verify interface compliance at compile time.
var _ Client = (*HTTPClient)(nil)

// ListLive returns the fixtures the feed currently reports in progress.
func (c *HTTPClient) ListLive(ctx context.Context) ([]*LiveMatch, error) {
	var payload liveListPayload
	if err := c.get(ctx, "/live", &payload); err != nil {
		return nil, err
	}

	matches := make([]*LiveMatch, 0, len(payload.Matches))
	for _, m := range payload.Matches {
		// Malformed entries are dropped here so partially-parsed values
		// never reach the tracker.
		if m.FixtureID == "" || m.LeagueID == "" {
			continue
		}
		matches = append(matches, &LiveMatch{
			MatchID:     m.FixtureID,
			LeagueID:    m.LeagueID,
			HomeTeam:    m.Home,
			AwayTeam:    m.Away,
			Score:       m.Score,
			ExternalRef: m.Ref,
		})
	}
	return matches, nil
}

// LiveTotals returns the current total-goals quote for a fixture.
func (c *HTTPClient) LiveTotals(ctx context.Context, matchID string) (*LineQuote, error) {
	if matchID == "" {
		return nil, fmt.Errorf("live totals: empty match id")
	}

	var payload totalsPayload
	if err := c.get(ctx, "/odds/live/"+url.PathEscape(matchID), &payload); err != nil {
		return nil, err
	}
	return quoteFromPayload(&payload), nil
}

// PrematchTotals returns the pre-match total-goals quote by secondary ref.
func (c *HTTPClient) PrematchTotals(ctx context.Context, externalRef string) (*LineQuote, error) {
	if externalRef == "" {
		return nil, fmt.Errorf("prematch totals: empty ref")
	}

	var payload totalsPayload
	if err := c.get(ctx, "/odds/prematch/"+url.PathEscape(externalRef), &payload); err != nil {
		return nil, err
	}
	return quoteFromPayload(&payload), nil
}

// Result returns the final score string for a fixture by secondary ref.
func (c *HTTPClient) Result(ctx context.Context, externalRef string) (string, error) {
	if externalRef == "" {
		return "", fmt.Errorf("result: empty ref")
	}

	var payload resultPayload
	if err := c.get(ctx, "/results/"+url.PathEscape(externalRef), &payload); err != nil {
		return "", err
	}
	return payload.Score, nil
}

// quoteFromPayload validates a totals payload into a LineQuote.
func quoteFromPayload(p *totalsPayload) *LineQuote {
	if p.Totals == nil || p.Totals.Line == "" {
		return nil
	}
	return &LineQuote{
		Line:  p.Totals.Line,
		Over:  p.Totals.Over,
		Under: p.Totals.Under,
	}
}

// get performs a GET with retries and records the call.
func (c *HTTPClient) get(ctx context.Context, path string, result interface{}) error {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		start := time.Now()
		status, err := c.doOnce(ctx, path, result)
		elapsed := time.Since(start)
		observability.RecordUpstreamCall(endpointLabel(path), elapsed.Seconds(), err)
		c.record(ctx, path, status, elapsed, err)
		if err == nil {
			return nil
		}
		lastErr = err

		// Client errors will not heal on retry
		if status >= 400 && status < 500 {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return fmt.Errorf("GET %s: %w", path, lastErr)
}

// doOnce performs a single GET attempt.
func (c *HTTPClient) doOnce(ctx context.Context, path string, result interface{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, fmt.Errorf("status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}

// endpointLabel strips per-call path segments so metric labels stay bounded.
func endpointLabel(path string) string {
	for _, prefix := range []string{"/odds/live/", "/odds/prematch/", "/results/"} {
		if strings.HasPrefix(path, prefix) {
			return strings.TrimSuffix(prefix, "/")
		}
	}
	return path
}

// record writes one call-log entry. The call log is observability-only, so
// a failed insert is not surfaced to the caller.
func (c *HTTPClient) record(ctx context.Context, endpoint string, status int, latency time.Duration, callErr error) {
	if c.callLog == nil {
		return
	}

	entry := &domain.CallLogEntry{
		Endpoint:  endpoint,
		Status:    status,
		LatencyMs: latency.Milliseconds(),
		CalledAt:  time.Now().UnixMilli(),
	}
	if callErr != nil {
		entry.ErrorText = callErr.Error()
	}
	_ = c.callLog.Insert(ctx, entry)
}
