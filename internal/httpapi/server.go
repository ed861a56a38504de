// Package httpapi exposes the engine over HTTP: read endpoints for
// matches, stats and the call log, plus admin endpoints for the tracker
// lifecycle, backfill and a test notification.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"linewatch/internal/domain"
	"linewatch/internal/notify"
	"linewatch/internal/observability"
	"linewatch/internal/storage"
	"linewatch/internal/tracker"
)

// Server wires the engine components to HTTP routes.
type Server struct {
	poller      *tracker.Poller
	backfiller  *tracker.Backfiller
	query       *tracker.QueryService
	queue       *notify.Queue
	destination string
	logger      *log.Logger
	started     time.Time
}

// Options contains configuration for creating a Server.
type Options struct {
	Poller      *tracker.Poller
	Backfiller  *tracker.Backfiller
	Query       *tracker.QueryService
	Queue       *notify.Queue
	Destination string
	Logger      *log.Logger
}

// New creates a new API server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		poller:      opts.Poller,
		backfiller:  opts.Backfiller,
		query:       opts.Query,
		queue:       opts.Queue,
		destination: opts.Destination,
		logger:      logger,
		started:     time.Now(),
	}
}

// Handler returns the route table as an http.Handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", observability.Handler())
	mux.HandleFunc("GET /status", s.handleStatus)

	mux.HandleFunc("GET /api/matches", s.handleListMatches)
	mux.HandleFunc("GET /api/matches/{id}", s.handleGetMatch)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/calls", s.handleCalls)

	mux.HandleFunc("POST /api/tracker/start", s.handleTrackerStart)
	mux.HandleFunc("POST /api/tracker/stop", s.handleTrackerStop)
	mux.HandleFunc("POST /api/backfill", s.handleBackfill)
	mux.HandleFunc("POST /api/notify/test", s.handleNotifyTest)

	return mux
}

// ListenAndServe blocks serving the API on addr.
func (s *Server) ListenAndServe(addr string) error {
	s.logger.Printf("Starting HTTP server on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// StatusResponse reports process-level state.
type StatusResponse struct {
	Status        string    `json:"status"`
	Uptime        string    `json:"uptime"`
	PollerRunning bool      `json:"poller_running"`
	Cycles        int       `json:"cycles"`
	LastCycle     time.Time `json:"last_cycle,omitempty"`
	QueueStats    any       `json:"queue,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	cycles, lastCycle := s.poller.Cycles()

	resp := StatusResponse{
		Status:        "running",
		Uptime:        time.Since(s.started).String(),
		PollerRunning: s.poller.Running(),
		Cycles:        cycles,
	}
	if !lastCycle.IsZero() {
		resp.LastCycle = lastCycle
	}
	if s.queue != nil {
		resp.QueueStats = s.queue.Stats()
	}

	writeJSON(w, http.StatusOK, resp)
}

// matchResponse is the wire form of a tracked match.
type matchResponse struct {
	MatchID            string   `json:"match_id"`
	ExternalRef        string   `json:"external_ref,omitempty"`
	LeagueID           string   `json:"league_id"`
	HomeTeam           string   `json:"home_team"`
	AwayTeam           string   `json:"away_team"`
	DetectedAt         int64    `json:"detected_at"`
	DetectionLine      *float64 `json:"detection_line"`
	CurrentLine        *float64 `json:"current_line"`
	CurrentScore       string   `json:"current_score,omitempty"`
	Status             string   `json:"status"`
	FinalHome          *int     `json:"final_home"`
	FinalAway          *int     `json:"final_away"`
	FinishedAt         *int64   `json:"finished_at,omitempty"`
	TouchedTarget      bool     `json:"touched_target"`
	DetectionNotified  bool     `json:"detection_notified"`
	CompletionNotified bool     `json:"completion_notified"`
}

func toMatchResponse(m *domain.TrackedMatch) *matchResponse {
	return &matchResponse{
		MatchID:            m.MatchID,
		ExternalRef:        m.ExternalRef,
		LeagueID:           m.LeagueID,
		HomeTeam:           m.HomeTeam,
		AwayTeam:           m.AwayTeam,
		DetectedAt:         m.DetectedAt,
		DetectionLine:      m.DetectionLine,
		CurrentLine:        m.CurrentLine,
		CurrentScore:       m.CurrentScore,
		Status:             string(m.Status),
		FinalHome:          m.FinalHome,
		FinalAway:          m.FinalAway,
		FinishedAt:         m.FinishedAt,
		TouchedTarget:      m.TouchedTarget,
		DetectionNotified:  m.DetectionNotified,
		CompletionNotified: m.CompletionNotified,
	}
}

type historyResponse struct {
	Line       float64 `json:"line"`
	OverOdds   string  `json:"over_odds"`
	ObservedAt int64   `json:"observed_at"`
}

func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.MatchFilter{
		Status:   domain.Status(q.Get("status")),
		LeagueID: q.Get("league"),
		Limit:    intQuery(q.Get("limit"), 100),
		Offset:   intQuery(q.Get("offset"), 0),
	}

	matches, err := s.query.ListMatches(r.Context(), filter)
	if err != nil {
		s.internalError(w, "list matches", err)
		return
	}

	resp := make([]*matchResponse, 0, len(matches))
	for _, m := range matches {
		resp = append(resp, toMatchResponse(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	detail, err := s.query.GetMatch(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "match not found")
			return
		}
		s.internalError(w, "get match", err)
		return
	}

	history := make([]*historyResponse, 0, len(detail.History))
	for _, h := range detail.History {
		history = append(history, &historyResponse{
			Line:       h.Line,
			OverOdds:   h.OverOdds,
			ObservedAt: h.ObservedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"match":   toMatchResponse(detail.Match),
		"history": history,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.query.Stats(r.Context())
	if err != nil {
		s.internalError(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type callResponse struct {
	Endpoint  string `json:"endpoint"`
	Status    int    `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	ErrorText string `json:"error_text,omitempty"`
	CalledAt  int64  `json:"called_at"`
}

func (s *Server) handleCalls(w http.ResponseWriter, r *http.Request) {
	entries, err := s.query.RecentCalls(r.Context(), intQuery(r.URL.Query().Get("limit"), 100))
	if err != nil {
		s.internalError(w, "recent calls", err)
		return
	}

	resp := make([]*callResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, &callResponse{
			Endpoint:  e.Endpoint,
			Status:    e.Status,
			LatencyMs: e.LatencyMs,
			ErrorText: e.ErrorText,
			CalledAt:  e.CalledAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTrackerStart(w http.ResponseWriter, r *http.Request) {
	// The poll loop outlives the request.
	if err := s.poller.Start(context.Background()); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (s *Server) handleTrackerStop(w http.ResponseWriter, r *http.Request) {
	s.poller.Stop()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) handleBackfill(w http.ResponseWriter, r *http.Request) {
	result, err := s.backfiller.Run(r.Context())
	if err != nil {
		s.internalError(w, "backfill", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleNotifyTest(w http.ResponseWriter, r *http.Request) {
	ok := s.queue.Enqueue(&domain.PendingNotification{
		Destination: s.destination,
		Body:        "linewatch test notification",
	})
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "queue rejected notification")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Printf("HTTP %s failed: %v", op, err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func intQuery(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
