package domain

// LineHistoryRecord is one distinct (match, line, over odds) observation.
// Corresponds to line_history table in PostgreSQL. Rows are append-only:
// created once, never updated, deleted only when the owning match is evicted.
type LineHistoryRecord struct {
	MatchID    string
	Line       float64
	OverOdds   string // bookmaker quote paired with the line at observation time
	ObservedAt int64  // Unix timestamp in milliseconds
}
