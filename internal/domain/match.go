package domain

// Status is the lifecycle state of a tracked match.
// Transitions are monotonic: live -> finished, never back.
type Status string

const (
	StatusLive     Status = "LIVE"
	StatusFinished Status = "FINISHED"
)

// TrackedMatch represents one live match under observation.
// Corresponds to tracked_matches table in PostgreSQL.
type TrackedMatch struct {
	MatchID     string // PRIMARY KEY, upstream fixture id
	ExternalRef string // secondary id used for prematch/result lookups, immutable once set
	LeagueID    string
	HomeTeam    string
	AwayTeam    string

	DetectedAt    int64    // first-seen timestamp (ms), immutable
	DetectionLine *float64 // frozen at the target once TouchedTarget is true
	CurrentLine   *float64 // latest observed line, freely mutable
	CurrentScore  string   // latest observed score string, freely mutable

	Status     Status
	FinalHome  *int  // set only on completion
	FinalAway  *int  // set only on completion
	FinishedAt *int64

	// Monotonic flags, false -> true only.
	TouchedTarget      bool
	DetectionNotified  bool
	CompletionNotified bool

	CreatedAt int64 // record creation timestamp (ms)
}

// Clone returns a deep copy so callers can mutate freely.
func (m *TrackedMatch) Clone() *TrackedMatch {
	if m == nil {
		return nil
	}
	c := *m
	c.DetectionLine = clonePtr(m.DetectionLine)
	c.CurrentLine = clonePtr(m.CurrentLine)
	c.FinalHome = clonePtr(m.FinalHome)
	c.FinalAway = clonePtr(m.FinalAway)
	c.FinishedAt = clonePtr(m.FinishedAt)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
