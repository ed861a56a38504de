package feed

// LiveMatch is one entry of the upstream "list live" response after
// validation. Entries with a missing fixture or league id are dropped at the
// parsing boundary rather than propagated half-formed.
type LiveMatch struct {
	MatchID     string
	LeagueID    string
	HomeTeam    string
	AwayTeam    string
	Score       string // progress string, e.g. "1-0"
	ExternalRef string // secondary id for prematch/result lookups, may be empty
}

// LineQuote is a total-goals line snapshot: the line plus its paired
// over/under quotes, all as the upstream sends them (strings).
type LineQuote struct {
	Line  string
	Over  string
	Under string
}

// liveListPayload mirrors the upstream live-fixtures response.
type liveListPayload struct {
	Matches []liveMatchPayload `json:"matches"`
}

// liveMatchPayload is one loosely structured upstream fixture entry.
type liveMatchPayload struct {
	FixtureID string `json:"fixture_id"`
	LeagueID  string `json:"league_id"`
	Home      string `json:"home"`
	Away      string `json:"away"`
	Score     string `json:"score"`
	Ref       string `json:"ref"`
}

// totalsPayload mirrors both the live and the prematch totals responses.
// Totals is null when the book is not quoting the market.
type totalsPayload struct {
	Totals *struct {
		Line  string `json:"line"`
		Over  string `json:"over"`
		Under string `json:"under"`
	} `json:"totals"`
}

// resultPayload mirrors the result-lookup response.
type resultPayload struct {
	Score string `json:"score"`
}
