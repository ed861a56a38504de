package tracker

import (
	"fmt"

	"linewatch/internal/domain"
)

// Notification kinds used for metrics labels.
const (
	notifyKindDetection  = "detection"
	notifyKindCompletion = "completion"
	notifyKindTest       = "test"
)

// detectionMessage formats the first-touch alert.
func detectionMessage(m *domain.TrackedMatch, target float64) string {
	score := m.CurrentScore
	if score == "" {
		score = "0-0"
	}
	return fmt.Sprintf("Line alert: %s vs %s (league %s) total-goals line hit %.2f at %s",
		m.HomeTeam, m.AwayTeam, m.LeagueID, target, score)
}

// completionMessage formats the match-finished alert.
func completionMessage(m *domain.TrackedMatch) string {
	result := "result unavailable"
	if m.FinalHome != nil && m.FinalAway != nil {
		result = "final score " + domain.FormatScore(*m.FinalHome, *m.FinalAway)
	}

	line := "never tracked"
	if m.DetectionLine != nil {
		line = fmt.Sprintf("line %.2f", *m.DetectionLine)
	}
	if m.TouchedTarget {
		line += " (target touched)"
	}

	return fmt.Sprintf("Finished: %s vs %s (league %s), %s, %s",
		m.HomeTeam, m.AwayTeam, m.LeagueID, result, line)
}
