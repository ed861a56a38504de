package domain

import (
	"strconv"
	"strings"
)

// ParseScore extracts home and away goals from a progress string such as
// "2-1" or "2 - 1". Returns ok=false for anything it cannot parse; callers
// treat that as outcome-unavailable, never as an error.
func ParseScore(s string) (home, away int, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, false
	}

	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}

	home, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || home < 0 {
		return 0, 0, false
	}
	away, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || away < 0 {
		return 0, 0, false
	}
	return home, away, true
}

// FormatScore renders goals back into the canonical "H-A" form.
func FormatScore(home, away int) string {
	return strconv.Itoa(home) + "-" + strconv.Itoa(away)
}
