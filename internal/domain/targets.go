package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// TargetTable maps league ids to the over/under line that constitutes a
// detection. Read-only at runtime.
type TargetTable struct {
	defaultLine float64
	perLeague   map[string]float64
}

// NewTargetTable creates a table with a default line and per-league overrides.
func NewTargetTable(defaultLine float64, perLeague map[string]float64) *TargetTable {
	t := &TargetTable{
		defaultLine: defaultLine,
		perLeague:   make(map[string]float64, len(perLeague)),
	}
	for k, v := range perLeague {
		t.perLeague[k] = v
	}
	return t
}

// For returns the target line for a league, falling back to the default.
func (t *TargetTable) For(leagueID string) float64 {
	if line, ok := t.perLeague[leagueID]; ok {
		return line
	}
	return t.defaultLine
}

// ParseTargetOverrides parses "leagueID:line,leagueID:line" override strings,
// e.g. "39:2.5,140:3.25".
func ParseTargetOverrides(s string) (map[string]float64, error) {
	overrides := make(map[string]float64)
	if strings.TrimSpace(s) == "" {
		return overrides, nil
	}

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("target override %q: expected leagueID:line", part)
		}
		league := strings.TrimSpace(kv[0])
		line, err := strconv.ParseFloat(strings.TrimSpace(kv[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("target override %q: %w", part, err)
		}
		if league == "" {
			return nil, fmt.Errorf("target override %q: empty league id", part)
		}
		overrides[league] = line
	}
	return overrides, nil
}
