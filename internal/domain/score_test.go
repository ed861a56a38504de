package domain

import "testing"

func TestParseScore(t *testing.T) {
	tests := []struct {
		in         string
		home, away int
		ok         bool
	}{
		{"2-1", 2, 1, true},
		{"0-0", 0, 0, true},
		{"2 - 1", 2, 1, true},
		{" 10-3 ", 10, 3, true},
		{"", 0, 0, false},
		{"2", 0, 0, false},
		{"a-b", 0, 0, false},
		{"2-", 0, 0, false},
		{"-1-2", 0, 0, false},
		{"2:1", 0, 0, false},
	}

	for _, tt := range tests {
		home, away, ok := ParseScore(tt.in)
		if ok != tt.ok {
			t.Errorf("ParseScore(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && (home != tt.home || away != tt.away) {
			t.Errorf("ParseScore(%q) = %d-%d, want %d-%d", tt.in, home, away, tt.home, tt.away)
		}
	}
}

func TestParseTargetOverrides(t *testing.T) {
	overrides, err := ParseTargetOverrides("39:2.5, 140:3.25")
	if err != nil {
		t.Fatalf("ParseTargetOverrides failed: %v", err)
	}
	if overrides["39"] != 2.5 || overrides["140"] != 3.25 {
		t.Errorf("unexpected overrides: %v", overrides)
	}

	if _, err := ParseTargetOverrides("39"); err == nil {
		t.Error("expected error for missing line")
	}
	if _, err := ParseTargetOverrides("39:abc"); err == nil {
		t.Error("expected error for non-numeric line")
	}

	empty, err := ParseTargetOverrides("  ")
	if err != nil || len(empty) != 0 {
		t.Errorf("blank input should parse to empty map, got %v, %v", empty, err)
	}
}

func TestTargetTableFallback(t *testing.T) {
	table := NewTargetTable(2.5, map[string]float64{"140": 3.5})

	if got := table.For("140"); got != 3.5 {
		t.Errorf("For(140) = %v, want 3.5", got)
	}
	if got := table.For("unknown"); got != 2.5 {
		t.Errorf("For(unknown) = %v, want default 2.5", got)
	}
}
