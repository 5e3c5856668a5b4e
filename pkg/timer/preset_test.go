// ABOUTME: Tests for timer modes, presets and formatting
// ABOUTME: Table-driven checks of the small helpers
package timer

import "testing"

func TestFormatClock(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "00:00"},
		{5, "00:05"},
		{59, "00:59"},
		{60, "01:00"},
		{299, "04:59"},
		{1500, "25:00"},
		{3600, "60:00"},
		{-65, "01:05"},
	}

	for _, tt := range tests {
		if got := FormatClock(tt.seconds); got != tt.want {
			t.Errorf("FormatClock(%d) = %s, want %s", tt.seconds, got, tt.want)
		}
	}
}

func TestPresets(t *testing.T) {
	want := map[string]int{
		"pomodoro":    1500,
		"short-break": 300,
		"long-break":  900,
		"focus":       2700,
		"hour":        3600,
	}

	if len(Presets) != len(want) {
		t.Fatalf("expected %d presets, got %d", len(want), len(Presets))
	}
	for id, seconds := range want {
		p, ok := PresetByID(id)
		if !ok {
			t.Errorf("preset %s missing", id)
			continue
		}
		if p.Seconds != seconds {
			t.Errorf("preset %s: expected %d, got %d", id, seconds, p.Seconds)
		}
	}

	if _, ok := PresetByID("marathon"); ok {
		t.Error("unexpected preset found")
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{Stopwatch, Countdown} {
		got, err := ParseMode(m.String())
		if err != nil {
			t.Fatalf("ParseMode(%s) failed: %v", m, err)
		}
		if got != m {
			t.Errorf("expected %v, got %v", m, got)
		}
	}

	if _, err := ParseMode("hourglass"); err == nil {
		t.Error("expected error for unknown mode")
	}
	if Mode(9).String() != "unknown" {
		t.Error("expected unknown for invalid mode")
	}
}
