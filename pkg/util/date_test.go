package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDate(t *testing.T) {
	got, ok := ParseTime("2018-01-01")
	if !ok {
		t.Fatalf("expected ok")
	}
	if !got.Equal(time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestFutureDates(t *testing.T) {
	last := time.Date(2024, 12, 30, 16, 0, 0, 0, time.UTC)
	got := FutureDates(last, 3)
	want := []string{"2024-12-31", "2025-01-01", "2025-01-02"}
	if len(got) != len(want) {
		t.Fatalf("expected %d dates, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("date %d: want %s got %s", i, want[i], got[i])
		}
	}
	if len(FutureDates(last, 0)) != 0 {
		t.Fatalf("expected no dates for zero horizon")
	}
}

func TestHistoryRange(t *testing.T) {
	now := time.Date(2024, 12, 12, 9, 0, 0, 0, time.UTC)
	from, to, err := HistoryRange("2018-01-01", "", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if from.Year() != 2018 || !to.Equal(now) {
		t.Fatalf("unexpected range %v..%v", from, to)
	}
	if _, _, err := HistoryRange("2024-01-01", "2023-01-01", now); err == nil {
		t.Fatalf("expected error for inverted range")
	}
	if _, _, err := HistoryRange("nope", "", now); err == nil {
		t.Fatalf("expected error for bad start")
	}
}

func TestParseIntDefault(t *testing.T) {
	if ParseIntDefault("", 7) != 7 || ParseIntDefault("x", 7) != 7 || ParseIntDefault("30", 7) != 30 {
		t.Fatalf("unexpected ParseIntDefault result")
	}
}
