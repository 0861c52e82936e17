package core

import (
	"testing"
	"time"
)

func TestPeriodForMonth(t *testing.T) {
	now := time.Date(2024, 2, 17, 15, 30, 0, 0, time.UTC)
	p := PeriodFor(now, Month)

	wantStart := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2024, 2, 29, 23, 59, 59, 999_000_000, time.UTC) // leap year
	if !p.Start.Equal(wantStart) {
		t.Fatalf("start = %v, want %v", p.Start, wantStart)
	}
	if !p.End.Equal(wantEnd) {
		t.Fatalf("end = %v, want %v", p.End, wantEnd)
	}
	if p.Key() != "month:2024-02" {
		t.Fatalf("key = %q", p.Key())
	}
}

func TestPeriodForDay(t *testing.T) {
	loc := time.FixedZone("WEST", 3600)
	now := time.Date(2024, 3, 31, 0, 0, 1, 0, loc)
	p := PeriodFor(now, Day)

	if p.Start.Location() != loc || p.End.Location() != loc {
		t.Fatalf("expected bounds in input location")
	}
	if !p.Start.Equal(time.Date(2024, 3, 31, 0, 0, 0, 0, loc)) {
		t.Fatalf("start = %v", p.Start)
	}
	if !p.End.Equal(time.Date(2024, 3, 31, 23, 59, 59, 999_000_000, loc)) {
		t.Fatalf("end = %v", p.End)
	}
}

func TestPeriodContainsBoundaries(t *testing.T) {
	p := MonthPeriod(2024, 3, time.UTC)

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"exact start", p.Start, true},
		{"exact end", p.End, true},
		{"one ms after end", p.End.Add(time.Millisecond), false},
		{"one ns before start", p.Start.Add(-time.Nanosecond), false},
		{"zero time", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Contains(tt.at); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestMonthPeriodDecember(t *testing.T) {
	p := MonthPeriod(2023, 12, nil)
	if p.End.Year() != 2023 || p.End.Month() != time.December || p.End.Day() != 31 {
		t.Fatalf("unexpected end %v", p.End)
	}
}

func TestParseGranularity(t *testing.T) {
	for in, want := range map[string]Granularity{"": Month, "MONTH": Month, "day": Day} {
		got, err := ParseGranularity(in)
		if err != nil || got != want {
			t.Fatalf("ParseGranularity(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseGranularity("week"); err == nil {
		t.Fatal("expected error for week")
	}
}
