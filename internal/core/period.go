package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	Day   Granularity = "day"
	Month Granularity = "month"
)

// Granularity is the size of a reporting bucket.
type Granularity string

// Period is a calendar day or month. Both bounds are inclusive and End sits on
// the last millisecond of the last calendar day.
type Period struct {
	Start       time.Time   `json:"start"`
	End         time.Time   `json:"end"`
	Granularity Granularity `json:"granularity"`
}

// ParseGranularity accepts "day" or "month", case-insensitively.
// An empty string defaults to Month.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(strings.ToLower(strings.TrimSpace(s))) {
	case Day:
		return Day, nil
	case Month, "":
		return Month, nil
	}
	return "", fmt.Errorf("unknown granularity %q", s)
}

// PeriodFor returns the day or month containing now, in now's location.
func PeriodFor(now time.Time, g Granularity) Period {
	if g == Day {
		return DayPeriod(now.Year(), int(now.Month()), now.Day(), now.Location())
	}
	return MonthPeriod(now.Year(), int(now.Month()), now.Location())
}

// MonthPeriod returns the whole calendar month. A nil loc means UTC.
func MonthPeriod(year, month int, loc *time.Location) Period {
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	// Day 0 of the next month is the last day of this one.
	last := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, loc)
	return Period{Start: start, End: endOfDay(last), Granularity: Month}
}

// DayPeriod returns a single calendar day. A nil loc means UTC.
func DayPeriod(year, month, day int, loc *time.Location) Period {
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	return Period{Start: start, End: endOfDay(start), Granularity: Day}
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// Contains reports whether start <= t <= end. Zero times are never contained.
func (p Period) Contains(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	return !t.Before(p.Start) && !t.After(p.End)
}

// Year and Month of the period start.
func (p Period) Year() int { return p.Start.Year() }
func (p Period) Month() int { return int(p.Start.Month()) }

// Key is a stable identifier usable as a cache key, e.g. "month:2024-03".
func (p Period) Key() string {
	if p.Granularity == Day {
		return "day:" + p.Start.Format("2006-01-02")
	}
	return "month:" + p.Start.Format("2006-01")
}

// Label is a short human label ("2024-03" or "2024-03-15").
func (p Period) Label() string {
	if p.Granularity == Day {
		return p.Start.Format("2006-01-02")
	}
	return p.Start.Format("2006-01")
}
