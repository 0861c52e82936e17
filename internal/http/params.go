package http

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"arwaeduc/internal/core"
)

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// Period is the whole month in loc.
func (p MonthParams) Period(loc *time.Location) core.Period {
	return core.MonthPeriod(p.Year, p.Month, loc)
}

// ParseMonthParams reads year and month, defaulting each to now's.
// Present but malformed or out-of-range values are rejected.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	params := MonthParams{Year: now.Year(), Month: int(now.Month())}
	var err error
	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if params.Year, err = strconv.Atoi(v); err != nil {
			return MonthParams{}, fmt.Errorf("%w: year %q", errBadRequest, v)
		}
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		if params.Month, err = strconv.Atoi(v); err != nil {
			return MonthParams{}, fmt.Errorf("%w: month %q", errBadRequest, v)
		}
	}
	return params, params.validate()
}

// MonthParamsFromPath parses year and month path segments.
func MonthParamsFromPath(year, month string) (MonthParams, error) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return MonthParams{}, fmt.Errorf("%w: year %q", errBadRequest, year)
	}
	m, err := strconv.Atoi(month)
	if err != nil {
		return MonthParams{}, fmt.Errorf("%w: month %q", errBadRequest, month)
	}
	p := MonthParams{Year: y, Month: m}
	return p, p.validate()
}

func (p MonthParams) validate() error {
	if p.Year < 2000 || p.Year > 9999 {
		return fmt.Errorf("%w: year %d out of range", errBadRequest, p.Year)
	}
	if p.Month < 1 || p.Month > 12 {
		return fmt.Errorf("%w: month %d out of range", errBadRequest, p.Month)
	}
	return nil
}

// ParsePeriodParams builds the day or month period selected by the
// granularity and date (YYYY-MM-DD) query parameters. The date defaults to
// now and is read in now's location.
func ParsePeriodParams(query url.Values, now time.Time) (core.Period, error) {
	g, err := core.ParseGranularity(query.Get("granularity"))
	if err != nil {
		return core.Period{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	at := now
	if v := strings.TrimSpace(query.Get("date")); v != "" {
		at, err = time.ParseInLocation("2006-01-02", v, now.Location())
		if err != nil {
			return core.Period{}, fmt.Errorf("%w: date %q", errBadRequest, v)
		}
	}
	return core.PeriodFor(at, g), nil
}

// ParseDate accepts YYYY-MM-DD (midday in loc, so the day survives any
// timezone shift) or RFC 3339. Empty means now.
func ParseDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return now, nil
	}
	if d, err := time.ParseInLocation("2006-01-02", s, now.Location()); err == nil {
		return d.Add(12 * time.Hour), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", core.ErrInvalidDate, s)
	}
	return t.In(now.Location()), nil
}

// ParseAmount converts a decimal string to Money. allowZero admits "0" for
// free inscriptions; negatives are always rejected.
func ParseAmount(s string, allowZero bool) (core.Money, error) {
	s = strings.TrimSpace(s)
	if allowZero && s != "" && strings.Trim(s, "0.,") == "" {
		return core.Money{}, nil
	}
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: cents}, nil
}

// sanitizeInput trims and removes control characters from user text.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\t' || r == 0x7f {
			return -1
		}
		return r
	}, s))
}
