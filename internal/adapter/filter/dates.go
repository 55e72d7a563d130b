package filter

import (
	"errors"
	"fmt"
	"time"

	"github.com/thushan/tabkeeper/internal/core/domain"
)

var (
	errDateMissing    = errors.New("one of date or daysAgo is required")
	errDateAmbiguous  = errors.New("date and daysAgo are mutually exclusive")
	errDayWithoutMon  = errors.New("day requires month")
	errDaysAgoNegated = errors.New("daysAgo must not be negative")
)

// DateBounds resolves date params to the half-open interval [start, end)
// they denote in loc. A year denotes the whole year, a month the whole month
// and a day the whole day; daysAgo N denotes the local day N days before now.
func DateBounds(p domain.DateParams, now time.Time, loc *time.Location) (start, end time.Time, err error) {
	if err = CheckDate(p); err != nil {
		return time.Time{}, time.Time{}, err
	}

	if p.DaysAgo != nil {
		local := now.In(loc)
		today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
		start = today.AddDate(0, 0, -*p.DaysAgo)
		return start, start.AddDate(0, 0, 1), nil
	}

	d := p.Date
	switch {
	case d.Day > 0:
		start = time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, loc)
		end = start.AddDate(0, 0, 1)
	case d.Month > 0:
		start = time.Date(d.Year, time.Month(d.Month), 1, 0, 0, 0, 0, loc)
		end = start.AddDate(0, 1, 0)
	default:
		start = time.Date(d.Year, time.January, 1, 0, 0, 0, 0, loc)
		end = start.AddDate(1, 0, 0)
	}
	return start, end, nil
}

// CheckDate reports incomplete or contradictory date params
func CheckDate(p domain.DateParams) error {
	switch {
	case p.Date == nil && p.DaysAgo == nil:
		return errDateMissing
	case p.Date != nil && p.DaysAgo != nil:
		return errDateAmbiguous
	case p.DaysAgo != nil:
		if *p.DaysAgo < 0 {
			return errDaysAgoNegated
		}
		return nil
	}

	d := p.Date
	if d.Year <= 0 {
		return fmt.Errorf("year %d out of range", d.Year)
	}
	if d.Month < 0 || d.Month > 12 {
		return fmt.Errorf("month %d out of range", d.Month)
	}
	if d.Day != 0 {
		if d.Month == 0 {
			return errDayWithoutMon
		}
		last := time.Date(d.Year, time.Month(d.Month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
		if d.Day < 0 || d.Day > last {
			return fmt.Errorf("day %d out of range for %04d-%02d", d.Day, d.Year, d.Month)
		}
	}
	return nil
}

func (e *Engine) matchDate(p domain.DateParams, ts time.Time) bool {
	if ts.IsZero() {
		return false
	}
	start, end, err := DateBounds(p, e.now(), e.loc)
	if err != nil {
		return false
	}

	switch p.Condition {
	case domain.ConditionAbove:
		return !ts.Before(start)
	case domain.ConditionBelow:
		return ts.Before(end)
	}
	return false
}
