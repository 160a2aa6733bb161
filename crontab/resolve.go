package crontab

import (
	"time"

	"github.com/pkg/errors"
)

// CronExpression is a parsed 5-field schedule. Field ranges are fixed:
// minute 0-59, hour 0-23, day-of-month 1-31, month 1-12, day-of-week
// 0-6 with Sunday as 0. All resolution happens in UTC at minute
// precision.
type CronExpression struct {
	Minute TermList
	Hour   TermList
	Dom    TermList
	Month  TermList
	Dow    TermList
}

// Caps for the two bounded searches in Next. A schedule that finds no
// date within these bounds is reported as an invalid expression. That
// covers schedules that never fire (0 0 30 2 * and friends), and also
// ones whose next weekday match lies beyond the day cap, such as Feb 29
// on a single weekday.
const (
	maxDateSteps = 97
	maxDaySteps  = 8 * 366
)

// ParseExpression parses the five schedule fields of a tab line.
func ParseExpression(minute, hour, dom, month, dow string) (*CronExpression, error) {
	expr := &CronExpression{}

	fields := []struct {
		name     string
		raw      string
		min, max int
		dst      *TermList
	}{
		{"minute", minute, 0, 59, &expr.Minute},
		{"hour", hour, 0, 23, &expr.Hour},
		{"day-of-month", dom, 1, 31, &expr.Dom},
		{"month", month, 1, 12, &expr.Month},
		{"day-of-week", dow, 0, 6, &expr.Dow},
	}

	for _, f := range fields {
		tl, err := parseField(f.raw, f.min, f.max)
		if err != nil {
			return nil, errors.Wrapf(err, "%s field %q", f.name, f.raw)
		}
		*f.dst = tl
	}

	return expr, nil
}

// nextApplicable returns the smallest w within t's range that matches t
// and is >= v (or > v when includeCurrent is false). When no such w
// exists the term's own minimum comes back, signaling a wrap to the
// caller.
func nextApplicable(t Term, v int, includeCurrent bool) int {
	if !includeCurrent {
		v++
	}
	if v < t.Min {
		return t.Min
	}
	for w := v; w <= t.Max; w++ {
		if w == t.Min || w%t.Step == 0 {
			return w
		}
	}
	return t.Min
}

// condense advances one field: it returns the least matching value at
// or after v across the whole term list, or the list's minimum with
// wrapped set when the field has to roll over. Callers propagate
// wrapped into the next-coarser field as include_current=false.
func condense(tl TermList, max, v int, includeCurrent bool) (int, bool) {
	if !includeCurrent {
		v++
	}
	if v > max {
		return tl.minStart(), true
	}

	best := -1
	for _, t := range tl {
		w := nextApplicable(t, v, true)
		if w < v {
			continue
		}
		if best == -1 || w < best {
			best = w
		}
	}
	if best == -1 {
		return tl.minStart(), true
	}
	return best, false
}

func (e *CronExpression) dowUnrestricted() bool {
	return len(e.Dow) == 1 && e.Dow[0] == Term{Min: 0, Max: 6, Step: 1}
}

func (e *CronExpression) matches(t time.Time) bool {
	return e.Minute.Matches(t.Minute()) &&
		e.Hour.Matches(t.Hour()) &&
		e.Dom.Matches(t.Day()) &&
		e.Month.Matches(int(t.Month())) &&
		e.Dow.Matches(int(t.Weekday()))
}

// validDate reports whether (year, month, day) names a real calendar
// date, i.e. survives normalization untouched.
func validDate(year, month, day int) bool {
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return d.Year() == year && int(d.Month()) == month && d.Day() == day
}

// Next returns the next UTC firing instant for the expression. An instant
// exactly on a minute boundary that matches all five fields is returned
// unchanged. When the firing falls on the reference day, the minute is
// taken as the next match after the reference minute even if the hour
// moves forward; when the hour field wraps, the date advances by one day
// without re-checking the day-of-month, month and day-of-week fields.
func (e *CronExpression) Next(fromTime time.Time) (time.Time, error) {
	now := fromTime.UTC()

	if now.Second() == 0 && e.matches(now) {
		return now.Truncate(time.Minute), nil
	}

	day, dayWrapped := condense(e.Dom, 31, now.Day(), true)
	month, _ := condense(e.Month, 12, int(now.Month()), !dayWrapped)
	year := now.Year()

	// Walk (month, day) forward until they name a real calendar date
	// that is not behind the reference day. The year jump resets both
	// fields to their first match; an impossible date (Feb 29 off the
	// leap cycle, Jun 31) advances to the next allowed month instead.
	for steps := 0; ; steps++ {
		if steps == maxDateSteps {
			return time.Time{}, errors.Wrap(ErrInvalidExpression, "schedule never names a real date")
		}
		if validDate(year, month, day) {
			if year > now.Year() {
				break
			}
			if time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).YearDay() >= now.YearDay() {
				break
			}
			year++
			month, _ = condense(e.Month, 12, 1, true)
			day, _ = condense(e.Dom, 31, 1, true)
			continue
		}
		var wrapped bool
		month, wrapped = condense(e.Month, 12, month, false)
		day, _ = condense(e.Dom, 31, 1, true)
		if wrapped {
			year++
		}
	}

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)

	if !e.dowUnrestricted() {
		for steps := 0; !e.dateMatches(date); steps++ {
			if steps == maxDaySteps {
				return time.Time{}, errors.Wrap(ErrInvalidExpression, "no day satisfies the weekday constraint")
			}
			date = date.AddDate(0, 0, 1)
		}
	}

	var minute, hour int
	if date.Year() == now.Year() && date.YearDay() == now.YearDay() {
		var minWrapped, hourWrapped bool
		minute, minWrapped = condense(e.Minute, 59, now.Minute(), false)
		hour, hourWrapped = condense(e.Hour, 23, now.Hour(), !minWrapped)
		if hourWrapped {
			date = date.AddDate(0, 0, 1)
			minute, _ = condense(e.Minute, 59, 0, true)
			hour, _ = condense(e.Hour, 23, 0, true)
		}
	} else {
		minute, _ = condense(e.Minute, 59, 0, true)
		hour, _ = condense(e.Hour, 23, 0, true)
	}

	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, time.UTC), nil
}

// dateMatches checks the three date fields together. Go's weekday
// numbering already has Sunday as 0, matching the cron convention.
func (e *CronExpression) dateMatches(date time.Time) bool {
	return e.Dow.Matches(int(date.Weekday())) &&
		e.Month.Matches(int(date.Month())) &&
		e.Dom.Matches(date.Day())
}
