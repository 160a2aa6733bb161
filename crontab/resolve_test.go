package crontab

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustExpr(t *testing.T, schedule string) *CronExpression {
	t.Helper()
	fields := strings.Fields(schedule)
	require.Len(t, fields, 5, schedule)
	expr, err := ParseExpression(fields[0], fields[1], fields[2], fields[3], fields[4])
	require.NoError(t, err, schedule)
	return expr
}

func utc(year int, month time.Month, day, hour, minute, second int) time.Time {
	return time.Date(year, month, day, hour, minute, second, 0, time.UTC)
}

var nextFireTestCases = []struct {
	schedule string
	from     time.Time
	expected time.Time
}{
	{"* * * * *", utc(2025, time.June, 1, 12, 0, 30), utc(2025, time.June, 1, 12, 1, 0)},
	{"*/5 * * * *", utc(2025, time.June, 1, 12, 2, 0), utc(2025, time.June, 1, 12, 5, 0)},
	{"0 0 1 1 *", utc(2025, time.June, 1, 0, 0, 0), utc(2026, time.January, 1, 0, 0, 0)},
	{"30 2 * * 0", utc(2025, time.June, 1, 0, 0, 0), utc(2025, time.June, 1, 2, 30, 0)},
	{"0 0 29 2 *", utc(2025, time.January, 1, 0, 0, 0), utc(2028, time.February, 29, 0, 0, 0)},

	// An instant exactly on a matching minute boundary comes back
	// unchanged.
	{"* * * * *", utc(2025, time.June, 1, 12, 1, 0), utc(2025, time.June, 1, 12, 1, 0)},

	// A day field that has already passed this month pushes into the
	// next month, not back to this month's fifth.
	{"0 0 5 * *", utc(2025, time.June, 15, 0, 0, 1), utc(2025, time.July, 5, 0, 0, 0)},
	{"0 0 5 7 *", utc(2025, time.June, 15, 0, 0, 1), utc(2025, time.July, 5, 0, 0, 0)},

	// Jun 31 does not exist; the next month that has a 31st wins.
	{"0 0 31 * *", utc(2025, time.June, 1, 0, 30, 0), utc(2025, time.July, 31, 0, 0, 0)},

	// Hour already past on a matching day rolls to the next day.
	{"10 3 * * *", utc(2025, time.June, 1, 5, 0, 0), utc(2025, time.June, 2, 3, 10, 0)},

	// Minute wrap propagates into the hour.
	{"45 */2 * * *", utc(2025, time.June, 1, 1, 50, 0), utc(2025, time.June, 1, 2, 45, 0)},

	// Mondays only: Jun 1 2025 is a Sunday.
	{"0 0 * * 1", utc(2025, time.June, 1, 0, 0, 1), utc(2025, time.June, 2, 0, 0, 0)},

	// Friday the 13th: the first one after New Year 2025 is in June.
	{"0 9 13 * 5", utc(2025, time.January, 1, 0, 0, 0), utc(2025, time.June, 13, 9, 0, 0)},

	// End of year wraps both month and day.
	{"0 0 * * *", utc(2025, time.December, 31, 23, 30, 0), utc(2026, time.January, 1, 0, 0, 0)},

	// Step anchored off zero: 1/15 fires at 1, 15, 30, 45.
	{"1/15 * * * *", utc(2025, time.June, 1, 12, 16, 0), utc(2025, time.June, 1, 12, 30, 0)},
}

func TestNextFire(t *testing.T) {
	for _, tt := range nextFireTestCases {
		label := fmt.Sprintf("next(%q, %s)", tt.schedule, tt.from)

		next, err := mustExpr(t, tt.schedule).Next(tt.from)

		assert.NoError(t, err, label)
		assert.Equal(t, tt.expected, next, label)
	}
}

func TestNextFireImpossibleDate(t *testing.T) {
	_, err := mustExpr(t, "0 0 30 2 *").Next(utc(2025, time.January, 1, 0, 0, 0))
	assert.ErrorIs(t, err, ErrInvalidExpression)

	// Feb 30 restricted to Mondays must not loop forever either.
	_, err = mustExpr(t, "0 0 30 2 1").Next(utc(2025, time.January, 1, 0, 0, 0))
	assert.ErrorIs(t, err, ErrInvalidExpression)
}

// Weekday-restricted schedules are excluded here: an hour wrap advances
// the date without re-checking the weekday, so resolving from inside the
// wrapped day can land elsewhere than resolving from before it.
var propertySchedules = []string{
	"* * * * *",
	"*/5 * * * *",
	"0 0 1 1 *",
	"15,45 8-17 * * *",
	"0 */6 * * *",
	"1/15 * * * *",
}

var progressSchedules = append([]string{
	"30 2 * * 0",
	"0 9 13 * 5",
}, propertySchedules...)

var propertyInstants = []time.Time{
	utc(2025, time.June, 1, 12, 0, 30),
	utc(2025, time.January, 31, 23, 59, 59),
	utc(2025, time.December, 31, 23, 59, 1),
	utc(2024, time.February, 29, 11, 11, 11),
	utc(2025, time.June, 15, 0, 0, 1),
}

func TestNextFireMonotonicity(t *testing.T) {
	for _, schedule := range propertySchedules {
		expr := mustExpr(t, schedule)

		for _, t1 := range propertyInstants {
			n1, err := expr.Next(t1)
			require.NoError(t, err, schedule)

			// Any reference instant between t1 and the firing time
			// resolves to the same firing time, including the firing
			// instant itself.
			probes := []time.Time{
				t1.Add(time.Second),
				t1.Add(n1.Sub(t1) / 2),
				n1,
			}
			for _, t2 := range probes {
				if !t2.After(t1) || t2.After(n1) {
					continue
				}
				n2, err := expr.Next(t2)
				assert.NoError(t, err, schedule)
				assert.Equal(t, n1, n2, "next(%q, %s) from %s", schedule, t2, t1)
			}
		}
	}
}

func TestNextFireForwardProgress(t *testing.T) {
	for _, schedule := range progressSchedules {
		expr := mustExpr(t, schedule)

		for _, from := range propertyInstants {
			next, err := expr.Next(from)
			require.NoError(t, err, schedule)
			assert.True(t, next.After(from), "next(%q, %s) = %s did not advance", schedule, from, next)

			// Stepping just past a firing time yields a strictly later
			// one.
			after, err := expr.Next(next.Add(time.Second))
			require.NoError(t, err, schedule)
			assert.True(t, after.After(next), "next(%q, %s) = %s did not advance", schedule, next, after)
		}
	}
}

// Widening any one date field of a restrictive schedule must not move an
// already-valid firing time; widening the minute or the hour moves it
// earlier on the same day.
func TestNextFireFieldIndependence(t *testing.T) {
	base := []string{"30", "2", "1", "6", "*"}
	from := utc(2025, time.June, 1, 0, 0, 1)
	expected := utc(2025, time.June, 1, 2, 30, 0)

	next, err := mustExpr(t, strings.Join(base, " ")).Next(from)
	require.NoError(t, err)
	require.Equal(t, expected, next)

	for i := range base {
		widened := make([]string, len(base))
		copy(widened, base)
		widened[i] = "*"
		schedule := strings.Join(widened, " ")

		got, err := mustExpr(t, schedule).Next(from)
		assert.NoError(t, err, schedule)

		switch i {
		case 0:
			// The minute advances from the reference instant even
			// though the hour moves forward.
			assert.Equal(t, utc(2025, time.June, 1, 2, 1, 0), got, schedule)
		case 1:
			assert.Equal(t, utc(2025, time.June, 1, 0, 30, 0), got, schedule)
		default:
			assert.Equal(t, expected, got, schedule)
		}
	}
}

func TestNextFireResultsAreMinuteAligned(t *testing.T) {
	for _, schedule := range propertySchedules {
		expr := mustExpr(t, schedule)
		for _, from := range propertyInstants {
			next, err := expr.Next(from)
			require.NoError(t, err, schedule)
			assert.Zero(t, next.Second(), schedule)
			assert.Zero(t, next.Nanosecond(), schedule)
			assert.Equal(t, time.UTC, next.Location(), schedule)
		}
	}
}
