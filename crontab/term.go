package crontab

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Term is one subterm of a cron field: a closed range plus a step. A
// value v matches when min <= v <= max and v is either min itself or
// divisible by step. Divisibility is on the absolute value, so 1/5
// matches 1, 5, 10, 15 rather than 1, 6, 11, 16.
type Term struct {
	Min  int
	Max  int
	Step int
}

func (t Term) Matches(v int) bool {
	if v < t.Min || v > t.Max {
		return false
	}
	return v == t.Min || v%t.Step == 0
}

// TermList is one cron field split on commas. It is never empty.
type TermList []Term

func (tl TermList) Matches(v int) bool {
	for _, t := range tl {
		if t.Matches(v) {
			return true
		}
	}
	return false
}

// minStart is the wrap-around target: the lowest value any term in the
// list can match.
func (tl TermList) minStart() int {
	m := tl[0].Min
	for _, t := range tl[1:] {
		if t.Min < m {
			m = t.Min
		}
	}
	return m
}

func parseField(raw string, fieldMin, fieldMax int) (TermList, error) {
	if raw == "" {
		return nil, errors.Wrap(ErrInvalidExpression, "empty field")
	}

	subs := strings.Split(raw, ",")
	terms := make(TermList, 0, len(subs))
	for _, sub := range subs {
		term, err := parseTerm(sub, fieldMin, fieldMax)
		if err != nil {
			return nil, err
		}
		terms = append(terms, term)
	}
	return terms, nil
}

func parseTerm(sub string, fieldMin, fieldMax int) (Term, error) {
	if sub == "*" {
		return Term{Min: fieldMin, Max: fieldMax, Step: 1}, nil
	}

	rangePart, stepPart, hasStep := strings.Cut(sub, "/")
	loRaw, hiRaw, hasHi := strings.Cut(rangePart, "-")

	term := Term{Step: 1}

	if loRaw == "*" {
		term.Min = fieldMin
		term.Max = fieldMax
	} else {
		lo, err := strconv.Atoi(loRaw)
		if err != nil {
			return Term{}, errors.Wrapf(ErrInvalidExpression, "bad value %q", loRaw)
		}
		term.Min = lo
		term.Max = lo
	}

	if hasHi {
		// A bare * on the high side reads as 0, which then fails the
		// min <= max check for any nonzero low bound.
		hi, err := strconv.Atoi(strings.ReplaceAll(hiRaw, "*", "0"))
		if err != nil {
			return Term{}, errors.Wrapf(ErrInvalidExpression, "bad range end %q", hiRaw)
		}
		term.Max = hi
	}

	if hasStep {
		if stepPart == "" {
			return Term{}, errors.Wrapf(ErrInvalidExpression, "missing step in %q", sub)
		}
		step, err := strconv.Atoi(strings.ReplaceAll(stepPart, "*", "0"))
		if err != nil {
			return Term{}, errors.Wrapf(ErrInvalidExpression, "bad step %q", stepPart)
		}
		if step < 1 {
			return Term{}, errors.Wrapf(ErrInvalidExpression, "step must be positive in %q", sub)
		}
		term.Step = step

		// A stepped single point widens to the rest of the field, so
		// 5/5 means "from 5, every 5, up to the field max".
		if term.Max == term.Min {
			term.Max = fieldMax
		}
	}

	if term.Min < fieldMin {
		return Term{}, errors.Wrapf(ErrInvalidExpression, "%d below field minimum %d", term.Min, fieldMin)
	}
	if term.Max > fieldMax {
		return Term{}, errors.Wrapf(ErrInvalidExpression, "%d above field maximum %d", term.Max, fieldMax)
	}
	if term.Min > term.Max {
		return Term{}, errors.Wrapf(ErrInvalidExpression, "empty range %q", sub)
	}

	return term, nil
}
