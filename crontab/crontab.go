package crontab

import (
	"bufio"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/pkg/errors"
)

var jobLineSeparator = regexp.MustCompile(`\S+`)

const scheduleFields = 5

// NewJob parses one tab line: five schedule fields, then the command,
// which is everything after the fifth field and gets shell-word split.
// The job's first firing time is resolved immediately.
func NewJob(line string, position int) (*Job, error) {
	indices := jobLineSeparator.FindAllStringIndex(line, -1)
	if len(indices) < scheduleFields+1 {
		return nil, errors.Wrapf(ErrInvalidExpression, "bad crontab line %q", line)
	}

	scheduleEnds := indices[scheduleFields-1][1]
	commandStarts := indices[scheduleFields][0]
	commandLine := line[commandStarts:]

	argv, err := shlex.Split(commandLine)
	if err != nil {
		return nil, errors.Wrapf(ErrBadCommand, "%q: %v", commandLine, err)
	}
	if len(argv) == 0 {
		return nil, errors.Wrapf(ErrBadCommand, "%q: empty command", commandLine)
	}

	raw := make([]string, scheduleFields)
	for i := range raw {
		raw[i] = line[indices[i][0]:indices[i][1]]
	}

	expr, err := ParseExpression(raw[0], raw[1], raw[2], raw[3], raw[4])
	if err != nil {
		return nil, err
	}

	job := &Job{
		CrontabLine: CrontabLine{
			Expression:  expr,
			Schedule:    line[:scheduleEnds],
			Command:     argv,
			CommandLine: commandLine,
		},
		Position: position,
	}
	if err := job.Reschedule(time.Now()); err != nil {
		return nil, err
	}
	return job, nil
}

// Reschedule recomputes NextRun from the given instant.
func (j *Job) Reschedule(now time.Time) error {
	next, err := j.Expression.Next(now)
	if err != nil {
		return err
	}
	j.NextRun = next
	return nil
}

// ParseCrontab reads a whole tab. Blank lines and #-comments are
// skipped; every other line is a job. Errors carry the 1-based line
// number.
func ParseCrontab(reader io.Reader) (*Crontab, error) {
	scanner := bufio.NewScanner(reader)

	jobs := make([]*Job, 0)
	lineNumber := 0

	for scanner.Scan() {
		lineNumber++
		line := strings.TrimLeft(scanner.Text(), " \t")

		if line == "" || line[0] == '#' {
			continue
		}

		job, err := NewJob(line, len(jobs))
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNumber)
		}
		jobs = append(jobs, job)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return &Crontab{Jobs: jobs}, nil
}
