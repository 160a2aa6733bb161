package crontab

import (
	"time"
)

// Expression computes the next UTC firing instant at or after a
// reference time.
type Expression interface {
	Next(fromTime time.Time) (time.Time, error)
}

// CrontabLine is the parsed form of one tab line: the schedule
// expression, the raw schedule text kept for display, and the
// word-split command.
type CrontabLine struct {
	Expression  Expression
	Schedule    string
	Command     []string
	CommandLine string
}

// Job is one entry of the tab. Expression and Command never change
// after construction; NextRun is rewritten by the scheduling loop.
type Job struct {
	CrontabLine
	Position int
	NextRun  time.Time
}

type Crontab struct {
	Jobs []*Job
}
