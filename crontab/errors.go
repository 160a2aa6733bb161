package crontab

import (
	"github.com/pkg/errors"
)

var (
	// ErrInvalidExpression marks a schedule field that fails the
	// grammar or range checks, or an expression that can never name a
	// real calendar date.
	ErrInvalidExpression = errors.New("invalid cron expression")

	// ErrBadCommand marks a command portion that cannot be word-split.
	ErrBadCommand = errors.New("cannot parse command")
)
