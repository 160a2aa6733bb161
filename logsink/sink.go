package logsink

import (
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Verbosity gates what the sink emits. PRIVATE keeps the activity
// stream but redacts command strings and env values.
type Verbosity int

const (
	Silent Verbosity = iota
	Private
	Normal
)

// Sink formats scheduling events onto a logrus entry, gated by the
// configured verbosity.
type Sink struct {
	level Verbosity
	log   *logrus.Entry
}

func New(level Verbosity, log *logrus.Entry) *Sink {
	return &Sink{level: level, log: log}
}

func (s *Sink) EnvRegistered(key, value string) {
	switch s.level {
	case Normal:
		s.log.Infof("env: %s=%s", key, value)
	case Private:
		s.log.Infof("env: %s={redacted}", key)
	}
}

func (s *Sink) HookRegistered(kind string, argv []string) {
	switch s.level {
	case Normal:
		s.log.Infof("registered %s-hook: %s", kind, strings.Join(argv, " "))
	case Private:
		s.log.Infof("registered %s-hook", kind)
	}
}

func (s *Sink) Sleeping(delta time.Duration, command string, coincident int) {
	seconds := int64(delta.Round(time.Second) / time.Second)
	switch s.level {
	case Normal:
		if coincident > 1 {
			s.log.Infof("sleeping %ds until: %d coincident jobs", seconds, coincident)
		} else {
			s.log.Infof("sleeping %ds until: %s", seconds, command)
		}
	case Private:
		s.log.Infof("sleeping %ds", seconds)
	}
}

func (s *Sink) Awake(command string) {
	switch s.level {
	case Normal:
		s.log.Infof("awake for: %s", command)
	case Private:
		s.log.Info("awake")
	}
}

func (s *Sink) HookFired(kind string) {
	if s.level == Silent {
		return
	}
	s.log.Infof("%s-hook", kind)
}

func (s *Sink) ChildExited(command string, code int) {
	if s.level == Silent {
		return
	}
	s.log.Warnf("cronjob exited status %d (%s)", code, command)
}

func (s *Sink) ChildSignaled(command string, signo int) {
	if s.level == Silent {
		return
	}
	s.log.Warnf("cronjob exited from signal %d (%s)", signo, command)
}

func (s *Sink) GotOutput(command, stdout, stderr string) {
	switch s.level {
	case Normal:
		s.log.Infof("got non-empty output from `%s`:", command)
		for _, line := range outputLines(stdout, stderr) {
			s.log.Info(line)
		}
	case Private:
		s.log.Info("got non-empty output (check logs)")
	}
}

func (s *Sink) SpawnFailed(command string, err error) {
	switch s.level {
	case Normal:
		s.log.Errorf("cannot start cronjob: %v (%s)", err, command)
	case Private:
		// Exec errors name the command path; keep only the innermost
		// cause.
		for errors.Unwrap(err) != nil {
			err = errors.Unwrap(err)
		}
		s.log.Errorf("cannot start cronjob: %v", err)
	}
}

func (s *Sink) RescheduleFailed(command string, err error) {
	switch s.level {
	case Normal:
		s.log.Errorf("cannot reschedule cronjob: %v (%s)", err, command)
	case Private:
		s.log.Errorf("cannot reschedule cronjob: %v", err)
	}
}

func outputLines(stdout, stderr string) []string {
	var lines []string
	for _, chunk := range []string{stdout, stderr} {
		chunk = strings.TrimRight(chunk, "\n")
		if chunk == "" {
			continue
		}
		lines = append(lines, strings.Split(chunk, "\n")...)
	}
	return lines
}
