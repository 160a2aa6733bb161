package cron

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/crore/crore/config"
	"github.com/crore/crore/crontab"
	"github.com/crore/crore/logsink"
	"github.com/crore/crore/metrics"
)

// Runner owns the job set for the lifetime of the process and is the
// only writer of each job's NextRun. There is no parallelism: at most
// one child (plus its hooks, strictly before and after it) runs at any
// time.
type Runner struct {
	jobs []*crontab.Job
	cfg  *config.Config
	sink *logsink.Sink
	prom *metrics.Metrics

	now   func() time.Time
	sleep func(time.Duration)
}

func NewRunner(jobs []*crontab.Job, cfg *config.Config, sink *logsink.Sink, prom *metrics.Metrics) *Runner {
	return &Runner{
		jobs:  jobs,
		cfg:   cfg,
		sink:  sink,
		prom:  prom,
		now:   func() time.Time { return time.Now().UTC() },
		sleep: time.Sleep,
	}
}

// Run never returns: pick the earliest job, sleep until it is due, run
// every due job in insertion order, reschedule the ones that ran,
// repeat.
func (r *Runner) Run() {
	for {
		r.tick()
	}
}

func (r *Runner) tick() {
	now := r.now()
	earliest, coincident := r.selectEarliest()

	if delta := earliest.NextRun.Sub(now); delta > 0 {
		r.sink.Sleeping(delta, earliest.CommandLine, coincident)
		r.sleep(delta)
	}

	now = r.now()
	due := make([]*crontab.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		if !job.NextRun.After(now) {
			r.runOne(job)
			due = append(due, job)
		}
	}

	// Every dispatch in the tick finishes before any reschedule, so a
	// cascade of instantly-due jobs cannot starve the rest of the set.
	for _, job := range due {
		if err := job.Reschedule(r.now()); err != nil {
			r.sink.RescheduleFailed(job.CommandLine, err)
		}
	}
}

func (r *Runner) selectEarliest() (*crontab.Job, int) {
	earliest := r.jobs[0]
	coincident := 1
	for _, job := range r.jobs[1:] {
		switch {
		case job.NextRun.Before(earliest.NextRun):
			earliest = job
			coincident = 1
		case job.NextRun.Equal(earliest.NextRun):
			coincident++
		}
	}
	return earliest, coincident
}

func (r *Runner) runOne(job *crontab.Job) {
	r.sink.Awake(job.CommandLine)

	if len(r.cfg.Before) > 0 {
		r.fireHook("before", r.cfg.Before, nil)
	}

	labels := jobPromLabels(job)
	r.prom.RunningGauge.With(labels).Inc()
	r.prom.ExecCounter.With(labels).Inc()

	var result string
	var duration time.Duration
	success := true

	if r.cfg.Legacy {
		stdout, stderr, elapsed, err := RunCaptured(job.Command, r.childEnv())
		duration = elapsed
		if err != nil {
			r.sink.SpawnFailed(job.CommandLine, err)
			r.prom.SpawnErrorCounter.With(labels).Inc()
			success = false
		} else if stdout != "" || stderr != "" {
			r.sink.GotOutput(job.CommandLine, stdout, stderr)
		}
		result = stderr
	} else {
		status, elapsed, err := Run(job.Command, r.childEnv())
		duration = elapsed
		switch {
		case err != nil:
			r.sink.SpawnFailed(job.CommandLine, err)
			r.prom.SpawnErrorCounter.With(labels).Inc()
			success = false
			// Distinct from "-1", which means a SIGHUP-terminated
			// child.
			result = "spawn-error"
		case status.Signaled:
			r.sink.ChildSignaled(job.CommandLine, int(status.Signal))
			success = false
			result = strconv.Itoa(-int(status.Signal))
		default:
			if status.Code != 0 {
				r.sink.ChildExited(job.CommandLine, status.Code)
				success = false
			}
			result = strconv.Itoa(status.Code)
		}
	}

	r.prom.RunningGauge.With(labels).Dec()
	r.prom.ExecutionTimeHistogram.With(labels).Observe(duration.Seconds())
	if success {
		r.prom.SuccessCounter.With(labels).Inc()
	} else {
		r.prom.FailCounter.With(labels).Inc()
	}

	if len(r.cfg.After) > 0 {
		r.fireHook("after", r.cfg.After, []string{
			"CRORE_RESULT=" + result,
			"CRORE_DURATION=" + strconv.FormatInt(duration.Nanoseconds()/1000, 10),
		})
	}
}

// fireHook runs a before/after command synchronously. Its status and
// output are ignored; only a spawn failure is worth a log line.
func (r *Runner) fireHook(kind string, argv []string, extra []string) {
	r.sink.HookFired(kind)

	env := append(r.childEnv(), "CRORE_COMMAND="+strings.Join(argv, " "))
	env = append(env, extra...)

	if _, _, err := Run(argv, env); err != nil {
		r.sink.SpawnFailed(strings.Join(argv, " "), err)
	}
}

func (r *Runner) childEnv() []string {
	env := make([]string, 0, len(r.cfg.Envs))
	for _, e := range r.cfg.Envs {
		env = append(env, e.Key+"="+e.Value)
	}
	return env
}

func jobPromLabels(job *crontab.Job) prometheus.Labels {
	return prometheus.Labels{
		"position": fmt.Sprintf("%d", job.Position),
		"command":  job.CommandLine,
		"schedule": job.Schedule,
	}
}
