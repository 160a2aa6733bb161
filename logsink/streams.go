package logsink

import (
	"io"

	"github.com/sirupsen/logrus"
)

// streamRouter sends each rendered entry to one of two streams: routine
// lines (info and below) to out, warnings and worse to err. The daemon
// keeps its activity feed on stdout while failures stay greppable on
// stderr.
type streamRouter struct {
	out io.Writer
	err io.Writer
}

func (r *streamRouter) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (r *streamRouter) Fire(entry *logrus.Entry) error {
	line, err := entry.Logger.Formatter.Format(entry)
	if err != nil {
		return err
	}

	w := r.out
	if entry.Level <= logrus.WarnLevel {
		w = r.err
	}
	_, err = w.Write(line)
	return err
}

// RouteStreams installs the stdout/stderr split on a logger. The
// logger's own output is discarded so every line is emitted exactly
// once, by the router.
func RouteStreams(logger *logrus.Logger, out io.Writer, errOut io.Writer) {
	logger.SetOutput(io.Discard)
	logger.AddHook(&streamRouter{out: out, err: errOut})
}
