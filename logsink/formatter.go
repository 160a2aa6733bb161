package logsink

import (
	"github.com/sirupsen/logrus"
)

// PrefixFormatter renders every entry as a single prefixed plain-text
// line.
type PrefixFormatter struct {
	Prefix string
}

// Format renders a single log entry
func (f *PrefixFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	return []byte(f.Prefix + entry.Message + "\n"), nil
}
