package config

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"github.com/pkg/errors"

	"github.com/crore/crore/logsink"
)

// EnvVar is one environment assignment applied to every child, in
// registration order. Later assignments of the same key win.
type EnvVar struct {
	Key   string
	Value string
}

// Config is read-only once the daemon enters its loop.
type Config struct {
	Verbosity logsink.Verbosity
	Legacy    bool
	Envs      []EnvVar
	Before    []string
	After     []string

	TabFile    string
	NoTabFile  bool
	ExtraLines []string

	MetricsAddr string
	SentryDSN   string
}

func Default() *Config {
	return &Config{
		Verbosity: logsink.Normal,
		TabFile:   DefaultTabFile(),
	}
}

func DefaultTabFile() string {
	return filepath.Join(homeDir(), ".config", "crore", "tab")
}

func DefaultFile() string {
	return filepath.Join(homeDir(), ".config", "crore", "config")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home
}

// LoadFile merges the file at path into cfg.
func LoadFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := Parse(file, cfg); err != nil {
		return errors.Wrap(err, path)
	}
	return nil
}

// Parse reads `key = val` lines, skipping blanks and #-comments. The
// delimiter is the first " = " on the line; any key outside the
// recognized set registers an environment variable for children.
func Parse(reader io.Reader, cfg *Config) error {
	scanner := bufio.NewScanner(reader)
	lineNumber := 0

	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, val, found := strings.Cut(line, " = ")
		if !found {
			return errors.Errorf("line %d: want `key = val`, got %q", lineNumber, line)
		}
		if err := apply(cfg, key, val); err != nil {
			return errors.Wrapf(err, "line %d", lineNumber)
		}
	}

	return scanner.Err()
}

func apply(cfg *Config, key, val string) error {
	switch key {
	case "after":
		argv, err := shlex.Split(val)
		if err != nil {
			return errors.Wrapf(err, "after %q", val)
		}
		cfg.After = argv
	case "before":
		argv, err := shlex.Split(val)
		if err != nil {
			return errors.Wrapf(err, "before %q", val)
		}
		cfg.Before = argv
	case "legacy":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return errors.Wrapf(err, "legacy %q", val)
		}
		cfg.Legacy = b
	case "notabfile":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return errors.Wrapf(err, "notabfile %q", val)
		}
		cfg.NoTabFile = b
	case "private":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return errors.Wrapf(err, "private %q", val)
		}
		if b {
			cfg.Verbosity = logsink.Private
		}
	case "silent":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return errors.Wrapf(err, "silent %q", val)
		}
		if b {
			cfg.Verbosity = logsink.Silent
		}
	case "tabfile":
		cfg.TabFile = val
	default:
		cfg.Envs = append(cfg.Envs, EnvVar{Key: key, Value: val})
	}
	return nil
}
