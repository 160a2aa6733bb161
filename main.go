package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/shlex"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/crore/crore/config"
	"github.com/crore/crore/cron"
	"github.com/crore/crore/crontab"
	"github.com/crore/crore/logsink"
	"github.com/crore/crore/metrics"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logsink.PrefixFormatter{Prefix: "crore: "})
	logsink.RouteStreams(logger, os.Stdout, os.Stderr)

	if err := run(logger); err != nil {
		logger.Fatal(err)
	}
}

func run(logger *logrus.Logger) error {
	flags := pflag.NewFlagSet("crore", pflag.ContinueOnError)
	afterFlag := flags.StringP("after", "a", "", "command to run after each cronjob")
	beforeFlag := flags.StringP("before", "b", "", "command to run before each cronjob")
	configFlag := flags.StringP("config", "c", "", "config file path")
	sentryFlag := flags.StringP("sentry-dsn", "d", "", "report errors to this sentry DSN")
	envFlags := flags.StringArrayP("env", "e", nil, "K=V environment variable for cronjobs")
	legacyFlag := flags.BoolP("legacy", "l", false, "capture cronjob output instead of reporting status")
	metricsFlag := flags.StringP("metrics", "m", "", "serve prometheus metrics on this address")
	noTabFlag := flags.BoolP("no-tabfile", "n", false, "do not read any tab file")
	privateFlag := flags.BoolP("private", "p", false, "redact commands and env values from logs")
	silentFlag := flags.BoolP("silent", "s", false, "log nothing")
	tabFlag := flags.StringP("tabfile", "t", "", "tab file path")
	versionFlag := flags.BoolP("version", "v", false, "print version and exit")
	extraFlags := flags.StringArrayP("extra", "x", nil, "extra cron line appended to the loaded tab")

	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	if *versionFlag {
		fmt.Println("crore " + Version)
		return nil
	}

	cfg := config.Default()

	configPath := *configFlag
	if configPath == "" {
		configPath = config.DefaultFile()
		if _, err := os.Stat(configPath); err != nil {
			configPath = ""
		}
	}
	if configPath != "" {
		if err := config.LoadFile(configPath, cfg); err != nil {
			return err
		}
	}

	// Flags override the config file; env assignments accumulate.
	if *afterFlag != "" {
		argv, err := shlex.Split(*afterFlag)
		if err != nil {
			return errors.Wrapf(err, "-a %q", *afterFlag)
		}
		cfg.After = argv
	}
	if *beforeFlag != "" {
		argv, err := shlex.Split(*beforeFlag)
		if err != nil {
			return errors.Wrapf(err, "-b %q", *beforeFlag)
		}
		cfg.Before = argv
	}
	for _, kv := range *envFlags {
		key, val, found := strings.Cut(kv, "=")
		if !found || key == "" {
			return errors.Errorf("-e wants K=V, got %q", kv)
		}
		cfg.Envs = append(cfg.Envs, config.EnvVar{Key: key, Value: val})
	}
	if *legacyFlag {
		cfg.Legacy = true
	}
	if *noTabFlag {
		cfg.NoTabFile = true
	}
	if *privateFlag {
		cfg.Verbosity = logsink.Private
	}
	if *silentFlag {
		cfg.Verbosity = logsink.Silent
	}
	if *tabFlag != "" {
		cfg.TabFile = *tabFlag
	}
	cfg.ExtraLines = *extraFlags
	if *metricsFlag != "" {
		cfg.MetricsAddr = *metricsFlag
	}
	if *sentryFlag != "" {
		cfg.SentryDSN = *sentryFlag
	}

	if os.Getpid() == 1 {
		forkExec()
	}

	if cfg.SentryDSN != "" {
		if err := setupSentry(logger, cfg.SentryDSN); err != nil {
			return err
		}
	}

	sink := logsink.New(cfg.Verbosity, logrus.NewEntry(logger))

	tab, err := loadTab(cfg)
	if err != nil {
		return err
	}
	if len(tab.Jobs) == 0 {
		return errors.New("no cronjobs loaded")
	}

	for _, e := range cfg.Envs {
		sink.EnvRegistered(e.Key, e.Value)
	}
	if len(cfg.Before) > 0 {
		sink.HookRegistered("before", cfg.Before)
	}
	if len(cfg.After) > 0 {
		sink.HookRegistered("after", cfg.After)
	}

	prom := metrics.New()
	if cfg.MetricsAddr != "" {
		if err := prom.Serve(cfg.MetricsAddr); err != nil {
			return err
		}
	}

	cron.NewRunner(tab.Jobs, cfg, sink, prom).Run()
	return nil
}

// loadTab assembles the tab source: the tab file unless -n, then any -x
// lines appended after it.
func loadTab(cfg *config.Config) (*crontab.Crontab, error) {
	var source strings.Builder

	if !cfg.NoTabFile {
		content, err := os.ReadFile(cfg.TabFile)
		if err != nil {
			return nil, err
		}
		source.Write(content)
		source.WriteString("\n")
	}
	for _, line := range cfg.ExtraLines {
		source.WriteString(line)
		source.WriteString("\n")
	}

	tab, err := crontab.ParseCrontab(strings.NewReader(source.String()))
	if err != nil {
		if cfg.NoTabFile {
			return nil, err
		}
		return nil, errors.Wrap(err, cfg.TabFile)
	}
	return tab, nil
}
