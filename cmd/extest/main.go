package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"extest/pkg/config"
	"extest/pkg/confirm"
	"extest/pkg/report"
	"extest/pkg/runner"
	"extest/pkg/script"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// stringList collects a repeatable flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type flagValues struct {
	configPath string
	cfg        config.Config
	tests      stringList
}

// parseConfig builds the run configuration: defaults, then the optional
// config file, then any flag given on the command line.
func parseConfig(args []string, stderr io.Writer) (config.Config, error) {
	fs := flag.NewFlagSet("extest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: extest [flags] [test.js ...]")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Runs visual regression tests against a page served from -dir or found at -url.")
		fmt.Fprintln(stderr)
		fs.PrintDefaults()
	}

	v := flagValues{cfg: config.Default()}
	c := &v.cfg
	fs.StringVar(&v.configPath, "config", "", "YAML config file")
	fs.BoolVar(&c.Interactive, "i", c.Interactive, "shorthand for -interactive")
	fs.BoolVar(&c.Interactive, "interactive", c.Interactive, "prompt to accept new baselines")
	fs.Var(&v.tests, "t", "shorthand for -tests")
	fs.Var(&v.tests, "tests", "test file to run (repeatable)")
	fs.StringVar(&c.Dir, "d", c.Dir, "shorthand for -dir")
	fs.StringVar(&c.Dir, "dir", c.Dir, "static directory to serve")
	fs.IntVar(&c.Port, "p", c.Port, "shorthand for -port")
	fs.IntVar(&c.Port, "port", c.Port, "port for the static server")
	fs.StringVar(&c.URL, "u", c.URL, "shorthand for -url")
	fs.StringVar(&c.URL, "url", c.URL, "page to test when no -dir is given")
	fs.BoolVar(&c.ShowLogs, "l", c.ShowLogs, "shorthand for -logs")
	fs.BoolVar(&c.ShowLogs, "logs", c.ShowLogs, "show browser output and page console")
	fs.Float64Var(&c.Threshold, "threshold", c.Threshold, "per-pixel color threshold in [0, 1]")
	fs.IntVar(&c.MismatchLimit, "limit", c.MismatchLimit, "differing pixels tolerated before a page fails")
	fs.IntVar(&c.Width, "width", c.Width, "viewport width")
	fs.IntVar(&c.Height, "height", c.Height, "viewport height")
	fs.BoolVar(&c.Headful, "headful", c.Headful, "show the browser window")
	fs.StringVar(&c.ChromePath, "chrome", c.ChromePath, "path to the Chrome executable")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "diagnostic log level (debug, info, warn, error)")
	fs.BoolVar(&c.NoColor, "no-color", c.NoColor, "disable colored output")

	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}

	cfg := v.cfg
	if v.configPath != "" {
		fileCfg, err := config.Load(v.configPath)
		if err != nil {
			return config.Config{}, err
		}
		// Flags given explicitly win over the file.
		cfg = fileCfg
		fs.Visit(func(f *flag.Flag) {
			applyFlag(&cfg, &v.cfg, f.Name)
		})
	}

	cfg.Tests = append(cfg.Tests, v.tests...)
	cfg.Tests = append(cfg.Tests, fs.Args()...)
	return cfg, nil
}

func applyFlag(dst, src *config.Config, name string) {
	switch name {
	case "i", "interactive":
		dst.Interactive = src.Interactive
	case "d", "dir":
		dst.Dir = src.Dir
	case "p", "port":
		dst.Port = src.Port
	case "u", "url":
		dst.URL = src.URL
	case "l", "logs":
		dst.ShowLogs = src.ShowLogs
	case "threshold":
		dst.Threshold = src.Threshold
	case "limit":
		dst.MismatchLimit = src.MismatchLimit
	case "width":
		dst.Width = src.Width
	case "height":
		dst.Height = src.Height
	case "headful":
		dst.Headful = src.Headful
	case "chrome":
		dst.ChromePath = src.ChromePath
	case "log-level":
		dst.LogLevel = src.LogLevel
	case "no-color":
		dst.NoColor = src.NoColor
	}
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := parseConfig(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	console := report.NewWithOutput(stdout, cfg.NoColor)
	if err := cfg.Validate(); err != nil {
		console.Error("%v", err)
		return 1
	}

	logger, err := newLogger(stderr, cfg.LogLevel)
	if err != nil {
		console.Error("%v", err)
		return 1
	}
	slog.SetDefault(logger)

	if cfg.Interactive && !confirm.IsTerminal(os.Stdin) {
		console.Warn("Interactive mode requested but stdin is not a terminal; prompts will read from the pipe")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r := runner.New(runner.Options{
		Config:  cfg,
		Console: console,
		Logger:  logger,
	})
	loader := script.NewWithOutput(r, stdout, stderr)
	for _, path := range cfg.Tests {
		if err := loader.LoadFile(path); err != nil {
			console.Error("%v", err)
			return 1
		}
	}

	res, err := r.Start(ctx)
	if err != nil && !errors.Is(err, runner.ErrNoPage) {
		console.Error("%v", err)
	}
	if !res.OK() {
		return 1
	}
	return 0
}
