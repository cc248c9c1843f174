package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/tinytelemetry/logstats/internal/logging"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the CLI against the process stdin and returns the exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	flags := newFlagSet()
	flags.SetOutput(stderr)
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(stderr, flags)
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if help, _ := flags.GetBool("help"); help {
		printHelp(stderr, flags)
		return 0
	}
	if rest := flags.Args(); len(rest) > 0 {
		fmt.Fprintf(stderr, "Error: unexpected argument: %s\n", rest[0])
		return 2
	}

	if showVersion, _ := flags.GetBool("version"); showVersion {
		fmt.Fprintf(stdout, "logstats - Access Log Metrics\n")
		fmt.Fprintf(stdout, "  Version:    %s\n", version)
		fmt.Fprintf(stdout, "  Commit:     %s\n", commit)
		fmt.Fprintf(stdout, "  Built:      %s\n", buildTime)
		fmt.Fprintf(stdout, "  Go version: %s\n", goVersion)
		return 0
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}

	if printConfig, _ := flags.GetBool("print-config"); printConfig {
		if err := yaml.NewEncoder(stdout).Encode(cfg); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(stderr, "Error initializing logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Banner && term.IsTerminal(int(os.Stdin.Fd())) {
		printStartupBanner(stderr, cfg)
	}

	if err := runStats(context.Background(), cfg, os.Stdin, stdout, logger); err != nil {
		logger.Error("run failed", zap.Error(err))
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printHelp(w io.Writer, flags *pflag.FlagSet) {
	fmt.Fprintf(w, `logstats - streaming access-log metrics.

Reads access-log lines from stdin and prints the total byte size and
per-status-code counts every 10 valid lines and once more on exit
(end of input or Ctrl+C).

Usage:
  logstats [flags] < access.log

Flags:
%s`, flags.FlagUsages())
}
