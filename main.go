package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/cresca/internal/commands"
	"github.com/colonyops/cresca/internal/core/config"
	"github.com/colonyops/cresca/internal/review"
	"github.com/colonyops/cresca/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, build() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	// When installed via `go install module@version`, ldflags aren't set
	// so version remains "dev". Fall back to runtime/debug.BuildInfo which
	// Go populates automatically with the module version and VCS metadata.
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx := context.Background()

	var logCloser func()

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "cresca",
		Usage:     "Pull request partial review tool",
		UsageText: "cresca [global options] command [command options]",
		Description: `Cresca helps with partial pull request review. It prepares a dedicated
review branch where reviewed changes are marked as committed, so when the
assignee pushes new changes you always know which ones you have already
seen.

Run 'cresca review <target> <source>' to prepare a review branch, stage the
changes you have reviewed, and run 'cresca approve' to record them.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal)",
				Sources:     cli.EnvVars("CRESCA_LOG_LEVEL"),
				Value:       "warn",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to stderr)",
				Sources:     cli.EnvVars("CRESCA_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("CRESCA_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "repo",
				Usage:       "path to the repository to operate on",
				Value:       ".",
				Destination: &flags.RepoDir,
			},
			&cli.BoolFlag{
				Name:        "verbose",
				Usage:       "log executed git commands",
				Destination: &flags.Verbose,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			level := flags.LogLevel
			if flags.Verbose {
				level = "debug"
			}

			logger, closer, err := logutils.New(level, flags.LogFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger
			logCloser = closer

			cfg, err := config.Load(flags.ConfigPath)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			flags.Config = cfg

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	app = commands.NewReviewCmd(flags).Register(app)
	app = commands.NewApproveCmd(flags).Register(app)
	app = commands.NewStatusCmd(flags).Register(app)

	exitCode := 0
	if runErr := app.Run(ctx, os.Args); runErr != nil {
		fmt.Fprintln(os.Stderr, "error:", runErr.Error())
		exitCode = 1

		var rerr *review.Error
		if errors.As(runErr, &rerr) {
			exitCode = rerr.ExitCode
		}
	}

	os.Exit(exitCode)
}
