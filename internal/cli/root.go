// Package cli is the command surface: flag parsing, wiring and exit codes.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/icheck/internal/app"
	"github.com/hamed0406/icheck/internal/config"
	"github.com/hamed0406/icheck/internal/domain"
	"github.com/hamed0406/icheck/internal/logging"
)

const Version = "0.1.0"

// Exit codes.
const (
	ExitOK                   = 0
	ExitError                = 1
	ExitNotInitialized       = 2
	ExitCorruptData          = 3
	ExitIO                   = 4
	ExitSchedulerUnavailable = 5
)

// Env carries the process surroundings so tests can run commands in-process.
type Env struct {
	Stdout io.Writer
	Stderr io.Writer
	// Build wires the application; app.New when nil.
	Build func(cfg config.Config, logger *zap.Logger) (*app.App, error)
}

type rootFlags struct {
	dataDir    string
	configFile string
	verbose    bool
}

// session is what a command body gets once config and logging are up.
type session struct {
	env    Env
	cfg    config.Config
	logger *zap.Logger
	app    *app.App
}

func NewRoot(env Env) *cobra.Command {
	if env.Stdout == nil {
		env.Stdout = os.Stdout
	}
	if env.Stderr == nil {
		env.Stderr = os.Stderr
	}
	if env.Build == nil {
		env.Build = app.New
	}

	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   config.AppName,
		Short: "icheck records internet connectivity changes",
		Long: `icheck probes a well-known host on a schedule and records every change
between connected and disconnected in a JSON event log.

Run "icheck init" once to create the log and install the crontab entry.
`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(env.Stdout)
	root.SetErr(env.Stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.dataDir, "data-dir", "", "data directory (default $ICHECK_DATA_DIR or XDG data home)")
	pf.StringVar(&flags.configFile, "config", os.Getenv("ICHECK_CONFIG"), "optional YAML settings file")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "also log to stderr")

	// run opens a session for the command body and always flushes the logger.
	run := func(body func(ctx context.Context, s *session, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			s, err := open(env, flags)
			if err != nil {
				return err
			}
			defer func() { _ = s.logger.Sync() }()
			return body(cmd.Context(), s, cmd, args)
		}
	}

	root.AddCommand(
		initCmd(run),
		checkCmd(run),
		eventsCmd(run),
		cronCmd(run),
		serveCmd(run),
		versionCmd(),
	)
	return root
}

func open(env Env, flags *rootFlags) (*session, error) {
	cfg, err := config.Load(flags.configFile)
	if err != nil {
		return nil, err
	}
	if cfg, err = cfg.WithDataDir(flags.dataDir); err != nil {
		return nil, err
	}

	opts := logging.Options{Dir: cfg.LogDir, Level: cfg.LogLevel}
	if flags.verbose {
		opts.Console = env.Stderr
	}
	logger, err := logging.NewLogger(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: logger: %w", domain.ErrIO, err)
	}

	a, err := env.Build(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return &session{env: env, cfg: cfg, logger: logger, app: a}, nil
}

// ExitCode maps an error onto the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch {
	case errors.Is(err, domain.ErrNotInitialized):
		return ExitNotInitialized
	case errors.Is(err, domain.ErrCorruptData):
		return ExitCorruptData
	case errors.Is(err, domain.ErrSchedulerUnavailable):
		return ExitSchedulerUnavailable
	case errors.Is(err, domain.ErrIO):
		return ExitIO
	}
	return ExitError
}

// hint adds what the user can do about an error kind.
func hint(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotInitialized):
		return `run "icheck init" first`
	case errors.Is(err, domain.ErrCorruptData):
		return "the event log is unreadable; fix or move it aside, it is never overwritten"
	case errors.Is(err, domain.ErrSchedulerUnavailable):
		return "is crontab installed and usable by this user?"
	}
	return ""
}

// Execute runs the command line and returns the exit code for main.
func Execute(ctx context.Context, env Env, args []string) int {
	root := NewRoot(env)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}
	errOut := root.ErrOrStderr()
	fmt.Fprintf(errOut, "Error: %v\n", err)
	if h := hint(err); h != "" {
		fmt.Fprintf(errOut, "Hint: %s\n", h)
	}
	return ExitCode(err)
}
