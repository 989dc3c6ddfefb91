package cmd

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lakshaymaurya-felt/macmole/internal/config"
	"github.com/lakshaymaurya-felt/macmole/internal/core"
	"github.com/lakshaymaurya-felt/macmole/internal/harness"
	"github.com/lakshaymaurya-felt/macmole/internal/logger"
	"github.com/lakshaymaurya-felt/macmole/internal/runner"
)

// Dependencies replaced in tests.
var (
	newLocalRunner                   = func() runner.Runner { return runner.NewExec() }
	rootChecker     core.RootChecker = core.OSRootChecker{}
	stdinIsTerminal                  = harness.StdinIsTerminal
)

// env is what every subcommand needs: config, logger, runner and guard.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	runner runner.Runner
	guard  *harness.Guard
	root   core.RootChecker
	out    io.Writer
}

// loadConfig reads the config file. Until the file's log_level is known
// only --debug can raise the level.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	level := "info"
	if debug {
		level = "debug"
	}
	return config.Load(effectiveConfigPath(), logger.New(level, cmd.ErrOrStderr()))
}

func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	return logger.New(level, cmd.ErrOrStderr())
}

// newEnv builds the env for cmd using the local runner.
func newEnv(cmd *cobra.Command, aggressive bool) (*env, error) {
	return newEnvWithRunner(cmd, aggressive, newLocalRunner())
}

func newEnvWithRunner(cmd *cobra.Command, aggressive bool, r runner.Runner) (*env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log := newLogger(cmd, cfg)
	out := cmd.OutOrStdout()

	opts := harness.OptionsFromFlags(dryRun, assumeYes, aggressive)
	prompter := harness.NewPrompter(cmd.InOrStdin(), out, stdinIsTerminal())
	g := harness.NewGuard(opts, prompter, nil, r, out, logger.WithComponent(log, "harness"))

	log.Debug("starting", "command", cmd.CommandPath(), "mode", opts.Mode.String(), "aggressive", aggressive)
	return &env{cfg: cfg, logger: log, runner: r, guard: g, root: rootChecker, out: out}, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
