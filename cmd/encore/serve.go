package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"encore/internal/config"
	"encore/internal/daemon"
	"encore/internal/deps"
	"encore/internal/logging"
	"encore/internal/pipeline"
	"encore/internal/preflight"
	"encore/internal/recording"
	"encore/internal/store"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the encore daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemonProcess(cmd.Context(), ctx)
		},
	}
}

func runDaemonProcess(cmdCtx context.Context, ctx *commandContext) error {
	if cmdCtx == nil {
		cmdCtx = context.Background()
	}
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logEnvironment(logger, cfg)

	st, err := store.Open(cfg.DatabasePath())
	if err != nil {
		logger.Error("open store", logging.Error(err))
		return err
	}

	jobs := pipeline.New(cfg, st, logger)
	recordings := recording.New(cfg, st, logger)
	d, err := daemon.New(cfg, st, logger, jobs, recordings)
	if err != nil {
		_ = st.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	<-signalCtx.Done()
	logger.Info("shutdown requested", logging.String(logging.FieldEventType, "shutdown_requested"))
	return nil
}

// logEnvironment records missing tools and failing storage checks at startup.
// Neither stops the daemon; affected jobs fail with a clear message instead.
func logEnvironment(logger *slog.Logger, cfg *config.Config) {
	statuses := deps.Check(cfg)
	if missing := deps.MissingRequired(statuses); len(missing) > 0 {
		logging.WarnWithContext(logger, "required tools missing", "dependency_check",
			logging.Strings("missing", missing),
			logging.String(logging.FieldErrorHint, "install the tools or set their paths in config"),
			logging.String(logging.FieldImpact, "jobs and recordings relying on them will fail or fall back"),
		)
	}
	for _, result := range preflight.RunAll(cfg) {
		if result.Passed {
			continue
		}
		logging.WarnWithContext(logger, "storage check failed", "preflight_check",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldImpact, "uploads or outputs may fail to write"),
		)
	}
}
