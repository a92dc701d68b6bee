package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"remuxkit/internal/config"
	"remuxkit/internal/discwatch"
	"remuxkit/internal/logging"
	"remuxkit/internal/preflight"
	"remuxkit/internal/queue"
	"remuxkit/internal/workflow"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch for discs and process the queue until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer cancel()

				if failed := preflight.Failed(preflight.RunAll(signalCtx, cfg)); len(failed) > 0 {
					names := make([]string, len(failed))
					for i, result := range failed {
						names[i] = result.Name
					}
					return fmt.Errorf("preflight failed: %s (see `remuxkit status`)", strings.Join(names, ", "))
				}

				logger, err := newLogger(cfg)
				if err != nil {
					return fmt.Errorf("init logger: %w", err)
				}

				mgr, err := workflow.New(cfg, store, logger)
				if err != nil {
					return err
				}

				monitor := discwatch.NewMonitor(cfg.Workflow.OpticalDrive, logger,
					func(insertCtx context.Context, device string) {
						if _, err := store.Add(insertCtx, device, ""); err != nil {
							logger.Warn("enqueue inserted disc failed",
								logging.String("device", device), logging.Error(err))
							return
						}
						logger.Info("inserted disc enqueued", logging.String("device", device))
					})
				if err := monitor.Start(signalCtx); err != nil {
					logger.Warn("disc monitor unavailable", logging.Error(err))
				}
				defer monitor.Stop()

				logger.Info("remuxkit running",
					logging.String("staging", cfg.Paths.StagingDir),
					logging.String("output", cfg.Paths.OutputDir),
				)
				return mgr.Run(signalCtx)
			})
		},
	}
}
