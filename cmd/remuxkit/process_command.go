package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"remuxkit/internal/config"
	"remuxkit/internal/disc"
	"remuxkit/internal/queue"
	"remuxkit/internal/workflow"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "process [path]...",
		Short: "Work through the queue once and exit",
		Long: "Process enqueues any sources given as arguments, then analyzes and " +
			"remuxes every queued disc until the queue has no work left.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer cancel()

				out := cmd.OutOrStdout()
				for _, arg := range args {
					sources, err := disc.Locate(arg)
					if err != nil {
						return err
					}
					for _, source := range sources {
						item, err := store.Add(signalCtx, source.Path, source.Name())
						if err != nil {
							return fmt.Errorf("enqueue %s: %w", source.Path, err)
						}
						fmt.Fprintf(out, "Enqueued #%d %s\n", item.ID, source.Path)
					}
				}

				logger, err := newLogger(cfg)
				if err != nil {
					return fmt.Errorf("init logger: %w", err)
				}
				mgr, err := workflow.New(cfg, store, logger)
				if err != nil {
					return err
				}
				return mgr.Drain(signalCtx)
			})
		},
	}
}
