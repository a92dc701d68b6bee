package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"remuxkit/internal/config"
	"remuxkit/internal/preflight"
	"remuxkit/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show environment checks and a queue summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				out := cmd.OutOrStdout()

				results := preflight.RunAll(cmd.Context(), cfg)
				checkRows := make([][]string, 0, len(results))
				for _, result := range results {
					checkRows = append(checkRows, []string{
						result.Name,
						checkVerdict(result),
						result.Detail,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Check", "Result", "Detail"},
					checkRows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft},
				))

				items, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}
				counts := make(map[queue.Status]int)
				for _, item := range items {
					counts[item.Status]++
				}
				statusRows := make([][]string, 0, len(counts))
				for _, status := range queue.AllStatuses() {
					if count := counts[status]; count > 0 {
						statusRows = append(statusRows, []string{string(status), strconv.Itoa(count)})
					}
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Status", "Count"},
					statusRows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func checkVerdict(result preflight.Result) string {
	switch {
	case result.Passed:
		return "ok"
	case result.Optional:
		return "missing (optional)"
	default:
		return "failed"
	}
}
