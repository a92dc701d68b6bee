package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"remuxkit/internal/config"
	"remuxkit/internal/disc"
	"remuxkit/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the disc queue",
	}

	queueCmd.AddCommand(newQueueAddCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueSelectCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <path>...",
		Short: "Enqueue disc images or VIDEO_TS directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				out := cmd.OutOrStdout()
				for _, arg := range args {
					sources, err := disc.Locate(arg)
					if err != nil {
						return err
					}
					for _, source := range sources {
						item, err := store.Add(cmd.Context(), source.Path, source.Name())
						if err != nil {
							return fmt.Errorf("enqueue %s: %w", source.Path, err)
						}
						fmt.Fprintf(out, "Enqueued #%d %s\n", item.ID, source.Path)
					}
				}
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				items, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						strconv.FormatInt(item.ID, 10),
						item.DiscTitle,
						string(item.Status),
						formatTitles(item),
						formatDetail(item),
						item.CreatedAt.Local().Format("2006-01-02 15:04"),
					})
				}
				table := renderTable(
					[]string{"ID", "Title", "Status", "Titles", "Detail", "Created"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newQueueSelectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "select <id> <title>...",
		Short: "Restrict an analyzed item to specific title numbers",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid queue item id %q", args[0])
			}
			titles := make([]int, 0, len(args)-1)
			for _, arg := range args[1:] {
				title, err := strconv.Atoi(arg)
				if err != nil || title < 1 {
					return fmt.Errorf("invalid title number %q", arg)
				}
				titles = append(titles, title)
			}
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				if err := store.SetSelectedTitles(cmd.Context(), id, titles); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Item #%d limited to titles %s\n", id, joinInts(titles))
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearAll bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove finished queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				removed, err := store.Clear(cmd.Context(), clearAll)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d items\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearAll, "all", false, "Remove every item regardless of status")
	return cmd
}

func formatTitles(item *queue.Item) string {
	if item.TitleCount == 0 {
		return "-"
	}
	if len(item.SelectedTitles) > 0 {
		return fmt.Sprintf("%s of %d", joinInts(item.SelectedTitles), item.TitleCount)
	}
	return strconv.Itoa(item.TitleCount)
}

func formatDetail(item *queue.Item) string {
	if item.ErrorMessage != "" {
		return item.ErrorMessage
	}
	if item.ProgressStage == "" {
		return ""
	}
	if item.ProgressMessage == "" {
		return item.ProgressStage
	}
	return item.ProgressStage + ": " + item.ProgressMessage
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, value := range values {
		parts[i] = strconv.Itoa(value)
	}
	return strings.Join(parts, ",")
}
