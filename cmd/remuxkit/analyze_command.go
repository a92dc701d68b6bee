package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"remuxkit/internal/command"
	"remuxkit/internal/disc"
	"remuxkit/internal/logging"
	"remuxkit/internal/media/ffprobe"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <path>",
		Short: "Enumerate the titles of a disc source without queueing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			sources, err := disc.Locate(args[0])
			if err != nil {
				return err
			}

			logger := logging.NewNop()
			runner := command.NewRunner(logger)
			prober, err := ffprobe.New(cfg.Tools.FFprobe, runner)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, source := range sources {
				analyzer, err := disc.NewAnalyzer(prober, logger, "")
				if err != nil {
					return err
				}
				reports, err := analyzer.Titles(cmd.Context(), source)
				if err != nil {
					return fmt.Errorf("analyze %s: %w", source.Path, err)
				}

				rows := make([][]string, 0, len(reports))
				for _, report := range reports {
					rows = append(rows, []string{
						strconv.Itoa(report.Number),
						formatDuration(report.DurationSeconds),
						strconv.Itoa(report.Probe.CountKind("audio")),
						strconv.Itoa(report.Probe.CountKind("subtitle")),
						strconv.Itoa(len(report.Probe.Chapters)),
					})
				}
				fmt.Fprintf(out, "%s (%s)\n", source.Name(), source.Path)
				fmt.Fprintln(out, renderTable(
					[]string{"Title", "Duration", "Audio", "Subtitles", "Chapters"},
					rows,
					[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight},
				))
			}
			return nil
		},
	}
}

func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}
