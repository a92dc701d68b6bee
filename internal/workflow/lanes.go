package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"remuxkit/internal/disc"
	"remuxkit/internal/fileutil"
	"remuxkit/internal/logging"
	"remuxkit/internal/pipeline"
	"remuxkit/internal/queue"
	"remuxkit/internal/services"
)

// analyzeNext claims the oldest pending item and enumerates its titles.
func (m *Manager) analyzeNext(ctx context.Context) (bool, error) {
	item, err := m.store.NextWithStatus(ctx, queue.StatusPending)
	if err != nil || item == nil {
		return false, err
	}
	logger := m.logger.With(logging.Int64(logging.FieldJobID, item.ID))
	if err := m.store.SetStatus(ctx, item.ID, queue.StatusAnalyzing); err != nil {
		return true, err
	}

	source, err := m.resolveSource(item)
	if err != nil {
		logger.Error("source resolution failed", logging.Error(err))
		return true, m.store.MarkFailed(ctx, item.ID, services.ShortReason(err))
	}

	analyzer, err := disc.NewAnalyzer(m.prober, logger, m.probeDir(source))
	if err != nil {
		return true, err
	}
	reports, err := analyzer.Titles(services.WithJobID(ctx, item.ID), source)
	if err != nil {
		if services.IsCancellation(err) {
			return true, err
		}
		logger.Error("analysis failed", logging.Error(err))
		return true, m.store.MarkFailed(ctx, item.ID, services.ShortReason(err))
	}

	discTitle := item.DiscTitle
	if discTitle == "" {
		discTitle = source.Name()
	}
	if err := m.store.SetAnalyzed(ctx, item.ID, discTitle, len(reports)); err != nil {
		return true, err
	}
	logger.Info("disc analyzed",
		logging.String("disc", discTitle),
		logging.Int("titles", len(reports)),
	)
	return true, nil
}

// processNext claims the oldest analyzed item and remuxes its titles in
// ascending order.
func (m *Manager) processNext(ctx context.Context) (bool, error) {
	item, err := m.store.NextWithStatus(ctx, queue.StatusAnalyzed)
	if err != nil || item == nil {
		return false, err
	}
	if err := m.store.SetStatus(ctx, item.ID, queue.StatusProcessing); err != nil {
		return true, err
	}
	if err := m.ProcessItem(ctx, item); err != nil {
		if services.IsCancellation(err) {
			return true, err
		}
		return true, nil
	}
	return true, nil
}

// ProcessItem runs the full pipeline for every selected title of an
// analyzed item and records the outcome on the queue. A failing title is
// recorded and the remaining titles still run in ascending order; only
// cancellation stops the loop.
func (m *Manager) ProcessItem(ctx context.Context, item *queue.Item) error {
	logger := m.logger.With(logging.Int64(logging.FieldJobID, item.ID))
	jobCtx := services.WithJobID(ctx, item.ID)

	source, err := m.resolveSource(item)
	if err != nil {
		logger.Error("source resolution failed", logging.Error(err))
		return m.store.MarkFailed(ctx, item.ID, services.ShortReason(err))
	}

	analyzer, err := disc.NewAnalyzer(m.prober, logger, m.probeDir(source))
	if err != nil {
		return err
	}
	reports, err := analyzer.Titles(jobCtx, source)
	if err != nil {
		if services.IsCancellation(err) {
			return m.markStopped(item.ID, err)
		}
		return m.store.MarkFailed(ctx, item.ID, services.ShortReason(err))
	}
	reports = filterTitles(reports, item.SelectedOrAll())
	if len(reports) == 0 {
		return m.store.MarkFailed(ctx, item.ID, "no selected titles to process")
	}

	runDir, err := m.runDirectory(item)
	if err != nil {
		return m.store.MarkFailed(ctx, item.ID, services.ShortReason(err))
	}
	defer func() {
		if err := os.RemoveAll(runDir); err != nil {
			logger.Warn("run directory cleanup failed", logging.Error(err))
		}
	}()

	outDir := filepath.Join(m.cfg.Paths.OutputDir, fileutil.SanitizeName(item.DiscTitle))
	var failures []string
	for _, report := range reports {
		titleCtx := services.WithTitle(jobCtx, report.Number)
		result := m.orch.Run(titleCtx, &pipeline.Context{
			Source:   source,
			Title:    report.Number,
			Probe:    report.Probe,
			WorkDir:  filepath.Join(runDir, fmt.Sprintf("title_%02d", report.Number)),
			OutDir:   outDir,
			BaseName: baseName(item.DiscTitle, report.Number, len(reports)),
			Config:   m.cfg,
			Logger:   logger.With(logging.Int(logging.FieldTitle, report.Number)),
			Runner:   m.runner,
			Progress: func(stage, message string) {
				_ = m.store.SetProgress(ctx, item.ID,
					fmt.Sprintf("title %d: %s", report.Number, stage), message)
			},
		})
		switch result.Outcome {
		case pipeline.OutcomeStopped:
			return m.markStopped(item.ID, result.Err)
		case pipeline.OutcomeFailed:
			logger.Error("title failed",
				logging.Int(logging.FieldTitle, report.Number),
				logging.Error(result.Err),
			)
			failures = append(failures, fmt.Sprintf("title %d: %s",
				report.Number, services.ShortReason(result.Err)))
			continue
		}
		logger.Info("title remuxed",
			logging.Int(logging.FieldTitle, report.Number),
			logging.String("output", result.OutputPath),
		)
	}

	if len(failures) > 0 {
		return m.store.MarkFailed(ctx, item.ID, fmt.Sprintf("%d of %d titles failed: %s",
			len(failures), len(reports), strings.Join(failures, "; ")))
	}
	if err := m.store.SetStatus(ctx, item.ID, queue.StatusCompleted); err != nil {
		return err
	}
	m.maybeEject(ctx, source, logger)
	return nil
}

// markStopped records cancellation with a fresh context so the update
// itself is not cancelled.
func (m *Manager) markStopped(id int64, cause error) error {
	if err := m.store.MarkStopped(context.Background(), id, "processing stopped"); err != nil {
		return err
	}
	return cause
}

// probeDir is where raw per-title probe output is kept for debugging.
func (m *Manager) probeDir(source disc.Source) string {
	return filepath.Join(m.cfg.Paths.LogDir, "probes", fileutil.SanitizeName(source.Name()))
}

func (m *Manager) resolveSource(item *queue.Item) (disc.Source, error) {
	sources, err := disc.Locate(item.SourcePath)
	if err != nil {
		return disc.Source{}, err
	}
	if len(sources) != 1 {
		return disc.Source{}, fmt.Errorf("queue item %d: %s resolves to %d sources, enqueue them individually",
			item.ID, item.SourcePath, len(sources))
	}
	return sources[0], nil
}

// runDirectory builds a unique per-run staging directory so a re-queued
// disc never collides with leftovers from a previous run.
func (m *Manager) runDirectory(item *queue.Item) (string, error) {
	name := fmt.Sprintf("%s-%s", fileutil.SanitizeName(item.DiscTitle), uuid.NewString())
	dir := filepath.Join(m.cfg.Paths.StagingDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create run directory: %w", err)
	}
	return dir, nil
}

func (m *Manager) maybeEject(ctx context.Context, source disc.Source, logger *slog.Logger) {
	if !m.cfg.Workflow.EjectOnCompletion {
		return
	}
	ejector := m.ejector
	// Image and directory sources have no tray to release.
	if source.Kind != disc.SourceDevice {
		ejector = disc.NopEjector{}
	}
	if err := ejector.Eject(ctx, source.Path); err != nil {
		logger.Warn("eject failed", logging.Error(err))
	}
}

func filterTitles(reports []disc.TitleReport, selected []int) []disc.TitleReport {
	if len(selected) == 0 {
		return reports
	}
	want := make(map[int]struct{}, len(selected))
	for _, title := range selected {
		want[title] = struct{}{}
	}
	var filtered []disc.TitleReport
	for _, report := range reports {
		if _, ok := want[report.Number]; ok {
			filtered = append(filtered, report)
		}
	}
	return filtered
}

func baseName(discTitle string, title, count int) string {
	base := fileutil.SanitizeName(discTitle)
	if base == "" {
		base = "title"
	}
	if count == 1 {
		return base
	}
	return fmt.Sprintf("%s_title_%02d", base, title)
}
