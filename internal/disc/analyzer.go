package disc

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"remuxkit/internal/logging"
	"remuxkit/internal/media/ffprobe"
	"remuxkit/internal/services"
)

const (
	// maxTitleNumber is the highest title a DVD can carry.
	maxTitleNumber = 99
	// maxConsecutiveFailures ends enumeration once this many titles in a
	// row fail to probe.
	maxConsecutiveFailures = 3
)

// TitleReport is the probe outcome for one playable title.
type TitleReport struct {
	Number          int
	Probe           ffprobe.Result
	DurationSeconds float64
}

// Analyzer enumerates the playable titles of a DVD source.
type Analyzer struct {
	prober *ffprobe.Prober
	logger *slog.Logger
	// rawDir, when set, receives the raw probe JSON per title for the
	// debugging artifact.
	rawDir string
}

// NewAnalyzer constructs an Analyzer. rawDir may be empty to skip
// persisting raw probe output.
func NewAnalyzer(prober *ffprobe.Prober, logger *slog.Logger, rawDir string) (*Analyzer, error) {
	if prober == nil {
		return nil, fmt.Errorf("disc analyzer: prober required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Analyzer{prober: prober, logger: logger, rawDir: rawDir}, nil
}

// Titles probes titles sequentially from 1, stopping after three
// consecutive probe failures or past title 99. A title without a video
// stream is skipped but does not count as a failure. At least one playable
// title is required.
func (a *Analyzer) Titles(ctx context.Context, source Source) ([]TitleReport, error) {
	var reports []TitleReport
	failures := 0
	for title := 1; title <= maxTitleNumber; title++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := a.prober.InspectTitle(ctx, source.Path, title)
		if err != nil {
			if services.IsCancellation(err) {
				return nil, err
			}
			failures++
			a.logger.Debug("title probe failed",
				logging.Int("title", title),
				logging.Error(err),
			)
			if failures >= maxConsecutiveFailures {
				break
			}
			continue
		}
		failures = 0
		if result.VideoStream() == nil {
			a.logger.Debug("title has no video stream, skipping", logging.Int("title", title))
			continue
		}
		if err := a.persistRaw(title, result); err != nil {
			return nil, err
		}
		reports = append(reports, TitleReport{
			Number:          title,
			Probe:           result,
			DurationSeconds: result.DurationSeconds(),
		})
		a.logger.Info("title analyzed",
			logging.Int("title", title),
			logging.Int("streams", len(result.Streams)),
			logging.Float64("duration_seconds", result.DurationSeconds()),
		)
	}
	if len(reports) == 0 {
		return nil, services.Wrap(services.ErrValidation, "analyze", "titles",
			fmt.Sprintf("no playable titles on %s", source.Path), nil)
	}
	return reports, nil
}

func (a *Analyzer) persistRaw(title int, result ffprobe.Result) error {
	if a.rawDir == "" {
		return nil
	}
	if err := os.MkdirAll(a.rawDir, 0o755); err != nil {
		return fmt.Errorf("disc analyzer: create probe output dir: %w", err)
	}
	path := filepath.Join(a.rawDir, fmt.Sprintf("title_%02d.probe.json", title))
	if err := os.WriteFile(path, result.RawJSON(), 0o644); err != nil {
		return fmt.Errorf("disc analyzer: persist probe output: %w", err)
	}
	return nil
}
