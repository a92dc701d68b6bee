package pipeline

import (
	"context"
	"strings"

	"remuxkit/internal/logging"
	"remuxkit/internal/metadata"
	"remuxkit/internal/services"
	"remuxkit/internal/telecine"
)

// telecineStep samples flagged video to decide whether the interlaced
// field order flag should survive the remux.
type telecineStep struct{}

func (telecineStep) Name() string { return "telecine" }

func (telecineStep) Enabled(pctx *Context) bool {
	mode, err := telecine.ParseMode(pctx.Config.Pipeline.TelecineMode)
	return err == nil && mode != telecine.ModeDisabled
}

func (telecineStep) Run(ctx context.Context, pctx *Context) error {
	video := videoRecord(pctx.Records)
	if video == nil {
		return nil
	}
	cfg := pctx.Config.Pipeline
	mode, err := telecine.ParseMode(cfg.TelecineMode)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "telecine", "mode", err.Error(), err)
	}
	detector, err := telecine.NewDetector(pctx.Config.Tools.FFmpeg, pctx.Runner,
		cfg.TelecineSampleSeconds, cfg.TelecineProgressiveThreshold)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "telecine", "detector", err.Error(), err)
	}
	decision, err := detector.Analyze(ctx, mode, pctx.Source.Path, pctx.Title, video.FieldOrder)
	if err != nil {
		if services.IsCancellation(err) {
			return err
		}
		// Detection failure keeps the source flag rather than failing the
		// title.
		pctx.Diagnostics.Warnf("telecine", "detection failed, keeping source field order: %v", err)
		return nil
	}
	if decision == nil {
		return nil
	}
	pctx.Telecine = decision
	logger := logging.WithContext(ctx, pctx.Logger)
	logger.Info("telecine decision",
		logging.String("classification", string(decision.Classification)),
		logging.Bool("sampled", decision.Sampled),
		logging.Float64("progressive_pct", decision.Tally.ProgressivePct()),
	)
	return nil
}

// ResolvedFieldOrder is the field order the mux should write for the video
// track, derived from the telecine decision and the probe flag.
func ResolvedFieldOrder(record metadata.StreamRecord, decision *telecine.Decision) string {
	if decision != nil {
		if decision.Classification == telecine.Progressive {
			return "progressive"
		}
		if order := strings.TrimSpace(record.FieldOrder); order != "" && record.IsInterlaced() {
			return order
		}
		return "tt"
	}
	if record.IsInterlaced() {
		return record.FieldOrder
	}
	return ""
}

func videoRecord(records []metadata.StreamRecord) *metadata.StreamRecord {
	for i := range records {
		if records[i].Kind == metadata.KindVideo {
			return &records[i]
		}
	}
	return nil
}
