package pipeline

import (
	"context"
	"fmt"

	"remuxkit/internal/logging"
	"remuxkit/internal/metadata"
	"remuxkit/internal/services"
	"remuxkit/internal/timing"
)

// metadataStep reconciles stream timing and merges probe and navigation
// metadata into the stream records every later step works from.
type metadataStep struct{}

func (metadataStep) Name() string { return "metadata" }

func (metadataStep) Enabled(*Context) bool { return true }

func (metadataStep) Run(ctx context.Context, pctx *Context) error {
	logger := logging.WithContext(ctx, pctx.Logger)
	cfg := pctx.Config.Pipeline

	method, err := timing.ParseMethod(cfg.TimingMethod)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "metadata", "timing", err.Error(), err)
	}
	result := timing.Reconcile(pctx.Probe.Streams, method,
		timing.NavigationSource(pctx.NavPTS),
		timing.PresentationSource(),
		timing.ProbeStartSource(),
	)
	for _, warning := range result.Warnings {
		pctx.Diagnostics.Warnf("metadata", "%s", warning)
	}
	logger.Info("timing reconciled",
		logging.String("method", result.Method.String()),
		logging.Int("video_delay_ms", result.VideoDelayMS),
	)

	if err := checkSkew(pctx, result); err != nil {
		return err
	}
	pctx.Timing = result

	pctx.Records = metadata.Merge(pctx.Probe.Streams, pctx.Nav, result, metadata.Options{
		TrackNames:       cfg.TrackNames,
		FallbackLanguage: cfg.FallbackLanguage,
	})
	if len(pctx.Records) == 0 {
		return services.Wrap(services.ErrValidation, "metadata", "merge", "no usable streams", nil)
	}
	return nil
}

// checkSkew grades every delay against the configured thresholds. Severe
// skews fail the title; moderate skews fail it only when automatic fixes
// are disabled.
func checkSkew(pctx *Context, result timing.Result) error {
	cfg := pctx.Config.Pipeline
	for index, delay := range result.DelaysMS {
		class := timing.ClassifySkew(delay, cfg.SyncWarnThresholdMS, cfg.SyncErrorThresholdMS)
		switch class {
		case timing.SkewSevere:
			return services.Wrap(services.ErrValidation, "metadata", "skew",
				fmt.Sprintf("stream %d skew %dms exceeds error threshold", index, delay), nil)
		case timing.SkewModerate:
			if !cfg.SyncAutoFix {
				return services.Wrap(services.ErrValidation, "metadata", "skew",
					fmt.Sprintf("stream %d skew %dms needs review (sync_auto_fix disabled)", index, delay), nil)
			}
			pctx.Diagnostics.Warnf("metadata", "stream %d skew %dms corrected", index, delay)
		}
	}
	return nil
}
