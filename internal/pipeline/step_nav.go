package pipeline

import (
	"context"

	"remuxkit/internal/ifo"
	"remuxkit/internal/logging"
	"remuxkit/internal/timing"
)

// navStep reads the title's navigation metadata and, when the timing
// method allows it, the first presentation timestamps from the title set's
// stream files. Navigation data is best effort: an image source without an
// accessible VIDEO_TS layout simply yields nothing.
type navStep struct{}

func (navStep) Name() string { return "navigation" }

func (navStep) Enabled(*Context) bool { return true }

func (navStep) Run(ctx context.Context, pctx *Context) error {
	logger := logging.WithContext(ctx, pctx.Logger)

	info, err := ifo.ReadTitle(pctx.Source.Path, pctx.Title)
	if err != nil {
		return err
	}
	pctx.Nav = info
	if info.Empty() {
		pctx.Diagnostics.Infof("navigation", "no navigation metadata for %s", pctx.Source.Path)
	} else {
		logger.Info("navigation metadata read",
			logging.Int("audio_tracks", len(info.Audio)),
			logging.Int("subtitle_tracks", len(info.Subtitles)),
			logging.Int("palette_entries", len(info.Palette)),
		)
	}

	if !navTimestampsWanted(pctx) {
		return nil
	}
	nav, err := ifo.ReadNavTimestamps(pctx.Source.Path, pctx.Title,
		pctx.Probe.CountKind("audio"), pctx.Probe.CountKind("subtitle"))
	if err != nil {
		// The reconciler falls back to the probe-derived methods.
		pctx.Diagnostics.Warnf("navigation", "stream timestamp scan failed: %v", err)
		return nil
	}
	pctx.NavPTS = nav
	if nav.Video != nil {
		logger.Info("navigation timestamps collected",
			logging.Int("audio", len(nav.Audio)),
			logging.Int("subpicture", len(nav.Subpicture)),
		)
	}
	return nil
}

func navTimestampsWanted(pctx *Context) bool {
	method, err := timing.ParseMethod(pctx.Config.Pipeline.TimingMethod)
	if err != nil {
		return true
	}
	return method == timing.MethodAuto || method == timing.MethodNavigation
}
