package pipeline

import (
	"context"
	"path/filepath"
	"reflect"

	"remuxkit/internal/chapters"
	"remuxkit/internal/logging"
	"remuxkit/internal/services"
)

// chaptersStep converts probe chapter markers into a repaired Matroska
// chapter file. When the video track is delayed the chapter boundaries
// move with it.
type chaptersStep struct{}

func (chaptersStep) Name() string { return "chapters" }

func (chaptersStep) Enabled(pctx *Context) bool {
	return len(pctx.Probe.Chapters) > 0
}

func (chaptersStep) Run(ctx context.Context, pctx *Context) error {
	list := chapters.FromProbe(pctx.Probe.Chapters)
	list = chapters.Shift(list, pctx.Timing.VideoDelayMS)
	normalized := chapters.Normalize(list)
	if len(normalized) == 0 {
		pctx.Diagnostics.Warnf("chapters", "all %d chapters degenerate, muxing without chapters", len(list))
		return nil
	}
	if !reflect.DeepEqual(list, normalized) {
		if pctx.Config.Pipeline.StrictChapters {
			return services.Wrap(services.ErrValidation, "chapters", "normalize",
				"chapter list required repairs (strict_chapters enabled)", nil)
		}
		pctx.Diagnostics.Warnf("chapters", "chapter boundaries repaired (%d -> %d entries)",
			len(list), len(normalized))
	}
	normalized = chapters.Renumber(normalized)

	destination := filepath.Join(pctx.WorkDir, "chapters.xml")
	if err := chapters.WriteFile(destination, normalized); err != nil {
		return err
	}
	pctx.Chapters = normalized
	pctx.ChaptersPath = destination
	logging.WithContext(ctx, pctx.Logger).Info("chapters written",
		logging.Int("count", len(normalized)))
	return nil
}
