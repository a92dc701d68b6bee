package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"remuxkit/internal/logging"
	"remuxkit/internal/metadata"
	"remuxkit/internal/services"
)

// captionsStep runs ccextractor over the extracted video elementary stream
// and keeps the resulting subtitle file when it contains any cues. Caption
// extraction is optional end to end: a disc without embedded captions is
// not an error.
type captionsStep struct{}

func (captionsStep) Name() string { return "captions" }

func (captionsStep) Enabled(pctx *Context) bool {
	return pctx.Config.Pipeline.ExtractCaptions &&
		strings.TrimSpace(pctx.Config.Tools.CCExtractor) != ""
}

func (captionsStep) Run(ctx context.Context, pctx *Context) error {
	video := videoRecord(pctx.Records)
	if video == nil {
		return nil
	}
	source, ok := pctx.Extracted[video.Index]
	if !ok {
		return nil
	}
	// The muxed video may have had its caption user data stripped; the
	// caption reader needs an unstripped copy.
	if pctx.Config.Pipeline.StripVideoCaptions && video.Codec == "mpeg2video" {
		unstripped := filepath.Join(pctx.WorkDir, "captions_source"+video.ExtractExtension())
		if err := extractStream(ctx, pctx, *video, unstripped, false); err != nil {
			if services.IsCancellation(err) {
				return err
			}
			pctx.Diagnostics.Warnf("captions", "unstripped video copy failed: %v", err)
			return nil
		}
		source = unstripped
	}
	destination := filepath.Join(pctx.WorkDir, "captions.srt")
	err := pctx.Runner.Run(ctx, pctx.Config.Tools.CCExtractor,
		[]string{source, "-o", destination}, nil)
	if err != nil {
		if services.IsCancellation(err) {
			return err
		}
		// ccextractor exits non-zero on caption-free input as well.
		pctx.Diagnostics.Infof("captions", "no captions extracted: %v", err)
		return nil
	}
	info, statErr := os.Stat(destination)
	if statErr != nil || info.Size() == 0 {
		pctx.Diagnostics.Infof("captions", "video carries no caption data")
		return nil
	}
	pctx.CaptionsPath = destination
	logging.WithContext(ctx, pctx.Logger).Info("captions extracted",
		logging.Int64("bytes", info.Size()))
	return nil
}

// captionRecord builds the stream record for the extracted caption track.
func captionRecord(pctx *Context) metadata.StreamRecord {
	record := metadata.StreamRecord{
		Kind:           metadata.KindSubtitle,
		Codec:          "subrip",
		Language:       pctx.Config.Pipeline.FallbackLanguage,
		ClosedCaptions: true,
	}
	if record.Language == "" {
		record.Language = "und"
	}
	if pctx.Config.Pipeline.TrackNames {
		record.Name = "Closed Captions [CC]"
	}
	return record
}
