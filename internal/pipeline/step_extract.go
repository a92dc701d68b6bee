package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"remuxkit/internal/logging"
	"remuxkit/internal/metadata"
	"remuxkit/internal/services"
)

// minStreamBytes is the lower bound under which an extracted elementary
// stream counts as empty. DVD subpicture tracks can legitimately be tiny,
// so only genuinely empty output is excluded.
const minStreamBytes = 1

// extractStep demuxes each stream record into its own elementary file.
// A stream that fails to extract or produces an empty file is excluded
// from the mux with a warning; extraction fails the title only when no
// stream at all survives.
type extractStep struct{}

func (extractStep) Name() string { return "extract" }

func (extractStep) Enabled(*Context) bool { return true }

func (extractStep) Run(ctx context.Context, pctx *Context) error {
	logger := logging.WithContext(ctx, pctx.Logger)
	pctx.Extracted = make(map[int]string, len(pctx.Records))

	// Records are already ordered video first.
	weights, total := extractionWeights(pctx)
	done := 0.0
	for i, record := range pctx.Records {
		if err := ctx.Err(); err != nil {
			return err
		}
		pctx.progress("extract", fmt.Sprintf("%d%%", int(done/total*100)))
		done += weights[i]
		destination := filepath.Join(pctx.WorkDir, extractionName(pctx.Title, record))
		if err := extractStream(ctx, pctx, record, destination, pctx.Config.Pipeline.StripVideoCaptions); err != nil {
			if services.IsCancellation(err) {
				return err
			}
			pctx.Diagnostics.Warnf("extract", "stream %d (%s) failed: %v",
				record.Index, record.Codec, err)
			continue
		}
		size, err := fileSize(destination)
		if err != nil || size < minStreamBytes {
			pctx.Diagnostics.Warnf("extract", "stream %d (%s) produced no data, excluding",
				record.Index, record.Codec)
			continue
		}
		pctx.Extracted[record.Index] = destination
		logger.Info("stream extracted",
			logging.Int("stream", record.Index),
			logging.String("codec", record.Codec),
			logging.Int64("bytes", size),
		)
	}

	pctx.progress("extract", "100%")

	if len(pctx.Extracted) == 0 {
		return services.Wrap(services.ErrExternalTool, "extract", "run",
			"no stream could be extracted", nil)
	}
	if video := videoRecord(pctx.Records); video != nil {
		if _, ok := pctx.Extracted[video.Index]; !ok {
			return services.Wrap(services.ErrExternalTool, "extract", "run",
				"video stream could not be extracted", nil)
		}
	}
	return nil
}

// extractionName builds the elementary file name for a stream record.
// Audio files carry their mux delay so the offset survives inspection of
// the staging directory.
func extractionName(title int, record metadata.StreamRecord) string {
	name := fmt.Sprintf("title_%02d_%s_%d", title, record.Kind, record.Index)
	if record.Kind == metadata.KindAudio {
		name += fmt.Sprintf("_%dms", record.DelayMS)
	}
	return name + record.ExtractExtension()
}

// extractionWeights estimates each record's share of the total title
// duration so progress reflects how much material is left, not how many
// streams. Streams without a probed duration fall back to the container
// duration, then to an even share.
func extractionWeights(pctx *Context) ([]float64, float64) {
	byIndex := make(map[int]float64, len(pctx.Probe.Streams))
	for _, stream := range pctx.Probe.Streams {
		byIndex[stream.Index] = stream.DurationSeconds()
	}
	weights := make([]float64, len(pctx.Records))
	total := 0.0
	for i, record := range pctx.Records {
		weight := byIndex[record.Index]
		if weight <= 0 {
			weight = pctx.Probe.DurationSeconds()
		}
		if weight <= 0 {
			weight = 1
		}
		weights[i] = weight
		total += weight
	}
	if total <= 0 {
		total = 1
	}
	return weights, total
}

// extractStream demuxes one stream into destination. With stripCaptions
// set, MPEG-2 video loses its EIA-608 caption user data units so the
// captions live only in their own track.
func extractStream(ctx context.Context, pctx *Context, record metadata.StreamRecord, destination string, stripCaptions bool) error {
	args := []string{
		"-v", "error", "-hide_banner", "-y",
		"-f", "dvdvideo", "-title", strconv.Itoa(pctx.Title),
		"-i", pctx.Source.Path,
		"-map", fmt.Sprintf("0:%d", record.Index),
		"-c", "copy",
	}
	if stripCaptions && record.Kind == metadata.KindVideo && record.Codec == "mpeg2video" {
		args = append(args, "-bsf:v", "filter_units=remove_types=178")
	}
	args = append(args, destination)
	return pctx.Runner.Run(ctx, pctx.Config.Tools.FFmpeg, args, nil)
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
