// Package preflight verifies that the external tools and directories the
// pipeline depends on are present before any disc is touched.
package preflight

import (
	"context"

	"remuxkit/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	// Optional checks report as informational when they fail.
	Optional bool
	Detail   string
}

// RunAll executes every applicable check for the given config. Checks for
// optional features run only when the feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckBinary("ffprobe", cfg.Tools.FFprobe, false),
		CheckBinary("ffmpeg", cfg.Tools.FFmpeg, false),
		CheckBinary("mkvmerge", cfg.Tools.MKVMerge, false),
		CheckBinary("mkvextract", cfg.Tools.MKVExtract, true),
	}
	if cfg.Pipeline.ExtractCaptions {
		results = append(results, CheckBinary("ccextractor", cfg.Tools.CCExtractor, true))
	}
	if cfg.Workflow.EjectOnCompletion {
		results = append(results, CheckBinary("eject", "eject", true))
	}
	return results
}

// Failed returns only the failed required checks.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed && !result.Optional {
			failed = append(failed, result)
		}
	}
	return failed
}
