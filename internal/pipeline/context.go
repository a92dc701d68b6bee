// Package pipeline turns one analyzed DVD title into a finished Matroska
// file through a fixed sequence of steps. Each step reads the shared
// Context, does its work through external tools, and records what the
// following steps need.
package pipeline

import (
	"log/slog"

	"remuxkit/internal/chapters"
	"remuxkit/internal/command"
	"remuxkit/internal/config"
	"remuxkit/internal/disc"
	"remuxkit/internal/ifo"
	"remuxkit/internal/media/ffprobe"
	"remuxkit/internal/metadata"
	"remuxkit/internal/telecine"
	"remuxkit/internal/timing"
)

// Context is the shared state of one title run. Inputs are set by the
// orchestrator before the first step; every other field is owned by
// exactly one step and read-only afterwards.
type Context struct {
	// Inputs, set by the orchestrator.
	Source   disc.Source
	Title    int
	Probe    ffprobe.Result
	WorkDir  string // per-title staging directory, removed when the run ends
	OutDir   string // final destination directory
	BaseName string // output file name without extension
	Config   *config.Config
	Logger   *slog.Logger
	Runner   *command.Runner
	// Progress receives coarse step progress for queue reporting. May be nil.
	Progress func(stage, message string)

	// Owned by the navigation step.
	Nav    ifo.TitleInfo
	NavPTS ifo.NavTimestamps

	// Owned by the metadata step.
	Timing  timing.Result
	Records []metadata.StreamRecord

	// Owned by the telecine step. Nil when detection was skipped.
	Telecine *telecine.Decision

	// Owned by the extract step: stream index to elementary file path.
	// Streams that failed extraction or produced empty files are absent.
	Extracted map[int]string

	// Owned by the captions step. Empty when no captions were extracted.
	CaptionsPath string

	// Owned by the chapters step.
	Chapters     []chapters.Chapter
	ChaptersPath string

	// Owned by the finalize step.
	OutputPath string

	// Diagnostics collects non-fatal findings across all steps.
	Diagnostics *Diagnostics
}

func (c *Context) progress(stage, message string) {
	if c.Progress != nil {
		c.Progress(stage, message)
	}
}

// record returns the stream record for a probe index, or nil.
func (c *Context) record(index int) *metadata.StreamRecord {
	for i := range c.Records {
		if c.Records[i].Index == index {
			return &c.Records[i]
		}
	}
	return nil
}
