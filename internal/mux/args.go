// Package mux assembles and runs the final mkvmerge invocation: one input
// per elementary stream, per-track flags derived from the stream records,
// and the repaired chapter file.
package mux

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"remuxkit/internal/metadata"
)

// Input is one elementary stream file destined for the output container.
// Elementary inputs carry exactly one track, so every per-track option
// addresses track id 0 of its own input.
type Input struct {
	Path   string
	Record metadata.StreamRecord
	// Default marks the first track of each kind.
	Default bool
	// FieldOrder is the resolved video field order ("progressive", "tt",
	// "bb"), empty when no flag should be written.
	FieldOrder string
}

// Job describes one complete mux.
type Job struct {
	Output       string
	Title        string
	Inputs       []Input
	ChaptersPath string
}

// BuildArgs renders the full mkvmerge argument list for a job. Sync delays
// are emitted only when positive; content is shifted forward, never cut.
func BuildArgs(job Job) []string {
	args := []string{"--output", job.Output}
	if job.Title != "" {
		args = append(args, "--title", job.Title)
	}
	if job.ChaptersPath != "" {
		args = append(args, "--chapters", job.ChaptersPath)
	}
	for _, input := range job.Inputs {
		args = append(args, trackArgs(input)...)
		args = append(args, input.Path)
	}
	return args
}

func trackArgs(input Input) []string {
	record := input.Record
	args := make([]string, 0, 16)
	lang := record.Language
	if lang == "" {
		lang = "und"
	}
	args = append(args, "--language", "0:"+lang)
	if record.Name != "" {
		args = append(args, "--track-name", "0:"+record.Name)
	}
	args = append(args, "--default-track-flag", "0:"+yesNo(input.Default))
	if record.Forced {
		args = append(args, "--forced-display-flag", "0:yes")
	}
	if record.DelayMS > 0 {
		args = append(args, "--sync", "0:"+strconv.Itoa(record.DelayMS))
	}
	if record.Kind == metadata.KindVideo {
		if code, ok := fieldOrderCode(input.FieldOrder); ok {
			args = append(args, "--field-order", "0:"+code)
		}
		if dims, ok := displayDimensions(record); ok {
			args = append(args, "--display-dimensions", "0:"+dims)
		}
	}
	return args
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

// fieldOrderCode maps a field order name to the numeric code mkvmerge
// expects: 0 progressive, 1 top field first, 6 bottom field first.
func fieldOrderCode(fieldOrder string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(fieldOrder)) {
	case "progressive":
		return "0", true
	case "tt", "tb", "tff":
		return "1", true
	case "bb", "bt", "bff":
		return "6", true
	default:
		return "", false
	}
}

// displayDimensions derives the anamorphic display size from the stored
// aspect ratio and the coded height.
func displayDimensions(record metadata.StreamRecord) (string, bool) {
	if record.Height <= 0 || record.AspectRatio == "" {
		return "", false
	}
	parts := strings.SplitN(record.AspectRatio, ":", 2)
	if len(parts) != 2 {
		return "", false
	}
	num, errN := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	den, errD := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errN != nil || errD != nil || num <= 0 || den <= 0 {
		return "", false
	}
	width := int(math.Round(float64(record.Height) * num / den))
	if width <= 0 {
		return "", false
	}
	return fmt.Sprintf("%dx%d", width, record.Height), true
}
