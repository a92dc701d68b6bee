// Package ffprobe wraps the probe tool. It decodes the JSON document the
// pipeline consumes (streams, format, chapters) and keeps the raw payload
// for the per-title debugging artifact.
package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"remuxkit/internal/command"
)

// Result represents the parsed output from a probe inspection.
type Result struct {
	Streams  []Stream  `json:"streams"`
	Format   Format    `json:"format"`
	Chapters []Chapter `json:"chapters"`
	raw      []byte
}

// Disposition carries the stream disposition flags the pipeline reads.
type Disposition struct {
	Default int `json:"default"`
	Forced  int `json:"forced"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index              int               `json:"index"`
	CodecName          string            `json:"codec_name"`
	CodecType          string            `json:"codec_type"`
	Width              int               `json:"width"`
	Height             int               `json:"height"`
	DisplayAspectRatio string            `json:"display_aspect_ratio"`
	FieldOrder         string            `json:"field_order"`
	SampleRate         string            `json:"sample_rate"`
	Channels           int               `json:"channels"`
	ChannelLayout      string            `json:"channel_layout"`
	StartTime          string            `json:"start_time"`
	StartPTS           *int64            `json:"start_pts"`
	TimeBase           string            `json:"time_base"`
	Duration           string            `json:"duration"`
	Tags               map[string]string `json:"tags"`
	Disposition        Disposition       `json:"disposition"`
}

// Format captures container-level metadata.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
	FormatName string `json:"format_name"`
}

// Chapter is a container chapter marker as reported by the probe tool.
type Chapter struct {
	ID        int64             `json:"id"`
	TimeBase  string            `json:"time_base"`
	Start     int64             `json:"start"`
	End       int64             `json:"end"`
	StartTime string            `json:"start_time"`
	EndTime   string            `json:"end_time"`
	Tags      map[string]string `json:"tags"`
}

// Prober executes probe invocations through the shared tool runner.
type Prober struct {
	binary string
	runner *command.Runner
}

// New constructs a Prober for the given binary.
func New(binary string, runner *command.Runner) (*Prober, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("ffprobe binary required")
	}
	if runner == nil {
		return nil, errors.New("command runner required")
	}
	return &Prober{binary: binary, runner: runner}, nil
}

// Inspect probes a plain media file.
func (p *Prober) Inspect(ctx context.Context, path string) (Result, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}
	return p.run(ctx, []string{
		"-v", "error", "-hide_banner",
		"-show_format", "-show_streams", "-show_chapters",
		"-of", "json", "--", path,
	})
}

// InspectTitle probes one DVD title of a disc source (ISO image or a
// directory containing VIDEO_TS).
func (p *Prober) InspectTitle(ctx context.Context, source string, title int) (Result, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return Result{}, errors.New("ffprobe inspect: empty source")
	}
	if title <= 0 {
		return Result{}, fmt.Errorf("ffprobe inspect: invalid title %d", title)
	}
	return p.run(ctx, []string{
		"-v", "error", "-hide_banner",
		"-f", "dvdvideo", "-title", strconv.Itoa(title),
		"-show_format", "-show_streams", "-show_chapters",
		"-of", "json", "-i", source,
	})
}

func (p *Prober) run(ctx context.Context, args []string) (Result, error) {
	output, err := p.runner.Output(ctx, p.binary, args)
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w", err)
	}
	return Parse(output)
}

// Parse decodes a probe JSON document.
func Parse(payload []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	result.raw = append([]byte(nil), payload...)
	return result, nil
}

// RawJSON returns the raw probe payload.
func (r Result) RawJSON() []byte {
	return append([]byte(nil), r.raw...)
}

// VideoStream returns the first video stream, or nil.
func (r Result) VideoStream() *Stream {
	for i := range r.Streams {
		if r.Streams[i].IsVideo() {
			return &r.Streams[i]
		}
	}
	return nil
}

// CountKind returns the number of streams of the given codec type.
func (r Result) CountKind(codecType string) int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, codecType) {
			count++
		}
	}
	return count
}

// DurationSeconds returns the container duration in seconds, or 0.
func (r Result) DurationSeconds() float64 {
	return parseFloat(r.Format.Duration)
}

// IsVideo reports whether the stream is a video stream.
func (s Stream) IsVideo() bool { return strings.EqualFold(s.CodecType, "video") }

// IsAudio reports whether the stream is an audio stream.
func (s Stream) IsAudio() bool { return strings.EqualFold(s.CodecType, "audio") }

// IsSubtitle reports whether the stream is a subtitle stream.
func (s Stream) IsSubtitle() bool { return strings.EqualFold(s.CodecType, "subtitle") }

// StartSeconds returns the stream start time in seconds and whether the
// probe reported one.
func (s Stream) StartSeconds() (float64, bool) {
	cleaned := strings.TrimSpace(s.StartTime)
	if cleaned == "" || cleaned == "N/A" {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

// DurationSeconds returns the stream duration in seconds, or 0.
func (s Stream) DurationSeconds() float64 {
	return parseFloat(s.Duration)
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" || cleaned == "N/A" {
		return 0
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return parsed
}
