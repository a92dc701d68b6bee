package telecine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"remuxkit/internal/command"
)

// multiFramePattern matches the idet filter's summary line, e.g.
// [Parsed_idet_0 @ 0x...] Multi frame detection: TFF: 12 BFF: 3 Progressive: 2145 Undetermined: 40
var multiFramePattern = regexp.MustCompile(`Multi frame detection:\s*TFF:\s*(\d+)\s*BFF:\s*(\d+)\s*Progressive:\s*(\d+)\s*Undetermined:\s*(\d+)`)

// Detector samples a video stream through ffmpeg's idet filter.
type Detector struct {
	binary        string
	runner        *command.Runner
	sampleSeconds int
	thresholdPct  float64
}

// NewDetector constructs a Detector. sampleSeconds bounds how much of the
// title is decoded; thresholdPct is the progressive share above which the
// content counts as progressive.
func NewDetector(binary string, runner *command.Runner, sampleSeconds int, thresholdPct float64) (*Detector, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	if runner == nil {
		return nil, errors.New("command runner required")
	}
	if sampleSeconds <= 0 {
		return nil, fmt.Errorf("telecine: invalid sample window %d", sampleSeconds)
	}
	return &Detector{
		binary:        binary,
		runner:        runner,
		sampleSeconds: sampleSeconds,
		thresholdPct:  thresholdPct,
	}, nil
}

// Analyze decides the field order treatment for one title. fieldOrder is
// the probe-reported flag of the video stream. Returns nil when the mode
// or the source gives nothing to decide: detection disabled, or auto mode
// on content the container does not flag as interlaced.
func (d *Detector) Analyze(ctx context.Context, mode Mode, source string, title int, fieldOrder string) (*Decision, error) {
	switch mode {
	case ModeDisabled:
		return nil, nil
	case ModeProgressive:
		return &Decision{Classification: Progressive}, nil
	case ModeInterlaced:
		return &Decision{Classification: Interlaced}, nil
	}
	if !interlacedFlag(fieldOrder) {
		return nil, nil
	}
	tally, err := d.Sample(ctx, source, title)
	if err != nil {
		return nil, err
	}
	return &Decision{
		Classification: Classify(tally, d.thresholdPct),
		Tally:          tally,
		Sampled:        true,
	}, nil
}

// Sample decodes up to the configured window of the title and returns the
// idet multi-frame tally.
func (d *Detector) Sample(ctx context.Context, source string, title int) (Tally, error) {
	args := make([]string, 0, 16)
	args = append(args, "-hide_banner", "-nostats", "-v", "info")
	if title > 0 {
		args = append(args, "-f", "dvdvideo", "-title", strconv.Itoa(title))
	}
	args = append(args,
		"-i", source,
		"-t", strconv.Itoa(d.sampleSeconds),
		"-map", "0:v:0",
		"-vf", "idet",
		"-an", "-sn",
		"-f", "null", "-",
	)
	var tally Tally
	found := false
	err := d.runner.Run(ctx, d.binary, args, func(line string) {
		if parsed, ok := parseTallyLine(line); ok {
			// The filter prints one summary per stream teardown; the
			// last one wins.
			tally = parsed
			found = true
		}
	})
	if err != nil {
		return Tally{}, fmt.Errorf("telecine sample: %w", err)
	}
	if !found {
		return Tally{}, errors.New("telecine sample: no idet summary in output")
	}
	return tally, nil
}

func parseTallyLine(line string) (Tally, bool) {
	match := multiFramePattern.FindStringSubmatch(line)
	if match == nil {
		return Tally{}, false
	}
	values := make([]int, 4)
	for i := 0; i < 4; i++ {
		parsed, err := strconv.Atoi(match[i+1])
		if err != nil {
			return Tally{}, false
		}
		values[i] = parsed
	}
	return Tally{TFF: values[0], BFF: values[1], Progressive: values[2], Undetermined: values[3]}, true
}

func interlacedFlag(fieldOrder string) bool {
	switch strings.ToLower(strings.TrimSpace(fieldOrder)) {
	case "tt", "bb", "tb", "bt":
		return true
	default:
		return false
	}
}
