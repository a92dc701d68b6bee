// Package telecine classifies DVD video as progressive or interlaced by
// sampling the stream through ffmpeg's idet filter. Standard-definition
// discs flag telecined film content as interlaced in the container, and
// the tally decides whether the field order flag should survive the remux.
package telecine

import (
	"fmt"
	"strings"
)

// Mode selects how the field order of the output is decided.
type Mode string

const (
	// ModeDisabled passes the source field order through untouched.
	ModeDisabled Mode = "disabled"
	// ModeProgressive forces a progressive classification without sampling.
	ModeProgressive Mode = "progressive"
	// ModeInterlaced forces an interlaced classification without sampling.
	ModeInterlaced Mode = "interlaced"
	// ModeAuto samples flagged content and classifies it by frame tally.
	ModeAuto Mode = "auto"
)

// ParseMode validates a configured mode string.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeDisabled:
		return ModeDisabled, nil
	case ModeProgressive:
		return ModeProgressive, nil
	case ModeInterlaced:
		return ModeInterlaced, nil
	case ModeAuto, Mode(""):
		return ModeAuto, nil
	default:
		return ModeAuto, fmt.Errorf("telecine: unknown mode %q", value)
	}
}

// Classification is the detection outcome.
type Classification string

const (
	Progressive Classification = "progressive"
	Interlaced  Classification = "interlaced"
)

// Tally is the multi-frame detection count reported by the idet filter.
type Tally struct {
	TFF          int
	BFF          int
	Progressive  int
	Undetermined int
}

// Total returns the number of classified frames.
func (t Tally) Total() int {
	return t.TFF + t.BFF + t.Progressive + t.Undetermined
}

// ProgressivePct returns the share of progressive frames in percent.
// Undetermined frames count toward the total but not the share.
func (t Tally) ProgressivePct() float64 {
	total := t.Total()
	if total == 0 {
		return 0
	}
	return float64(t.Progressive) / float64(total) * 100
}

// Classify applies the progressive-share threshold to a tally. An empty
// tally classifies as interlaced so a failed sample never strips a field
// order flag the source carried.
func Classify(tally Tally, thresholdPct float64) Classification {
	if tally.Total() == 0 {
		return Interlaced
	}
	if tally.ProgressivePct() >= thresholdPct {
		return Progressive
	}
	return Interlaced
}

// Decision is the outcome of an analysis run. Sampled reports whether the
// classification came from an idet tally rather than a forced mode.
type Decision struct {
	Classification Classification
	Tally          Tally
	Sampled        bool
}
