// Package timing merges stream timestamps from up to three independent
// sources (navigation data, presentation timestamps, probe start times)
// into one consistent per-stream delay set. The video stream is the zero
// reference; when another stream's native timestamp precedes the video's,
// the video delay is raised instead of trimming anything, so every delay
// is non-negative and no sample data is ever cut.
package timing

import (
	"fmt"
	"math"

	"remuxkit/internal/ifo"
	"remuxkit/internal/media/ffprobe"
)

// RawTimestamp is a stream timestamp before unit conversion.
type RawTimestamp struct {
	Value    float64 `json:"value"`
	TimeBase string  `json:"time_base"`
}

// Milliseconds converts the raw value using its time base.
func (r RawTimestamp) Milliseconds() float64 {
	num, den := ParseTimebase(r.TimeBase)
	return r.Value * 1000 * float64(num) / float64(den)
}

// Result is the reconciler output consumed by the metadata merger and the
// finalize step's sync flags.
type Result struct {
	Method       Method               `json:"method"`
	Raw          map[int]RawTimestamp `json:"raw,omitempty"`
	DelaysMS     map[int]int          `json:"delays_ms"`
	VideoDelayMS int                  `json:"video_delay_ms"`
	Warnings     []string             `json:"warnings,omitempty"`
}

// DelayFor returns the adjusted delay for a stream index, zero when the
// stream was not part of the reconciliation.
func (r Result) DelayFor(index int) int {
	if r.DelaysMS == nil {
		return 0
	}
	return r.DelaysMS[index]
}

// Source produces raw timestamps for one timing method.
type Source interface {
	Method() Method
	// Collect reports raw per-stream timestamps keyed by probe stream
	// index. ok is false when the source cannot produce data for every
	// stream, which skips it in the fallback chain.
	Collect(streams []ffprobe.Stream) (raw map[int]RawTimestamp, ok bool)
}

// Reconcile runs the fallback chain over the provided sources and computes
// the per-stream delay set. A fully failed reconciliation is non-fatal: the
// zero-delay default is returned with a warning recorded.
func Reconcile(streams []ffprobe.Stream, pref Method, sources ...Source) Result {
	byMethod := make(map[Method]Source, len(sources))
	for _, source := range sources {
		if source != nil {
			byMethod[source.Method()] = source
		}
	}

	for _, method := range methodOrder(pref) {
		source, ok := byMethod[method]
		if !ok {
			continue
		}
		raw, ok := source.Collect(streams)
		if !ok {
			continue
		}
		return computeDelays(streams, method, raw)
	}

	result := Result{
		Method:   MethodNone,
		DelaysMS: make(map[int]int, len(streams)),
		Warnings: []string{"no timing source produced data for all streams; using zero delays"},
	}
	for _, stream := range streams {
		result.DelaysMS[stream.Index] = 0
	}
	return result
}

func computeDelays(streams []ffprobe.Stream, method Method, raw map[int]RawTimestamp) Result {
	result := Result{
		Method:   method,
		Raw:      raw,
		DelaysMS: make(map[int]int, len(streams)),
	}

	videoIndex := -1
	for _, stream := range streams {
		if stream.IsVideo() {
			videoIndex = stream.Index
			break
		}
	}
	if videoIndex < 0 {
		// No video reference: everything is relative to the earliest stream.
		result.Warnings = append(result.Warnings, "no video stream; delays relative to earliest timestamp")
	}

	ms := make(map[int]float64, len(streams))
	minMS := math.Inf(1)
	for _, stream := range streams {
		value := raw[stream.Index].Milliseconds()
		ms[stream.Index] = value
		if value < minMS {
			minMS = value
		}
	}

	videoMS := minMS
	if videoIndex >= 0 {
		videoMS = ms[videoIndex]
	}

	if minMS < videoMS {
		// Some stream starts before the video: shift the effective zero to
		// the earliest timestamp and delay the video instead.
		result.VideoDelayMS = roundMS(videoMS - minMS)
		for index, value := range ms {
			result.DelaysMS[index] = clampNonNegative(roundMS(value - minMS))
		}
	} else {
		result.VideoDelayMS = 0
		for index, value := range ms {
			result.DelaysMS[index] = clampNonNegative(roundMS(value - videoMS))
		}
	}
	return result
}

func roundMS(v float64) int {
	return int(math.Round(v))
}

func clampNonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// NavigationSource adapts per-title navigation timestamps. The Nth probed
// stream of each kind is matched to the Nth navigation track of that kind;
// this positional mapping is a heuristic that can mismatch on multi-angle
// titles and is kept deliberately.
func NavigationSource(nav ifo.NavTimestamps) Source {
	return navigationSource{nav: nav}
}

type navigationSource struct {
	nav ifo.NavTimestamps
}

func (navigationSource) Method() Method { return MethodNavigation }

func (s navigationSource) Collect(streams []ffprobe.Stream) (map[int]RawTimestamp, bool) {
	raw := make(map[int]RawTimestamp, len(streams))
	timeBase := fmt.Sprintf("1/%d", ifo.NavClockRate)
	audioSeen, subSeen := 0, 0
	for _, stream := range streams {
		switch {
		case stream.IsVideo():
			if s.nav.Video == nil {
				return nil, false
			}
			raw[stream.Index] = RawTimestamp{Value: float64(*s.nav.Video), TimeBase: timeBase}
		case stream.IsAudio():
			if audioSeen >= len(s.nav.Audio) {
				return nil, false
			}
			raw[stream.Index] = RawTimestamp{Value: float64(s.nav.Audio[audioSeen]), TimeBase: timeBase}
			audioSeen++
		case stream.IsSubtitle():
			if subSeen >= len(s.nav.Subpicture) {
				return nil, false
			}
			raw[stream.Index] = RawTimestamp{Value: float64(s.nav.Subpicture[subSeen]), TimeBase: timeBase}
			subSeen++
		default:
			// Data streams are outside the delay model.
			raw[stream.Index] = RawTimestamp{Value: 0, TimeBase: "1/1"}
		}
	}
	return raw, len(raw) == len(streams)
}

// PresentationSource reads the probe's start_pts/time_base pairs.
func PresentationSource() Source { return presentationSource{} }

type presentationSource struct{}

func (presentationSource) Method() Method { return MethodPresentation }

func (presentationSource) Collect(streams []ffprobe.Stream) (map[int]RawTimestamp, bool) {
	raw := make(map[int]RawTimestamp, len(streams))
	for _, stream := range streams {
		if stream.StartPTS == nil {
			return nil, false
		}
		raw[stream.Index] = RawTimestamp{Value: float64(*stream.StartPTS), TimeBase: stream.TimeBase}
	}
	return raw, true
}

// ProbeStartSource reads the probe's start_time values in seconds.
func ProbeStartSource() Source { return probeStartSource{} }

type probeStartSource struct{}

func (probeStartSource) Method() Method { return MethodProbeStart }

func (probeStartSource) Collect(streams []ffprobe.Stream) (map[int]RawTimestamp, bool) {
	raw := make(map[int]RawTimestamp, len(streams))
	for _, stream := range streams {
		seconds, ok := stream.StartSeconds()
		if !ok {
			return nil, false
		}
		raw[stream.Index] = RawTimestamp{Value: seconds, TimeBase: "1/1"}
	}
	return raw, true
}
