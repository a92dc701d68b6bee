// Package metadata builds the canonical per-title stream records consumed
// by extraction and muxing: probe-derived stream data enriched with
// IFO-derived descriptive metadata and the reconciled delay set.
package metadata

import (
	"strings"

	"remuxkit/internal/ifo"
	"remuxkit/internal/timing"
)

// Kind is the media kind of a stream record.
type Kind string

const (
	KindVideo    Kind = "video"
	KindAudio    Kind = "audio"
	KindSubtitle Kind = "subtitle"
)

// kindPriority orders streams for extraction and muxing: video first,
// then audio, then subtitles, index ascending within each kind.
func kindPriority(kind Kind) int {
	switch kind {
	case KindVideo:
		return 0
	case KindAudio:
		return 1
	case KindSubtitle:
		return 2
	default:
		return 3
	}
}

// StreamRecord describes one elementary stream. Built once by Merge and
// treated as immutable input by extraction and muxing.
type StreamRecord struct {
	Index          int    `json:"index"`
	Kind           Kind   `json:"kind"`
	Codec          string `json:"codec"`
	DelayMS        int    `json:"delay_ms"`
	Name           string `json:"name,omitempty"`
	Language       string `json:"language"`
	Forced         bool   `json:"forced,omitempty"`
	Commentary     bool   `json:"commentary,omitempty"`
	ClosedCaptions bool   `json:"closed_captions,omitempty"`
	Channels       int    `json:"channels,omitempty"`
	ChannelLayout  string `json:"channel_layout,omitempty"`

	// Video-only fields.
	FieldOrder  string   `json:"field_order,omitempty"`
	AspectRatio string   `json:"aspect_ratio,omitempty"`
	Width       int      `json:"width,omitempty"`
	Height      int      `json:"height,omitempty"`
	Palette     []string `json:"palette,omitempty"` // #rrggbb entries
}

// ExtractExtension selects the elementary file extension for the record's
// codec: .m2v for MPEG-2 video, .264 for H.264, .sup for bitmap subtitle
// formats, .srt for text subtitles, and a matching raw extension or a
// generic container otherwise.
func (r StreamRecord) ExtractExtension() string {
	codec := strings.ToLower(strings.TrimSpace(r.Codec))
	switch r.Kind {
	case KindVideo:
		switch codec {
		case "mpeg2video":
			return ".m2v"
		case "h264":
			return ".264"
		default:
			return ".mkv"
		}
	case KindSubtitle:
		switch codec {
		case "dvd_subtitle", "dvdsub", "hdmv_pgs_subtitle", "pgssub", "xsub":
			return ".sup"
		default:
			return ".srt"
		}
	case KindAudio:
		switch codec {
		case "ac3":
			return ".ac3"
		case "eac3":
			return ".eac3"
		case "dts":
			return ".dts"
		case "mp2":
			return ".mp2"
		case "mp3":
			return ".mp3"
		case "aac":
			return ".aac"
		default:
			return ".mka"
		}
	default:
		return ".bin"
	}
}

// IsInterlaced reports whether the record carries an interlaced field
// order flag.
func (r StreamRecord) IsInterlaced() bool {
	switch strings.ToLower(strings.TrimSpace(r.FieldOrder)) {
	case "tt", "bb", "tb", "bt":
		return true
	default:
		return false
	}
}

// TelecineAnalysis summarizes the optional telecine detection outcome for
// the metadata artifact.
type TelecineAnalysis struct {
	Classification string         `json:"classification"` // "progressive" or "interlaced"
	ProgressivePct float64        `json:"progressive_pct"`
	FrameTallies   map[string]int `json:"frame_tallies,omitempty"`
}

// Artifact is the per-title debugging record persisted next to the
// intermediate files. It round-trips the stream records, the timing
// analysis, and the telecine analysis when present.
type Artifact struct {
	Source      string            `json:"source"`
	TitleNumber int               `json:"title_number"`
	Streams     []StreamRecord    `json:"streams"`
	Timing      timing.Result     `json:"timing"`
	Telecine    *TelecineAnalysis `json:"telecine,omitempty"`
}

// paletteHex renders an IFO palette for the artifact.
func paletteHex(palette []ifo.RGB) []string {
	if len(palette) == 0 {
		return nil
	}
	out := make([]string, len(palette))
	for i, entry := range palette {
		out[i] = entry.Hex()
	}
	return out
}
