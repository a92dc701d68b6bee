package metadata

import (
	"fmt"
	"sort"
	"strings"

	"remuxkit/internal/ifo"
	"remuxkit/internal/language"
	"remuxkit/internal/media/ffprobe"
	"remuxkit/internal/timing"
)

// Options controls how Merge decorates the probe streams.
type Options struct {
	// TrackNames enables descriptive track name synthesis.
	TrackNames bool
	// FallbackLanguage is applied to the first audio stream when neither
	// the probe nor the IFO yields a definite language.
	FallbackLanguage string
}

// Merge combines probe streams, IFO track descriptors, and reconciled
// delays into ordered stream records. IFO audio and subtitle records are
// matched to probe streams positionally per kind; probe streams beyond
// the IFO track counts keep probe-only metadata.
func Merge(streams []ffprobe.Stream, nav ifo.TitleInfo, tr timing.Result, opts Options) []StreamRecord {
	records := make([]StreamRecord, 0, len(streams))
	audioSeen := 0
	subtitleSeen := 0
	for _, stream := range streams {
		kind := classify(stream.CodecType)
		if kind == "" {
			continue
		}
		record := StreamRecord{
			Index:    stream.Index,
			Kind:     kind,
			Codec:    strings.ToLower(strings.TrimSpace(stream.CodecName)),
			DelayMS:  tr.DelayFor(stream.Index),
			Language: language.Normalize(language.ExtractFromTags(stream.Tags)),
		}
		switch kind {
		case KindVideo:
			record.FieldOrder = stream.FieldOrder
			record.Width = stream.Width
			record.Height = stream.Height
			record.AspectRatio = stream.DisplayAspectRatio
			if nav.AspectRatio != "" {
				record.AspectRatio = nav.AspectRatio
			}
			record.Palette = paletteHex(nav.Palette)
		case KindAudio:
			record.Channels = stream.Channels
			record.ChannelLayout = stream.ChannelLayout
			if audioSeen < len(nav.Audio) {
				applyAudioTrack(&record, nav.Audio[audioSeen], audioSeen == 0, opts)
			} else if audioSeen == 0 && !language.IsDefinite(record.Language) {
				record.Language = normalizeFallback(opts.FallbackLanguage)
			}
			if stream.Disposition.Forced > 0 {
				record.Forced = true
			}
			audioSeen++
		case KindSubtitle:
			if subtitleSeen < len(nav.Subtitles) {
				applySubtitleTrack(&record, nav.Subtitles[subtitleSeen])
			}
			if stream.Disposition.Forced > 0 {
				record.Forced = true
			}
			subtitleSeen++
		}
		if record.Language == "" {
			record.Language = language.Undetermined
		}
		if opts.TrackNames {
			record.Name = trackName(record)
		}
		records = append(records, record)
	}
	sort.SliceStable(records, func(i, j int) bool {
		if kindPriority(records[i].Kind) != kindPriority(records[j].Kind) {
			return kindPriority(records[i].Kind) < kindPriority(records[j].Kind)
		}
		return records[i].Index < records[j].Index
	})
	return records
}

func classify(codecType string) Kind {
	switch strings.ToLower(strings.TrimSpace(codecType)) {
	case "video":
		return KindVideo
	case "audio":
		return KindAudio
	case "subtitle":
		return KindSubtitle
	default:
		return ""
	}
}

// applyAudioTrack layers IFO audio metadata over the probe record. The IFO
// language wins only when definite; otherwise the probe language stands,
// and the first audio stream falls back to the configured language when
// both sources are indeterminate.
func applyAudioTrack(record *StreamRecord, track ifo.AudioTrack, first bool, opts Options) {
	if lang := language.Normalize(track.Language); language.IsDefinite(lang) {
		record.Language = lang
	} else if first && !language.IsDefinite(record.Language) {
		record.Language = normalizeFallback(opts.FallbackLanguage)
	}
	if record.Channels == 0 && track.Channels > 0 {
		record.Channels = track.Channels
	}
	record.Commentary = track.Commentary()
}

func applySubtitleTrack(record *StreamRecord, track ifo.SubtitleTrack) {
	if lang := language.Normalize(track.Language); language.IsDefinite(lang) {
		record.Language = lang
	}
	record.Forced = record.Forced || track.Forced()
	record.ClosedCaptions = track.ClosedCaptions()
	record.Commentary = track.Commentary()
}

func normalizeFallback(fallback string) string {
	if lang := language.Normalize(fallback); language.IsDefinite(lang) {
		return lang
	}
	return language.Undetermined
}

// trackName synthesizes a descriptive track name. Audio names combine the
// channel layout label with a codec abbreviation; subtitle names use the
// language display name with bracketed qualifiers.
func trackName(record StreamRecord) string {
	switch record.Kind {
	case KindAudio:
		parts := make([]string, 0, 2)
		if layout := channelLayoutLabel(record.Channels, record.ChannelLayout); layout != "" {
			parts = append(parts, layout)
		}
		if abbrev := codecAbbreviation(record.Codec); abbrev != "" {
			parts = append(parts, abbrev)
		}
		name := strings.Join(parts, " ")
		if record.Commentary {
			if name == "" {
				name = "Director's Commentary"
			} else {
				name += " (Director's Commentary)"
			}
		}
		return name
	case KindSubtitle:
		name := language.DisplayName(record.Language)
		if record.Forced {
			name += " [Forced]"
		}
		if record.ClosedCaptions {
			name += " [CC]"
		}
		if record.Commentary {
			name += " [Commentary]"
		}
		return name
	default:
		return ""
	}
}

func channelLayoutLabel(channels int, layout string) string {
	normalized := strings.ToLower(layout)
	if idx := strings.IndexByte(normalized, '('); idx >= 0 {
		normalized = normalized[:idx]
	}
	switch normalized {
	case "mono":
		return "Mono"
	case "stereo":
		return "Stereo"
	case "5.1":
		return "5.1 Surround"
	case "6.1":
		return "6.1 Surround"
	case "7.1":
		return "7.1 Surround"
	}
	switch channels {
	case 0:
		return ""
	case 1:
		return "Mono"
	case 2:
		return "Stereo"
	case 6:
		return "5.1 Surround"
	case 7:
		return "6.1 Surround"
	case 8:
		return "7.1 Surround"
	default:
		return fmt.Sprintf("%d-channel", channels)
	}
}

func codecAbbreviation(codec string) string {
	switch codec {
	case "ac3":
		return "AC3"
	case "eac3":
		return "E-AC3"
	case "dts":
		return "DTS"
	case "mp2":
		return "MP2"
	case "mp3":
		return "MP3"
	case "aac":
		return "AAC"
	case "pcm_dvd", "pcm_s16le", "pcm_s24le":
		return "PCM"
	case "":
		return ""
	default:
		return strings.ToUpper(codec)
	}
}
