package metadata

import (
	"path/filepath"
	"testing"

	"remuxkit/internal/ifo"
	"remuxkit/internal/media/ffprobe"
	"remuxkit/internal/timing"
)

func probeStreams() []ffprobe.Stream {
	return []ffprobe.Stream{
		{
			Index:              0,
			CodecType:          "video",
			CodecName:          "mpeg2video",
			Width:              720,
			Height:             480,
			DisplayAspectRatio: "4:3",
			FieldOrder:         "tt",
		},
		{
			Index:         1,
			CodecType:     "audio",
			CodecName:     "ac3",
			Channels:      6,
			ChannelLayout: "5.1(side)",
		},
		{
			Index:     2,
			CodecType: "audio",
			CodecName: "mp2",
			Channels:  2,
			Tags:      map[string]string{"language": "fre"},
		},
		{
			Index:     3,
			CodecType: "subtitle",
			CodecName: "dvd_subtitle",
		},
	}
}

func TestMergeEnrichesOnlyMatchedStreams(t *testing.T) {
	nav := ifo.TitleInfo{
		AspectRatio: "16:9",
		Audio: []ifo.AudioTrack{
			{CodingMode: "ac3", Channels: 6, Language: "en", Application: 3},
		},
	}
	tr := timing.Result{
		Method:   timing.MethodProbeStart,
		DelaysMS: map[int]int{1: 300},
	}
	records := Merge(probeStreams(), nav, tr, Options{TrackNames: true, FallbackLanguage: "eng"})
	if len(records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(records))
	}

	video := records[0]
	if video.Kind != KindVideo || video.Index != 0 {
		t.Fatalf("expected video first, got %+v", video)
	}
	if video.AspectRatio != "16:9" {
		t.Errorf("expected navigation aspect ratio to win, got %q", video.AspectRatio)
	}
	if !video.IsInterlaced() {
		t.Error("expected tt field order to classify as interlaced")
	}

	audio0 := records[1]
	if audio0.Language != "en" {
		t.Errorf("expected matched audio language en, got %q", audio0.Language)
	}
	if !audio0.Commentary {
		t.Error("expected application code 3 to mark commentary")
	}
	if audio0.DelayMS != 300 {
		t.Errorf("expected 300ms delay, got %d", audio0.DelayMS)
	}
	if audio0.Name != "5.1 Surround AC3 (Director's Commentary)" {
		t.Errorf("unexpected audio name %q", audio0.Name)
	}

	audio1 := records[2]
	if audio1.Language != "fr" {
		t.Errorf("expected probe-only language fr for unmatched audio, got %q", audio1.Language)
	}
	if audio1.Commentary {
		t.Error("unmatched audio must not inherit commentary flag")
	}
	if audio1.Name != "Stereo MP2" {
		t.Errorf("unexpected audio name %q", audio1.Name)
	}

	sub := records[3]
	if sub.Language != "und" {
		t.Errorf("expected undetermined language for unmatched subtitle, got %q", sub.Language)
	}
	if sub.Forced || sub.ClosedCaptions {
		t.Error("unmatched subtitle must carry no navigation flags")
	}
}

func TestMergeFallbackLanguageFirstAudioOnly(t *testing.T) {
	records := Merge(probeStreams(), ifo.TitleInfo{}, timing.Result{}, Options{FallbackLanguage: "eng"})
	if records[1].Language != "en" {
		t.Errorf("expected fallback language on first audio, got %q", records[1].Language)
	}
	if records[2].Language != "fr" {
		t.Errorf("expected probe language on second audio, got %q", records[2].Language)
	}
	if records[3].Language != "und" {
		t.Errorf("fallback must not apply to subtitles, got %q", records[3].Language)
	}
}

func TestMergeSubtitleFlagsAndName(t *testing.T) {
	nav := ifo.TitleInfo{
		Subtitles: []ifo.SubtitleTrack{{Language: "en", Extension: 9}},
	}
	records := Merge(probeStreams(), nav, timing.Result{}, Options{TrackNames: true})
	sub := records[3]
	if !sub.Forced {
		t.Error("expected extension 9 to mark forced")
	}
	if sub.Name != "English [Forced]" {
		t.Errorf("unexpected subtitle name %q", sub.Name)
	}
}

func TestExtractExtension(t *testing.T) {
	cases := []struct {
		record StreamRecord
		want   string
	}{
		{StreamRecord{Kind: KindVideo, Codec: "mpeg2video"}, ".m2v"},
		{StreamRecord{Kind: KindVideo, Codec: "h264"}, ".264"},
		{StreamRecord{Kind: KindVideo, Codec: "vc1"}, ".mkv"},
		{StreamRecord{Kind: KindAudio, Codec: "ac3"}, ".ac3"},
		{StreamRecord{Kind: KindAudio, Codec: "pcm_dvd"}, ".mka"},
		{StreamRecord{Kind: KindSubtitle, Codec: "dvd_subtitle"}, ".sup"},
		{StreamRecord{Kind: KindSubtitle, Codec: "subrip"}, ".srt"},
	}
	for _, tc := range cases {
		if got := tc.record.ExtractExtension(); got != tc.want {
			t.Errorf("%s/%s: expected %s, got %s", tc.record.Kind, tc.record.Codec, tc.want, got)
		}
	}
}

func TestArtifactRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "title_01.metadata.json")
	artifact := Artifact{
		Source:      "/media/disc.iso",
		TitleNumber: 1,
		Streams: Merge(probeStreams(), ifo.TitleInfo{}, timing.Result{
			Method:   timing.MethodProbeStart,
			DelaysMS: map[int]int{1: 120},
		}, Options{}),
		Timing: timing.Result{
			Method:   timing.MethodProbeStart,
			DelaysMS: map[int]int{1: 120},
			Warnings: []string{"subtitle 3 start unavailable"},
		},
		Telecine: &TelecineAnalysis{
			Classification: "progressive",
			ProgressivePct: 97.5,
			FrameTallies:   map[string]int{"progressive": 2145, "tff": 55},
		},
	}
	if err := WriteArtifact(path, artifact); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	loaded, err := ReadArtifact(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if loaded.TitleNumber != 1 || loaded.Source != artifact.Source {
		t.Fatalf("artifact header mismatch: %+v", loaded)
	}
	if len(loaded.Streams) != len(artifact.Streams) {
		t.Fatalf("expected %d streams, got %d", len(artifact.Streams), len(loaded.Streams))
	}
	if loaded.Streams[1].DelayMS != 120 {
		t.Errorf("expected delay 120 after round trip, got %d", loaded.Streams[1].DelayMS)
	}
	if loaded.Telecine == nil || loaded.Telecine.Classification != "progressive" {
		t.Errorf("telecine analysis lost in round trip: %+v", loaded.Telecine)
	}
}
