package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"remuxkit/internal/command"
	"remuxkit/internal/disc"
	"remuxkit/internal/logging"
	"remuxkit/internal/media/ffprobe"
	"remuxkit/internal/metadata"
)

// toolStub records every tool invocation and fabricates output files so
// the steps under test see successful runs.
type toolStub struct {
	t     *testing.T
	calls [][]string
}

func (s *toolStub) Run(_ context.Context, binary string, args []string, _ func(string)) error {
	s.calls = append(s.calls, append([]string{binary}, args...))
	destination := args[len(args)-1]
	for i, arg := range args {
		if arg == "-o" && i+1 < len(args) {
			destination = args[i+1]
		}
	}
	if err := os.WriteFile(destination, []byte("data"), 0o644); err != nil {
		s.t.Fatalf("write %s: %v", destination, err)
	}
	return nil
}

func hasArg(call []string, want string) bool {
	for _, arg := range call {
		if arg == want {
			return true
		}
	}
	return false
}

func extractTestContext(t *testing.T, stub *toolStub) *Context {
	t.Helper()
	pctx := testContext(t)
	pctx.Source = disc.Source{Path: "/dev/sr0"}
	pctx.Runner = command.NewRunnerWithExecutor(logging.NewNop(), stub)
	pctx.Diagnostics = NewDiagnostics()
	return pctx
}

func TestExtractNamesFilesByKindAndReportsDurationShare(t *testing.T) {
	stub := &toolStub{t: t}
	pctx := extractTestContext(t, stub)
	pctx.Records = []metadata.StreamRecord{
		{Index: 0, Kind: metadata.KindVideo, Codec: "mpeg2video"},
		{Index: 1, Kind: metadata.KindAudio, Codec: "ac3", DelayMS: 300},
		{Index: 2, Kind: metadata.KindSubtitle, Codec: "dvd_subtitle"},
	}
	pctx.Probe = ffprobe.Result{Streams: []ffprobe.Stream{
		{Index: 0, Duration: "120"},
		{Index: 1, Duration: "120"},
		{Index: 2, Duration: "60"},
	}}
	var progress []string
	pctx.Progress = func(stage, message string) {
		if stage == "extract" {
			progress = append(progress, message)
		}
	}

	if err := (extractStep{}).Run(context.Background(), pctx); err != nil {
		t.Fatalf("extract: %v", err)
	}

	want := map[int]string{
		0: "title_01_video_0.m2v",
		1: "title_01_audio_1_300ms.ac3",
		2: "title_01_subtitle_2.sup",
	}
	for index, name := range want {
		if got := filepath.Base(pctx.Extracted[index]); got != name {
			t.Errorf("stream %d: got %q, want %q", index, got, name)
		}
	}

	// 120+120+60 seconds of material: completion advances by duration
	// share, not by stream count.
	wantProgress := []string{"0%", "40%", "80%", "100%"}
	if len(progress) != len(wantProgress) {
		t.Fatalf("progress %v, want %v", progress, wantProgress)
	}
	for i := range wantProgress {
		if progress[i] != wantProgress[i] {
			t.Fatalf("progress %v, want %v", progress, wantProgress)
		}
	}
}

func TestExtractStripsCaptionUnitsFromVideoOnly(t *testing.T) {
	stub := &toolStub{t: t}
	pctx := extractTestContext(t, stub)
	pctx.Config.Pipeline.StripVideoCaptions = true
	pctx.Records = []metadata.StreamRecord{
		{Index: 0, Kind: metadata.KindVideo, Codec: "mpeg2video"},
		{Index: 1, Kind: metadata.KindAudio, Codec: "ac3"},
	}

	if err := (extractStep{}).Run(context.Background(), pctx); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(stub.calls) != 2 {
		t.Fatalf("expected 2 invocations, got %v", stub.calls)
	}
	if !hasArg(stub.calls[0], "-bsf:v") {
		t.Errorf("video extraction must filter caption units: %v", stub.calls[0])
	}
	if hasArg(stub.calls[1], "-bsf:v") {
		t.Errorf("audio extraction must not carry a video filter: %v", stub.calls[1])
	}
}

func TestCaptionsReadUnstrippedVideoCopy(t *testing.T) {
	stub := &toolStub{t: t}
	pctx := extractTestContext(t, stub)
	pctx.Config.Pipeline.StripVideoCaptions = true
	pctx.Records = []metadata.StreamRecord{
		{Index: 0, Kind: metadata.KindVideo, Codec: "mpeg2video"},
	}
	stripped := filepath.Join(pctx.WorkDir, "title_01_video_0.m2v")
	pctx.Extracted = map[int]string{0: stripped}

	if err := (captionsStep{}).Run(context.Background(), pctx); err != nil {
		t.Fatalf("captions: %v", err)
	}
	if len(stub.calls) != 2 {
		t.Fatalf("expected video copy then caption reader, got %v", stub.calls)
	}
	if hasArg(stub.calls[0], "-bsf:v") {
		t.Errorf("caption source copy must keep caption units: %v", stub.calls[0])
	}
	reader := stub.calls[1]
	if reader[0] != "ccextractor" {
		t.Fatalf("second invocation must be the caption reader: %v", reader)
	}
	if reader[1] == stripped || filepath.Base(reader[1]) != "captions_source.m2v" {
		t.Errorf("caption reader must read the unstripped copy, got %q", reader[1])
	}
	if pctx.CaptionsPath == "" {
		t.Error("captions path not recorded")
	}
}

func TestCaptionsReadExtractedVideoWhenNotStripped(t *testing.T) {
	stub := &toolStub{t: t}
	pctx := extractTestContext(t, stub)
	pctx.Records = []metadata.StreamRecord{
		{Index: 0, Kind: metadata.KindVideo, Codec: "mpeg2video"},
	}
	source := filepath.Join(pctx.WorkDir, "title_01_video_0.m2v")
	pctx.Extracted = map[int]string{0: source}

	if err := (captionsStep{}).Run(context.Background(), pctx); err != nil {
		t.Fatalf("captions: %v", err)
	}
	if len(stub.calls) != 1 || stub.calls[0][0] != "ccextractor" {
		t.Fatalf("expected a single caption reader invocation, got %v", stub.calls)
	}
	if stub.calls[0][1] != source {
		t.Errorf("caption reader must read the extracted video, got %q", stub.calls[0][1])
	}
}
