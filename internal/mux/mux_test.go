package mux

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"remuxkit/internal/command"
	"remuxkit/internal/logging"
	"remuxkit/internal/metadata"
)

func sampleJob(output string) Job {
	return Job{
		Output:       output,
		Title:        "Feature",
		ChaptersPath: "/tmp/chapters.xml",
		Inputs: []Input{
			{
				Path: "/tmp/stream_0.m2v",
				Record: metadata.StreamRecord{
					Index:       0,
					Kind:        metadata.KindVideo,
					Codec:       "mpeg2video",
					Language:    "und",
					Height:      480,
					AspectRatio: "16:9",
				},
				Default:    true,
				FieldOrder: "tt",
			},
			{
				Path: "/tmp/stream_1.ac3",
				Record: metadata.StreamRecord{
					Index:    1,
					Kind:     metadata.KindAudio,
					Codec:    "ac3",
					Language: "en",
					Name:     "5.1 Surround AC3",
					DelayMS:  300,
				},
				Default: true,
			},
			{
				Path: "/tmp/stream_2.sup",
				Record: metadata.StreamRecord{
					Index:    2,
					Kind:     metadata.KindSubtitle,
					Codec:    "dvd_subtitle",
					Language: "en",
					Forced:   true,
				},
			},
		},
	}
}

func TestBuildArgs(t *testing.T) {
	args := BuildArgs(sampleJob("/tmp/out.mkv"))
	joined := strings.Join(args, " ")

	for _, want := range []string{
		"--output /tmp/out.mkv",
		"--title Feature",
		"--chapters /tmp/chapters.xml",
		"--field-order 0:1",
		"--display-dimensions 0:853x480",
		"--track-name 0:5.1 Surround AC3",
		"--sync 0:300",
		"--forced-display-flag 0:yes",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q:\n%s", want, joined)
		}
	}

	// Delays shift content forward only; the zero-delay video track gets
	// no sync option at all.
	if strings.Count(joined, "--sync") != 1 {
		t.Errorf("expected exactly one sync option:\n%s", joined)
	}

	if strings.Count(joined, "--default-track-flag 0:yes") != 2 {
		t.Errorf("expected video and first audio as default tracks:\n%s", joined)
	}
	if !strings.Contains(joined, "--default-track-flag 0:no") {
		t.Errorf("expected non-first subtitle track flagged no:\n%s", joined)
	}

	// Per-track options must precede their input path.
	last := args[len(args)-1]
	if last != "/tmp/stream_2.sup" {
		t.Errorf("expected final arg to be last input path, got %q", last)
	}
}

func TestBuildArgsNeverEmitsNegativeSync(t *testing.T) {
	job := sampleJob("/tmp/out.mkv")
	job.Inputs[1].Record.DelayMS = 0
	args := BuildArgs(job)
	if strings.Contains(strings.Join(args, " "), "--sync") {
		t.Error("zero delay must not produce a sync option")
	}
}

func TestFieldOrderCode(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"progressive", "0", true},
		{"tt", "1", true},
		{"bb", "6", true},
		{"", "", false},
		{"unknown", "", false},
	}
	for _, tc := range cases {
		got, ok := fieldOrderCode(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("fieldOrderCode(%q) = %q,%v; want %q,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

type stubExecutor struct {
	err    error
	onExec func()
}

func (s *stubExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	if s.onExec != nil {
		s.onExec()
	}
	return s.err
}

func TestRunValidatesOutput(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "out.mkv")
	exec := &stubExecutor{onExec: func() {
		if err := os.WriteFile(output, make([]byte, minOutputBytes), 0o644); err != nil {
			t.Fatalf("write output: %v", err)
		}
	}}
	muxer, err := New("mkvmerge", command.NewRunnerWithExecutor(logging.NewNop(), exec), logging.NewNop())
	if err != nil {
		t.Fatalf("new muxer: %v", err)
	}
	if err := muxer.Run(context.Background(), sampleJob(output)); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestRunRejectsUndersizedOutput(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "out.mkv")
	exec := &stubExecutor{onExec: func() {
		if err := os.WriteFile(output, []byte("tiny"), 0o644); err != nil {
			t.Fatalf("write output: %v", err)
		}
	}}
	muxer, err := New("mkvmerge", command.NewRunnerWithExecutor(logging.NewNop(), exec), logging.NewNop())
	if err != nil {
		t.Fatalf("new muxer: %v", err)
	}
	if err := muxer.Run(context.Background(), sampleJob(output)); err == nil {
		t.Fatal("expected validation error for undersized output")
	}
}

func TestRunRejectsMissingOutput(t *testing.T) {
	muxer, err := New("mkvmerge", command.NewRunnerWithExecutor(logging.NewNop(), &stubExecutor{}), logging.NewNop())
	if err != nil {
		t.Fatalf("new muxer: %v", err)
	}
	if err := muxer.Run(context.Background(), sampleJob(filepath.Join(t.TempDir(), "missing.mkv"))); err == nil {
		t.Fatal("expected validation error for missing output")
	}
}

func TestRunRejectsEmptyJob(t *testing.T) {
	muxer, err := New("mkvmerge", command.NewRunnerWithExecutor(logging.NewNop(), &stubExecutor{}), logging.NewNop())
	if err != nil {
		t.Fatalf("new muxer: %v", err)
	}
	if err := muxer.Run(context.Background(), Job{Output: "/tmp/out.mkv"}); err == nil {
		t.Fatal("expected error for job without inputs")
	}
}
