package command_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"remuxkit/internal/command"
)

type stubExecutor struct {
	lines []string
	err   error

	gotBinary string
	gotArgs   []string
}

func (s *stubExecutor) Run(_ context.Context, binary string, args []string, onLine func(string)) error {
	s.gotBinary = binary
	s.gotArgs = args
	for _, line := range s.lines {
		onLine(line)
	}
	return s.err
}

func TestRunnerForwardsLinesAndLogsCommand(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	stub := &stubExecutor{lines: []string{"frame=1", "Warning: something odd"}}
	runner := command.NewRunnerWithExecutor(logger, stub)

	var seen []string
	if err := runner.Run(context.Background(), "ffmpeg", []string{"-i", "in.vob"}, func(line string) {
		seen = append(seen, line)
	}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(seen) != 2 {
		t.Fatalf("forwarded %d lines, want 2", len(seen))
	}
	if stub.gotBinary != "ffmpeg" {
		t.Fatalf("binary = %q", stub.gotBinary)
	}
	logged := buf.String()
	if !strings.Contains(logged, "ffmpeg -i in.vob") {
		t.Fatalf("command line not logged: %q", logged)
	}
	if !strings.Contains(logged, "Warning: something odd") {
		t.Fatalf("notable output not logged: %q", logged)
	}
}

func TestRunnerReturnsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stub := &stubExecutor{err: errors.New("signal: killed")}
	runner := command.NewRunnerWithExecutor(nil, stub)

	err := runner.Run(ctx, "mkvmerge", nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunnerOutputCollectsLines(t *testing.T) {
	stub := &stubExecutor{lines: []string{"a", "b"}}
	runner := command.NewRunnerWithExecutor(nil, stub)
	out, err := runner.Output(context.Background(), "lsdvd", nil)
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	if string(out) != "a\nb\n" {
		t.Fatalf("out = %q", out)
	}
}
