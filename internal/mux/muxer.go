package mux

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"remuxkit/internal/command"
	"remuxkit/internal/logging"
	"remuxkit/internal/services"
)

// minOutputBytes is the smallest plausible size for a container that holds
// at least one real video stream.
const minOutputBytes = 1 << 20

// Muxer runs mkvmerge and validates the produced container.
type Muxer struct {
	binary string
	runner *command.Runner
	logger *slog.Logger
}

// New constructs a Muxer for the given mkvmerge binary.
func New(binary string, runner *command.Runner, logger *slog.Logger) (*Muxer, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("mkvmerge binary required")
	}
	if runner == nil {
		return nil, errors.New("command runner required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Muxer{binary: binary, runner: runner, logger: logger}, nil
}

// Run executes the mux job. mkvmerge exits 1 when it only printed
// warnings; that output is still valid and the run counts as success.
func (m *Muxer) Run(ctx context.Context, job Job) error {
	if len(job.Inputs) == 0 {
		return services.Wrap(services.ErrValidation, "mux", "run", "no input streams", nil)
	}
	err := m.runner.Run(ctx, m.binary, BuildArgs(job), nil)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			m.logger.Warn("mkvmerge finished with warnings",
				logging.String("output", job.Output))
		} else if services.IsCancellation(err) {
			return err
		} else {
			return services.Wrap(services.ErrExternalTool, "mux", "run", "mkvmerge failed", err)
		}
	}
	return m.validate(job.Output)
}

func (m *Muxer) validate(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrValidation, "mux", "validate",
			fmt.Sprintf("output missing: %s", path), err)
	}
	if info.Size() < minOutputBytes {
		return services.Wrap(services.ErrValidation, "mux", "validate",
			fmt.Sprintf("output suspiciously small: %d bytes", info.Size()), nil)
	}
	return nil
}
