// Package command is the boundary to every external tool the pipeline
// invokes. It streams tool output line-wise, honors context cancellation,
// and records each command line plus its notable output for post-mortem
// inspection.
package command

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"remuxkit/internal/logging"
)

// Executor abstracts process execution so steps can be tested with stubs.
type Executor interface {
	// Run starts binary with args and forwards every output line (stdout and
	// stderr interleaved) to onLine. It returns once the process exits,
	// with the process error if the exit status was non-zero.
	Run(ctx context.Context, binary string, args []string, onLine func(string)) error
}

// Runner wraps an Executor with command logging.
type Runner struct {
	exec   Executor
	logger *slog.Logger
}

// NewRunner builds a Runner backed by os/exec.
func NewRunner(logger *slog.Logger) *Runner {
	return NewRunnerWithExecutor(logger, execExecutor{})
}

// NewExecutor returns the os/exec backed executor.
func NewExecutor() Executor {
	return execExecutor{}
}

// NewRunnerWithExecutor injects a custom executor (primarily for tests).
func NewRunnerWithExecutor(logger *slog.Logger, exec Executor) *Runner {
	if exec == nil {
		exec = execExecutor{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{exec: exec, logger: logger}
}

// Run executes the tool, logging the full command line up front and every
// warning- or error-looking output line as it arrives. Non-notable lines are
// forwarded to onLine only.
func (r *Runner) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	r.logger.Info("running external tool",
		logging.String(logging.FieldCommand, binary+" "+strings.Join(args, " ")),
	)
	err := r.exec.Run(ctx, binary, args, func(line string) {
		if notableLine(line) {
			r.logger.Warn("tool output", logging.String("line", strings.TrimSpace(line)))
		}
		if onLine != nil {
			onLine(line)
		}
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// Output executes the tool and returns its combined output, logging the
// command line. Used for tools whose whole payload is consumed at once.
func (r *Runner) Output(ctx context.Context, binary string, args []string) ([]byte, error) {
	var buf strings.Builder
	err := r.Run(ctx, binary, args, func(line string) {
		buf.WriteString(line)
		buf.WriteByte('\n')
	})
	if err != nil {
		return []byte(buf.String()), err
	}
	return []byte(buf.String()), nil
}

func notableLine(line string) bool {
	lower := strings.ToLower(line)
	for _, marker := range []string{"error", "warning", "failed", "invalid", "corrupt"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

type execExecutor struct{}

func (execExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", binary, err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	forward := func(line string) {
		if onLine == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		onLine(line)
	}

	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			forward(scanner.Text())
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%s: %w", binary, err)
	}
	return nil
}
