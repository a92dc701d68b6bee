package toolset

import (
	"context"

	"remuxkit/internal/command"
)

// Executor wraps another executor and prepends the configured extra
// arguments for each tool.
type Executor struct {
	settings Settings
	next     command.Executor
}

// WrapExecutor decorates next with the settings. Empty settings return
// next unchanged.
func WrapExecutor(settings Settings, next command.Executor) command.Executor {
	if len(settings) == 0 {
		return next
	}
	return &Executor{settings: settings, next: next}
}

func (e *Executor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	if extra := e.settings.ArgsFor(binary); len(extra) > 0 {
		merged := make([]string, 0, len(extra)+len(args))
		merged = append(merged, extra...)
		merged = append(merged, args...)
		args = merged
	}
	return e.next.Run(ctx, binary, args, onLine)
}
