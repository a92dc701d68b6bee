// Package workflow drives queued discs through analysis and processing.
// Two lanes poll the queue: the analysis lane enumerates titles on newly
// added sources, the processing lane remuxes one disc at a time. A lock
// file keeps concurrent manager instances off the same queue.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"remuxkit/internal/command"
	"remuxkit/internal/config"
	"remuxkit/internal/disc"
	"remuxkit/internal/logging"
	"remuxkit/internal/media/ffprobe"
	"remuxkit/internal/pipeline"
	"remuxkit/internal/queue"
	"remuxkit/internal/toolset"
)

// Manager owns the queue workers.
type Manager struct {
	cfg     *config.Config
	store   *queue.Store
	logger  *slog.Logger
	runner  *command.Runner
	prober  *ffprobe.Prober
	orch    *pipeline.Orchestrator
	ejector disc.Ejector

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a manager backed by os/exec tools.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger) (*Manager, error) {
	return NewWithExecutor(cfg, store, logger, nil)
}

// NewWithExecutor injects a custom command executor (primarily for tests).
func NewWithExecutor(cfg *config.Config, store *queue.Store, logger *slog.Logger, exec command.Executor) (*Manager, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("workflow requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if exec == nil {
		exec = command.NewExecutor()
	}
	settings, err := toolset.Load(cfg.Tools.SettingsPath)
	if err != nil {
		return nil, fmt.Errorf("workflow: %w", err)
	}
	runner := command.NewRunnerWithExecutor(logger, toolset.WrapExecutor(settings, exec))
	prober, err := ffprobe.New(cfg.Tools.FFprobe, runner)
	if err != nil {
		return nil, fmt.Errorf("workflow: %w", err)
	}
	lockPath := filepath.Join(cfg.Paths.LogDir, "remuxkit.lock")
	return &Manager{
		cfg:      cfg,
		store:    store,
		logger:   logging.NewComponentLogger(logger, "workflow"),
		runner:   runner,
		prober:   prober,
		orch:     pipeline.NewOrchestrator(logger),
		ejector:  disc.NewEjector(),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the queue lock, rolls stuck items back to stable
// statuses, and launches the lanes.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("workflow already running")
	}

	ok, err := m.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire queue lock: %w", err)
	}
	if !ok {
		return errors.New("another remuxkit instance is already running")
	}

	recovered, err := m.store.RecoverInFlight(ctx)
	if err != nil {
		_ = m.lock.Unlock()
		return fmt.Errorf("recover in-flight items: %w", err)
	}
	if recovered > 0 {
		m.logger.Info("recovered interrupted items", logging.Int64("count", recovered))
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(2)
	go m.runLane(runCtx, "analysis", m.analyzeNext)
	go m.runLane(runCtx, "processing", m.processNext)
	m.logger.Info("workflow started", logging.String("lock", m.lockPath))
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	if err := m.lock.Unlock(); err != nil {
		m.logger.Warn("failed to release queue lock", logging.Error(err))
	}
	m.logger.Info("workflow stopped")
}

// Run starts the manager and blocks until the context is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	if err := m.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	m.Stop()
	return nil
}

// Drain acquires the queue lock and works through every queued item
// once, analyzing pending sources first and then remuxing analyzed
// ones. It returns when the queue offers no further work.
func (m *Manager) Drain(ctx context.Context) error {
	ok, err := m.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire queue lock: %w", err)
	}
	if !ok {
		return errors.New("another remuxkit instance is already running")
	}
	defer func() {
		if err := m.lock.Unlock(); err != nil {
			m.logger.Warn("failed to release queue lock", logging.Error(err))
		}
	}()

	if _, err := m.store.RecoverInFlight(ctx); err != nil {
		return fmt.Errorf("recover in-flight items: %w", err)
	}

	for _, next := range []laneFunc{m.analyzeNext, m.processNext} {
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			worked, err := next(ctx)
			if err != nil {
				return err
			}
			if !worked {
				break
			}
		}
	}
	return nil
}

// laneFunc handles at most one queue item. It reports whether it found
// work to do.
type laneFunc func(ctx context.Context) (bool, error)

func (m *Manager) runLane(ctx context.Context, name string, next laneFunc) {
	defer m.wg.Done()
	logger := m.logger.With(logging.String("lane", name))
	for {
		if ctx.Err() != nil {
			return
		}
		worked, err := next(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			logger.Error("lane iteration failed", logging.Error(err))
			m.sleep(ctx, m.errorRetryInterval())
		case !worked:
			m.sleep(ctx, m.pollInterval())
		}
	}
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (m *Manager) pollInterval() time.Duration {
	if s := m.cfg.Workflow.QueuePollInterval; s > 0 {
		return time.Duration(s) * time.Second
	}
	return 5 * time.Second
}

func (m *Manager) errorRetryInterval() time.Duration {
	if s := m.cfg.Workflow.ErrorRetryInterval; s > 0 {
		return time.Duration(s) * time.Second
	}
	return 30 * time.Second
}
