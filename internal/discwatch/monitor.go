// Package discwatch listens for udev netlink events and reports optical
// disc insertions so the watch command can enqueue them without udev
// rules invoking the CLI as root.
package discwatch

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"remuxkit/internal/logging"
)

// InsertHandler is invoked once per detected disc insertion with the
// device node, e.g. /dev/sr0.
type InsertHandler func(ctx context.Context, device string)

// Monitor watches the kernel uevent stream for disc media changes.
type Monitor struct {
	device  string
	logger  *slog.Logger
	handler InsertHandler

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// NewMonitor builds a monitor for one optical device. An empty device
// matches any drive.
func NewMonitor(device string, logger *slog.Logger, handler InsertHandler) *Monitor {
	return &Monitor{
		device:  strings.TrimSpace(device),
		logger:  logging.NewComponentLogger(logger, "discwatch"),
		handler: handler,
	}
}

// Start connects to the netlink socket and begins monitoring. A failed
// connect is non-fatal: insertion detection is unavailable but the rest
// of the program still works.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("netlink connect failed, automatic disc detection unavailable",
			logging.Error(err))
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.loop(ctx, quit)

	m.logger.Info("disc monitor started", logging.String("device", m.device))
	return nil
}

// Stop shuts the monitor down.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false
	m.logger.Info("disc monitor stopped")
}

func (m *Monitor) loop(ctx context.Context, quit <-chan struct{}) {
	events := make(chan netlink.UEvent)
	errs := make(chan error)

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(events, errs, discMatcher())
	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-events:
			m.handleEvent(ctx, uevent)
		case err := <-errs:
			m.logger.Warn("netlink monitor error", logging.Error(err))
		}
	}
}

// discMatcher matches block-subsystem events for loaded optical media.
func discMatcher() netlink.Matcher {
	action := "change|add"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM":      "block",
			"ID_CDROM":       "1",
			"ID_CDROM_MEDIA": "1",
		},
	})
	return rules
}

func (m *Monitor) handleEvent(ctx context.Context, uevent netlink.UEvent) {
	device := deviceNode(uevent)
	if device == "" {
		return
	}
	if m.device != "" && device != m.device {
		m.logger.Debug("ignoring event for other device", logging.String("device", device))
		return
	}
	m.logger.Info("disc inserted", logging.String("device", device))
	if m.handler != nil {
		m.handler(ctx, device)
	}
}

func deviceNode(uevent netlink.UEvent) string {
	name := strings.TrimSpace(uevent.Env["DEVNAME"])
	if name == "" {
		return ""
	}
	if !strings.HasPrefix(name, "/dev/") {
		name = "/dev/" + name
	}
	return name
}
