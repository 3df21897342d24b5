package daemon

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"glow/internal/config"
	"glow/internal/logging"
)

// hotplugMonitor listens for udev netlink events on the spidev subsystem
// and logs device add/remove so an operator can tell why an spi bind
// fails or output went dark. Notice only: the engine is never rebound
// automatically.
type hotplugMonitor struct {
	logger *slog.Logger
	device string
	// onEvent, when set, receives every spidev add/remove after logging.
	onEvent func(action, device string)

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// newHotplugMonitor creates a monitor watching spidev hotplug events.
// The configured transport does not have to be spi: an operator may bind
// spi later, and the notices cost nothing.
func newHotplugMonitor(cfg *config.Config, logger *slog.Logger) *hotplugMonitor {
	if cfg == nil {
		return nil
	}
	return &hotplugMonitor{
		logger: logging.NewComponentLogger(logger, "hotplug-monitor"),
		device: spiDeviceNode(cfg.Transport.SPI.Device),
	}
}

// Start begins listening for udev netlink events. A failed netlink
// connect is non-fatal: the daemon works without hotplug notices.
func (m *hotplugMonitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		logging.WarnWithContext(m.logger, "netlink connect failed; spi hotplug notices disabled", "netlink_connect_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "ensure the daemon may open netlink sockets"),
			logging.String(logging.FieldImpact, "spi device add/remove will not be logged"),
		)
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	// Pass quit to the goroutine to avoid reading m.quit without the lock.
	quit := m.quit
	go m.monitorLoop(ctx, quit)

	m.logger.Info("hotplug monitor started",
		logging.String(logging.FieldEventType, "hotplug_monitor_started"),
		logging.String("device", m.device),
	)
	return nil
}

// Stop shuts down the monitor.
func (m *hotplugMonitor) Stop() {
	if m == nil {
		return
	}

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

	m.logger.Info("hotplug monitor stopped",
		logging.String(logging.FieldEventType, "hotplug_monitor_stopped"),
	)
}

// Running reports whether the monitor is active.
func (m *hotplugMonitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *hotplugMonitor) monitorLoop(ctx context.Context, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)

	matcher := m.buildMatcher()

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()

	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(queue, errs, matcher)

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(uevent)
		case err := <-errs:
			logging.WarnWithContext(m.logger, "hotplug monitor error", "hotplug_monitor_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "spi hotplug notices may be missed"),
			)
		}
	}
}

// buildMatcher matches spidev node creation and removal:
// SUBSYSTEM=spidev, ACTION=add|remove.
func (m *hotplugMonitor) buildMatcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "spidev",
		},
	})
	return rules
}

// handleEvent logs a matched uevent and invokes the onEvent hook.
func (m *hotplugMonitor) handleEvent(uevent netlink.UEvent) {
	devname := m.extractDeviceName(uevent)
	if devname == "" {
		m.logger.Debug("ignoring event without device name",
			logging.String("action", string(uevent.Action)),
			logging.String("kobj", uevent.KObj),
		)
		return
	}

	configured := m.device != "" && devname == m.device

	if uevent.Action == netlink.REMOVE {
		if configured {
			logging.WarnWithContext(m.logger, "configured spi device removed", "spi_device_removed",
				logging.String("device", devname),
				logging.String(logging.FieldErrorHint, "reconnect the device; spi sends fail until it returns"),
				logging.String(logging.FieldImpact, "spi transport output is down"),
			)
		} else {
			m.logger.Info("spi device removed",
				logging.String(logging.FieldEventType, "spi_device_removed"),
				logging.String("device", devname),
			)
		}
	} else {
		m.logger.Info("spi device added",
			logging.String(logging.FieldEventType, "spi_device_added"),
			logging.String("device", devname),
			logging.Bool("configured", configured),
		)
	}

	if m.onEvent != nil {
		m.onEvent(string(uevent.Action), devname)
	}
}

// extractDeviceName gets the device path from a uevent.
func (m *hotplugMonitor) extractDeviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		if strings.HasPrefix(devname, "/") {
			return devname
		}
		return "/dev/" + devname
	}

	// Fall back to DEVPATH (e.g. /devices/platform/.../spi0.0/spidev/spidev0.0)
	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	if len(parts) == 0 {
		return ""
	}
	return "/dev/" + parts[len(parts)-1]
}

// spiDeviceNode maps a periph port name like "SPI0.0" onto the /dev node
// udev reports. Absolute paths pass through; other names return "".
func spiDeviceNode(device string) string {
	if strings.HasPrefix(device, "/") {
		return device
	}
	if rest, ok := strings.CutPrefix(device, "SPI"); ok && rest != "" {
		return "/dev/spidev" + rest
	}
	return ""
}
