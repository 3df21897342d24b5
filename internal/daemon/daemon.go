package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"glow/internal/config"
	"glow/internal/engine"
	"glow/internal/logging"
	"glow/internal/plugin"
)

// Daemon coordinates the engine lifecycle and enforces single-instance
// execution through a file lock.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	engine *engine.Engine

	lockPath string
	lock     *flock.Flock
	hotplug  *hotplugMonitor

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon around an initialized, not yet started engine.
func New(cfg *config.Config, logger *slog.Logger, eng *engine.Engine) (*Daemon, error) {
	if cfg == nil || logger == nil || eng == nil {
		return nil, errors.New("daemon requires config, logger, and engine")
	}

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		engine:   eng,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		hotplug:  newHotplugMonitor(cfg, logger),
	}, nil
}

// Start acquires the instance lock, starts the engine, binds the
// configured transport, and selects the startup animation. A failing
// transport bind is fatal; a failing startup animation only logs a
// warning, because the daemon stays controllable through the gateway.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another glow daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.engine.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start engine: %w", err)
	}
	if err := d.bindTransport(runCtx); err != nil {
		d.engine.Shutdown()
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	d.startAnimation(runCtx)

	if err := d.hotplug.Start(runCtx); err != nil {
		d.engine.Shutdown()
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start hotplug monitor: %w", err)
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("glow daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts down the engine (which blacks out the stripe and closes the
// transport) and releases the instance lock. Safe to call more than once.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.hotplug.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.engine.Shutdown()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
			logging.Error(err),
			logging.String("lock", d.lockPath),
			logging.String(logging.FieldErrorHint, "remove the lock file if no glowd process is running"),
			logging.String(logging.FieldImpact, "the next daemon start may refuse to run"),
		)
	}
	d.running.Store(false)
	d.logger.Info("glow daemon stopped")
}

// Running reports whether Start has completed and Stop has not been called.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

func (d *Daemon) bindTransport(ctx context.Context) error {
	name := d.cfg.Transport.Name
	st, err := d.engine.BindTransport(ctx, name, plugin.Params(d.cfg.TransportParams()))
	if err != nil {
		return fmt.Errorf("bind transport %q: %w", name, err)
	}
	d.logger.Info("transport bound", logging.String(logging.FieldTransport, st.Transport))
	return nil
}

func (d *Daemon) startAnimation(ctx context.Context) {
	name := strings.TrimSpace(d.cfg.Engine.Animation)
	if name == "" {
		return
	}
	st, err := d.engine.SelectAnimation(ctx, name, plugin.Params(d.cfg.Engine.Params))
	if err != nil {
		logging.WarnWithContext(d.logger, "startup animation failed; stripe stays dark", "startup_animation_failed",
			logging.String(logging.FieldAnimation, name),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the [engine] animation name and params in the config"),
			logging.String(logging.FieldImpact, "no output until a client selects an animation"),
		)
		return
	}
	d.logger.Info("startup animation running", logging.String(logging.FieldAnimation, st.Animation))
}
