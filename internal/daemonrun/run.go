package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"glow/internal/animation"
	"glow/internal/config"
	"glow/internal/daemon"
	"glow/internal/engine"
	"glow/internal/gateway"
	"glow/internal/logging"
	"glow/internal/notify"
	"glow/internal/plugin"
	"glow/internal/preflight"
	"glow/internal/scene"
	"glow/internal/transport"
)

// Options configures daemon process runtime behavior.
type Options struct {
	// LogLevel overrides the configured level when non-empty.
	LogLevel string
	// Listen overrides the configured gateway address when non-empty.
	Listen string
}

// Run starts the glow daemon runtime loop and blocks until the context is
// canceled or a termination signal arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("glowd-%s.log", runID))
	logHub := logging.NewStreamHub(4096)

	level := strings.TrimSpace(opts.LogLevel)
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Stream:           logHub,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.LogFilePath(), logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update glowd.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "glowd-*.log", Exclude: []string{logPath}},
	)

	pidPath := cfg.PIDFilePath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	logPreflight(signalCtx, cfg, logger)

	scenes, err := scene.Open(cfg)
	if err != nil {
		logger.Error("open scene store", logging.Error(err))
		return err
	}
	defer scenes.Close()

	registry := plugin.NewRegistry()
	if err := registerPlugins(registry); err != nil {
		return fmt.Errorf("register plugins: %w", err)
	}

	notifier := notify.NewService(cfg, logger)
	eng, err := engine.New(engine.Options{
		Pixels:     cfg.Stripe.Pixels,
		MaxFPS:     cfg.Engine.MaxFPS,
		Brightness: cfg.Engine.Brightness,
		Registry:   registry,
		Logger:     logger,
		Notifier:   notifier,
	})
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	d, err := daemon.New(cfg, logger, eng)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(signalCtx); err != nil {
		logger.Error("daemon start failed", logging.Error(err))
		return err
	}
	defer d.Stop()

	listen := strings.TrimSpace(opts.Listen)
	if listen == "" {
		listen = cfg.Gateway.Listen
	}
	gw, err := gateway.NewServer(signalCtx, gateway.Options{
		Listen:   listen,
		Engine:   eng,
		Registry: registry,
		Scenes:   scenes,
		LogHub:   logHub,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("start gateway: %w", err)
	}
	defer gw.Close()
	gw.Serve()

	logger.Info("glow daemon ready",
		logging.String("listen", gw.Addr()),
		logging.String(logging.FieldTransport, cfg.Transport.Name),
		logging.String(logging.FieldAnimation, cfg.Engine.Animation),
	)

	<-signalCtx.Done()
	logger.Info("glow daemon shutting down")
	return nil
}

func registerPlugins(registry *plugin.Registry) error {
	for _, desc := range animation.Descriptors() {
		if err := registry.Register(desc); err != nil {
			return err
		}
	}
	for _, desc := range transport.Descriptors() {
		if err := registry.Register(desc); err != nil {
			return err
		}
	}
	return nil
}

func logPreflight(ctx context.Context, cfg *config.Config, logger *slog.Logger) {
	results := preflight.RunAll(ctx, cfg)
	failed := 0
	for _, r := range results {
		if r.Passed {
			continue
		}
		failed++
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldErrorHint, "run 'glow status' for the full report"),
			logging.String(logging.FieldImpact, "output may stay dark until resolved"),
		)
	}
	if failed == 0 {
		logger.Info("preflight checks passed", logging.Int("checks", len(results)))
	}
}

// ensureCurrentLogPointer keeps a stable path pointing at the newest
// run-stamped log file so "glow logs" does not need to glob.
func ensureCurrentLogPointer(current, target string) error {
	if current == "" || target == "" {
		return nil
	}
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	// Some filesystems refuse symlinks; fall back to a hard link.
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
