package daemon_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"glow/internal/animation"
	"glow/internal/config"
	"glow/internal/daemon"
	"glow/internal/engine"
	"glow/internal/logging"
	"glow/internal/plugin"
	"glow/internal/transport"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Transport.Name = "loop"
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	return &cfg
}

func newTestEngine(t *testing.T, cfg *config.Config) *engine.Engine {
	t.Helper()

	registry := plugin.NewRegistry()
	for _, desc := range animation.Descriptors() {
		if err := registry.Register(desc); err != nil {
			t.Fatalf("register animation: %v", err)
		}
	}
	for _, desc := range transport.Descriptors() {
		if err := registry.Register(desc); err != nil {
			t.Fatalf("register transport: %v", err)
		}
	}

	eng, err := engine.New(engine.Options{
		Pixels:     cfg.Stripe.Pixels,
		MaxFPS:     cfg.Engine.MaxFPS,
		Brightness: cfg.Engine.Brightness,
		Registry:   registry,
		Logger:     logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return eng
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testConfig(t)
	eng := newTestEngine(t, cfg)

	d, err := daemon.New(cfg, logging.NewNop(), eng)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !d.Running() {
		t.Fatal("expected daemon to report running")
	}

	st, err := eng.State(ctx)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if st.Transport != "loop" {
		t.Fatalf("expected loop transport bound, got %q", st.Transport)
	}

	// Second start should fail.
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Running() {
		t.Fatal("expected daemon to be stopped")
	}
	d.Stop() // second stop must be safe
}

func TestDaemonLockExcludesSecondInstance(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	first, err := daemon.New(cfg, logging.NewNop(), newTestEngine(t, cfg))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(first.Stop)
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}

	second, err := daemon.New(cfg, logging.NewNop(), newTestEngine(t, cfg))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(second.Stop)
	err = second.Start(ctx)
	if err == nil {
		t.Fatal("expected second instance to be refused")
	}
	if !strings.Contains(err.Error(), "already running") {
		t.Fatalf("unexpected error: %v", err)
	}

	first.Stop()

	// Lock released: a fresh instance can claim it.
	third, err := daemon.New(cfg, logging.NewNop(), newTestEngine(t, cfg))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(third.Stop)
	if err := third.Start(ctx); err != nil {
		t.Fatalf("third Start after release: %v", err)
	}
}

func TestDaemonStartupAnimation(t *testing.T) {
	cfg := testConfig(t)
	cfg.Engine.Animation = "nova"
	cfg.Engine.Params = map[string]any{"speed": 2.0}
	eng := newTestEngine(t, cfg)

	d, err := daemon.New(cfg, logging.NewNop(), eng)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	st, err := eng.State(ctx)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if st.Status != engine.StatusRunning {
		t.Fatalf("expected running status, got %q", st.Status)
	}
	if st.Animation != "nova" {
		t.Fatalf("expected nova running, got %q", st.Animation)
	}
	if got, ok := st.Params["speed"].(float64); !ok || got != 2.0 {
		t.Fatalf("expected speed 2.0, got %v", st.Params["speed"])
	}
}

func TestDaemonStartupAnimationFailureIsNonFatal(t *testing.T) {
	cfg := testConfig(t)
	cfg.Engine.Animation = "ghost"
	eng := newTestEngine(t, cfg)

	d, err := daemon.New(cfg, logging.NewNop(), eng)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start should tolerate a bad startup animation, got: %v", err)
	}
	if !d.Running() {
		t.Fatal("expected daemon running despite failed startup animation")
	}

	st, err := eng.State(ctx)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if st.Status != engine.StatusStopped {
		t.Fatalf("expected stopped status, got %q", st.Status)
	}
	if st.Animation != "" {
		t.Fatalf("expected no animation, got %q", st.Animation)
	}
}

func TestDaemonStartFailsOnUnknownTransport(t *testing.T) {
	cfg := testConfig(t)
	cfg.Transport.Name = "warp"

	d, err := daemon.New(cfg, logging.NewNop(), newTestEngine(t, cfg))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)

	ctx := context.Background()
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected start to fail for unknown transport")
	}
	if d.Running() {
		t.Fatal("daemon must not report running after failed start")
	}

	// The failed start must release the lock.
	cfg.Transport.Name = "loop"
	retry, err := daemon.New(cfg, logging.NewNop(), newTestEngine(t, cfg))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(retry.Stop)
	if err := retry.Start(ctx); err != nil {
		t.Fatalf("Start after failed bind: %v", err)
	}
}
