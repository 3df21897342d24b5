package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"glow/internal/animation"
	"glow/internal/config"
	"glow/internal/engine"
	"glow/internal/gateway"
	"glow/internal/logging"
	"glow/internal/plugin"
	"glow/internal/scene"
	"glow/internal/testsupport"
	"glow/internal/transport"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *scene.Store
	engine     *engine.Engine
	server     *gateway.Server
	hub        *logging.StreamHub
	gatewayURL string
	configPath string
}

// setupCLITestEnv boots a real engine and gateway on a loopback port and
// writes a matching config file, so commands exercise the full stack.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

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
		Brightness: cfg.Engine.Brightness,
		Registry:   registry,
		Logger:     logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("start engine: %v", err)
	}
	t.Cleanup(eng.Shutdown)
	if _, err := eng.BindTransport(context.Background(), "loop", nil); err != nil {
		t.Fatalf("bind loop transport: %v", err)
	}

	store := testsupport.MustOpenStore(t, cfg)

	hub := logging.NewStreamHub(128)
	server, err := gateway.NewServer(context.Background(), gateway.Options{
		Listen:   "127.0.0.1:0",
		Engine:   eng,
		Registry: registry,
		Scenes:   store,
		LogHub:   hub,
		Logger:   logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	server.Serve()
	t.Cleanup(server.Close)

	cfg.Gateway.Listen = server.Addr()
	configPath := filepath.Join(t.TempDir(), "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		engine:     eng,
		server:     server,
		hub:        hub,
		gatewayURL: "ws://" + server.Addr() + "/ws",
		configPath: configPath,
	}
}

func runCLI(t *testing.T, args []string, gatewayURL, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--gateway", gatewayURL}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[stripe]\npixels = %d\n\n[transport]\nname = %q\n\n[gateway]\nlisten = %q\n\n[paths]\ndata_dir = %q\nlog_dir = %q\n",
		cfg.Stripe.Pixels,
		cfg.Transport.Name,
		cfg.Gateway.Listen,
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

// syncBuffer is a thread-safe wrapper around bytes.Buffer for tests that
// read command output while the command is still running.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
