package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"glow/internal/config"
)

func TestLoadDefaultsAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "glow")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.LogDir != filepath.Join(wantData, "logs") {
		t.Fatalf("unexpected log dir: %q", cfg.Paths.LogDir)
	}
	if cfg.Stripe.Pixels != 60 {
		t.Fatalf("unexpected pixel count: %d", cfg.Stripe.Pixels)
	}
	if cfg.Engine.MaxFPS != 60.0 {
		t.Fatalf("unexpected max fps: %v", cfg.Engine.MaxFPS)
	}
	if cfg.Engine.Brightness != 1.0 {
		t.Fatalf("unexpected brightness: %v", cfg.Engine.Brightness)
	}
	if cfg.Engine.Animation != "" {
		t.Fatalf("expected no startup animation, got %q", cfg.Engine.Animation)
	}
	if cfg.Transport.Name != "udp" {
		t.Fatalf("unexpected transport: %q", cfg.Transport.Name)
	}
	if cfg.Transport.UDP.Host != "127.0.0.1" || cfg.Transport.UDP.Port != 7331 {
		t.Fatalf("unexpected udp endpoint: %s:%d", cfg.Transport.UDP.Host, cfg.Transport.UDP.Port)
	}
	if cfg.Gateway.Listen != "127.0.0.1:7420" {
		t.Fatalf("unexpected gateway listen: %q", cfg.Gateway.Listen)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "scenes.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.LogFilePath() != filepath.Join(wantData, "logs", "glowd.log") {
		t.Fatalf("unexpected log file path: %q", cfg.LogFilePath())
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "glow.toml")

	type payload struct {
		Stripe struct {
			Pixels int `toml:"pixels"`
		} `toml:"stripe"`
		Engine struct {
			MaxFPS    float64        `toml:"max_fps"`
			Animation string         `toml:"animation"`
			Params    map[string]any `toml:"params"`
		} `toml:"engine"`
		Transport struct {
			Name string `toml:"name"`
			UDP  struct {
				Host string `toml:"host"`
				Port int    `toml:"port"`
			} `toml:"udp"`
		} `toml:"transport"`
	}
	custom := payload{}
	custom.Stripe.Pixels = 144
	custom.Engine.MaxFPS = 30
	custom.Engine.Animation = "nova"
	custom.Engine.Params = map[string]any{"speed": 2.5}
	custom.Transport.Name = "UDP"
	custom.Transport.UDP.Host = "10.0.0.10"
	custom.Transport.UDP.Port = 9000

	encoded, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, encoded, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Stripe.Pixels != 144 {
		t.Fatalf("pixels = %d, want 144", cfg.Stripe.Pixels)
	}
	if cfg.Engine.MaxFPS != 30 {
		t.Fatalf("max fps = %v, want 30", cfg.Engine.MaxFPS)
	}
	if cfg.Engine.Animation != "nova" {
		t.Fatalf("animation = %q, want nova", cfg.Engine.Animation)
	}
	if got, ok := cfg.Engine.Params["speed"]; !ok || got != 2.5 {
		t.Fatalf("params[speed] = %v, want 2.5", got)
	}
	if cfg.Transport.Name != "udp" {
		t.Fatalf("transport name not lowercased: %q", cfg.Transport.Name)
	}
	if cfg.Transport.UDP.Host != "10.0.0.10" || cfg.Transport.UDP.Port != 9000 {
		t.Fatalf("unexpected udp endpoint: %s:%d", cfg.Transport.UDP.Host, cfg.Transport.UDP.Port)
	}
	// Sections absent from the file keep their defaults.
	if cfg.Transport.OPC.Server != "127.0.0.1:7890" {
		t.Fatalf("unexpected opc server: %q", cfg.Transport.OPC.Server)
	}
}

func TestLoadMissingCustomPathUsesDefaults(t *testing.T) {
	cfg, _, exists, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected missing file to report exists=false")
	}
	if cfg.Stripe.Pixels != 60 {
		t.Fatalf("expected defaults, got pixels=%d", cfg.Stripe.Pixels)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*config.Config)
		wantSub string
	}{
		{"zero pixels", func(c *config.Config) { c.Stripe.Pixels = 0 }, "stripe.pixels"},
		{"negative brightness", func(c *config.Config) { c.Engine.Brightness = -0.1 }, "engine.brightness"},
		{"excess brightness", func(c *config.Config) { c.Engine.Brightness = 1.5 }, "engine.brightness"},
		{"excess fps", func(c *config.Config) { c.Engine.MaxFPS = 5000 }, "engine.max_fps"},
		{"unknown transport", func(c *config.Config) { c.Transport.Name = "serial" }, "transport.name"},
		{"bad udp port", func(c *config.Config) { c.Transport.UDP.Port = 70000 }, "transport.udp.port"},
		{"bad opc server", func(c *config.Config) {
			c.Transport.Name = "opc"
			c.Transport.OPC.Server = "nohost"
		}, "transport.opc.server"},
		{"bad opc channel", func(c *config.Config) {
			c.Transport.Name = "opc"
			c.Transport.OPC.Channel = 512
		}, "transport.opc.channel"},
		{"bad spi clock", func(c *config.Config) {
			c.Transport.Name = "spi"
			c.Transport.SPI.ClockKHz = -5
		}, "transport.spi.clock_khz"},
		{"bad gateway listen", func(c *config.Config) { c.Gateway.Listen = "nohost" }, "gateway.listen"},
		{"topic with slash", func(c *config.Config) { c.Notifications.NtfyTopic = "a/b" }, "ntfy_topic"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Fatalf("error %q does not mention %q", err, tc.wantSub)
			}
		})
	}
}

func TestNormalizeSPIClockNegativeRejected(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "glow.toml")
	body := "[transport]\nname = \"spi\"\n[transport.spi]\nclock_khz = -1\n"
	if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected load to fail for negative spi clock")
	}
}

func TestNtfyTopicFromEnvironment(t *testing.T) {
	t.Setenv("GLOW_NTFY_TOPIC", "glow-alerts")
	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Notifications.NtfyTopic != "glow-alerts" {
		t.Fatalf("topic = %q, want glow-alerts", cfg.Notifications.NtfyTopic)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	samplePath := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(samplePath); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	cfg, _, exists, err := config.Load(samplePath)
	if err != nil {
		t.Fatalf("sample config did not load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	defaults := config.Default()
	if cfg.Stripe.Pixels != defaults.Stripe.Pixels {
		t.Fatalf("sample pixels = %d, want %d", cfg.Stripe.Pixels, defaults.Stripe.Pixels)
	}
	if cfg.Transport.Name != defaults.Transport.Name {
		t.Fatalf("sample transport = %q, want %q", cfg.Transport.Name, defaults.Transport.Name)
	}
	if cfg.Logging.RetentionDays != defaults.Logging.RetentionDays {
		t.Fatalf("sample retention = %d, want %d", cfg.Logging.RetentionDays, defaults.Logging.RetentionDays)
	}
}
