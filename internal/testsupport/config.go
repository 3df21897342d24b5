// Package testsupport provides helpers for constructing test fixtures.
package testsupport

import (
	"path/filepath"
	"testing"

	"glow/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults to the loopback transport so tests never touch hardware or the
// network, and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Gateway.Listen = "127.0.0.1:0"
	cfg.Transport.Name = "loop"
	cfg.Stripe.Pixels = 10

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}

// WithPixels overrides the stripe pixel count on the test config.
func WithPixels(pixels int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Stripe.Pixels = pixels
	}
}

// WithTransport overrides the transport selection on the test config.
func WithTransport(name string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Transport.Name = name
	}
}

// WithStartupAnimation configures an animation to select at engine start.
func WithStartupAnimation(name string, params map[string]any) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Engine.Animation = name
		cfg.Engine.Params = params
	}
}
