package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Stripe describes the physical LED stripe the daemon drives.
type Stripe struct {
	Pixels int `toml:"pixels"`
}

// Engine contains render loop pacing and startup behavior.
type Engine struct {
	MaxFPS     float64        `toml:"max_fps"`
	Animation  string         `toml:"animation"`
	Params     map[string]any `toml:"params"`
	Brightness float64        `toml:"brightness"`
}

// UDP contains settings for the UDP datagram transport.
type UDP struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// OPC contains settings for the Open Pixel Control transport.
type OPC struct {
	Server  string `toml:"server"`
	Channel int    `toml:"channel"`
}

// SPI contains settings for the direct SPI transport.
type SPI struct {
	Device   string `toml:"device"`
	ClockKHz int    `toml:"clock_khz"`
}

// Transport selects the output backend and its endpoint settings.
type Transport struct {
	Name string `toml:"name"`
	UDP  UDP    `toml:"udp"`
	OPC  OPC    `toml:"opc"`
	SPI  SPI    `toml:"spi"`
}

// Gateway contains the control gateway bind address.
type Gateway struct {
	Listen string `toml:"listen"`
}

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic          string `toml:"ntfy_topic"`
	RequestTimeout     int    `toml:"request_timeout"`
	EngineErrors       bool   `toml:"engine_errors"`
	TransportLoss      bool   `toml:"transport_loss"`
	DedupWindowSeconds int    `toml:"dedup_window_seconds"`
}

// Config encapsulates all configuration values for glow.
//
// Configuration sections by subsystem:
//   - Stripe: LED stripe geometry
//   - Engine: render rate cap, startup animation, master brightness
//   - Transport: output backend selection and endpoints
//   - Gateway: control gateway bind address
//   - Paths: data and log directories
//   - Logging: log format, level, and retention
//   - Notifications: ntfy push notification settings
type Config struct {
	Stripe        Stripe        `toml:"stripe"`
	Engine        Engine        `toml:"engine"`
	Transport     Transport     `toml:"transport"`
	Gateway       Gateway       `toml:"gateway"`
	Paths         Paths         `toml:"paths"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/glow/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("glow.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the scene store database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "scenes.db")
}

// LockPath returns the location of the daemon singleton lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "glowd.lock")
}

// PIDFilePath returns the location of the daemon pid file.
func (c *Config) PIDFilePath() string {
	return filepath.Join(c.Paths.DataDir, "glowd.pid")
}

// LogFilePath returns the location of the daemon log file.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Paths.LogDir, "glowd.log")
}

// GatewayURL returns the websocket URL for the configured gateway address.
func (c *Config) GatewayURL() string {
	return "ws://" + c.Gateway.Listen + "/ws"
}

// TransportParams maps the configured transport section onto bind
// parameters for the named transport. Loop takes no configuration.
func (c *Config) TransportParams() map[string]any {
	switch c.Transport.Name {
	case "udp":
		return map[string]any{"host": c.Transport.UDP.Host, "port": c.Transport.UDP.Port}
	case "opc":
		return map[string]any{"server": c.Transport.OPC.Server, "channel": c.Transport.OPC.Channel}
	case "spi":
		return map[string]any{"device": c.Transport.SPI.Device, "clock_khz": c.Transport.SPI.ClockKHz}
	default:
		return nil
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
