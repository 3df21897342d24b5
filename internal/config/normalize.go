package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEngine()
	c.normalizeTransport()
	c.normalizeGateway()
	c.normalizeLogging()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeEngine() {
	c.Engine.Animation = strings.TrimSpace(c.Engine.Animation)
	if c.Engine.MaxFPS <= 0 {
		c.Engine.MaxFPS = defaultEngineMaxFPS
	}
}

func (c *Config) normalizeTransport() {
	c.Transport.Name = strings.ToLower(strings.TrimSpace(c.Transport.Name))
	if c.Transport.Name == "" {
		c.Transport.Name = defaultTransportName
	}
	c.Transport.UDP.Host = strings.TrimSpace(c.Transport.UDP.Host)
	if c.Transport.UDP.Host == "" {
		c.Transport.UDP.Host = defaultUDPHost
	}
	if c.Transport.UDP.Port == 0 {
		c.Transport.UDP.Port = defaultUDPPort
	}
	c.Transport.OPC.Server = strings.TrimSpace(c.Transport.OPC.Server)
	if c.Transport.OPC.Server == "" {
		c.Transport.OPC.Server = defaultOPCServer
	}
	c.Transport.SPI.Device = strings.TrimSpace(c.Transport.SPI.Device)
	if c.Transport.SPI.Device == "" {
		c.Transport.SPI.Device = defaultSPIDevice
	}
	if c.Transport.SPI.ClockKHz == 0 {
		c.Transport.SPI.ClockKHz = defaultSPIClockKHz
	}
}

func (c *Config) normalizeGateway() {
	c.Gateway.Listen = strings.TrimSpace(c.Gateway.Listen)
	if c.Gateway.Listen == "" {
		c.Gateway.Listen = defaultGatewayListen
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("GLOW_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
	if c.Notifications.DedupWindowSeconds < 0 {
		c.Notifications.DedupWindowSeconds = 0
	}
}
