package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStripe(); err != nil {
		return err
	}
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateTransport(); err != nil {
		return err
	}
	if err := c.validateGateway(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStripe() error {
	if c.Stripe.Pixels < 1 {
		return errors.New("stripe.pixels must be at least 1")
	}
	return nil
}

func (c *Config) validateEngine() error {
	if c.Engine.MaxFPS <= 0 {
		return errors.New("engine.max_fps must be positive")
	}
	if c.Engine.MaxFPS > 1000 {
		return errors.New("engine.max_fps must be at most 1000")
	}
	if c.Engine.Brightness < 0 || c.Engine.Brightness > 1 {
		return errors.New("engine.brightness must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateTransport() error {
	switch c.Transport.Name {
	case "udp":
		if c.Transport.UDP.Host == "" {
			return errors.New("transport.udp.host must be set when transport.name is udp")
		}
		if c.Transport.UDP.Port < 1 || c.Transport.UDP.Port > 65535 {
			return errors.New("transport.udp.port must be between 1 and 65535")
		}
	case "opc":
		if c.Transport.OPC.Server == "" {
			return errors.New("transport.opc.server must be set when transport.name is opc")
		}
		if _, _, err := net.SplitHostPort(c.Transport.OPC.Server); err != nil {
			return fmt.Errorf("transport.opc.server must be host:port: %w", err)
		}
		if c.Transport.OPC.Channel < 0 || c.Transport.OPC.Channel > 255 {
			return errors.New("transport.opc.channel must be between 0 and 255")
		}
	case "spi":
		if c.Transport.SPI.Device == "" {
			return errors.New("transport.spi.device must be set when transport.name is spi")
		}
		if c.Transport.SPI.ClockKHz < 1 {
			return errors.New("transport.spi.clock_khz must be positive")
		}
	case "loop":
	default:
		return fmt.Errorf("transport.name %q is not one of udp, opc, spi, loop", c.Transport.Name)
	}
	return nil
}

func (c *Config) validateGateway() error {
	if _, _, err := net.SplitHostPort(c.Gateway.Listen); err != nil {
		return fmt.Errorf("gateway.listen must be host:port: %w", err)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic != "" && strings.ContainsAny(c.Notifications.NtfyTopic, " /") {
		return errors.New("notifications.ntfy_topic must be a bare topic name")
	}
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}
