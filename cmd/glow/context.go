package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"glow/internal/config"
	"glow/internal/control"
)

type commandContext struct {
	gatewayFlag *string
	configFlag  *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(gatewayFlag, configFlag *string) *commandContext {
	return &commandContext{
		gatewayFlag: gatewayFlag,
		configFlag:  configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// gatewayURL resolves the daemon address: the --gateway flag wins, then
// the configured listen address.
func (c *commandContext) gatewayURL() string {
	if c.gatewayFlag != nil {
		if flag := strings.TrimSpace(*c.gatewayFlag); flag != "" {
			return normalizeGatewayURL(flag)
		}
	}
	if cfg := c.configValue(); cfg != nil {
		return cfg.GatewayURL()
	}
	return config.Default().GatewayURL()
}

func normalizeGatewayURL(addr string) string {
	if strings.Contains(addr, "://") {
		return addr
	}
	return "ws://" + addr + "/ws"
}

func (c *commandContext) withClient(ctx context.Context, fn func(*control.Client) error) error {
	client, err := c.dialClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

func (c *commandContext) dialClient(ctx context.Context) (*control.Client, error) {
	url := c.gatewayURL()
	client, err := control.Dial(ctx, url)
	if err != nil {
		return nil, wrapDialError(err, url)
	}
	return client, nil
}

func wrapDialError(err error, url string) error {
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to daemon: %s refused the connection; start the daemon with `glow start`", url)
	case errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH):
		return fmt.Errorf("connect to daemon: %s is unreachable; check the gateway address", url)
	default:
		return fmt.Errorf("connect to daemon at %s: %w", url, err)
	}
}

// closeClientOnCancel unblocks a streaming read when the command context
// is canceled. The websocket read only aborts on connection close.
func closeClientOnCancel(ctx context.Context, client *control.Client) {
	go func() {
		<-ctx.Done()
		client.Close()
	}()
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
