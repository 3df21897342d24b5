package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigInit(t *testing.T) {
	env := setupCLITestEnv(t)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, env.gatewayURL, env.configPath)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	_, _, err = runCLI(t, []string{"config", "init", "--path", target}, env.gatewayURL, env.configPath)
	if err == nil {
		t.Fatal("expected error when config file already exists")
	}
	requireContains(t, err.Error(), "already exists")

	out, _, err = runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, env.gatewayURL, env.configPath)
	if err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
}

func TestConfigShow(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "show"}, env.gatewayURL, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "# Config file:")
	requireContains(t, out, "pixels")
	requireContains(t, out, "loop")

	missing := filepath.Join(t.TempDir(), "absent.toml")
	out, _, err = runCLI(t, []string{"config", "show"}, env.gatewayURL, missing)
	if err != nil {
		t.Fatalf("config show with missing file: %v", err)
	}
	requireContains(t, out, "No config file found")
}
