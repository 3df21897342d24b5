package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func TestTestNotifyCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"test-notify"}, env.gatewayURL, env.configPath)
	if err == nil {
		t.Fatal("expected error without a configured topic")
	}
	requireContains(t, err.Error(), "not configured")

	var delivered atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delivered.Store(true)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := fmt.Sprintf(
		"[transport]\nname = \"loop\"\n\n[paths]\ndata_dir = %q\nlog_dir = %q\n\n[notifications]\nntfy_topic = %q\n",
		env.cfg.Paths.DataDir,
		env.cfg.Paths.LogDir,
		server.URL,
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, _, err := runCLI(t, []string{"test-notify"}, env.gatewayURL, configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Test notification sent")
	if !delivered.Load() {
		t.Fatal("expected the ntfy endpoint to receive the request")
	}
}
