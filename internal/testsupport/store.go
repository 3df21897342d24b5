package testsupport

import (
	"testing"

	"glow/internal/config"
	"glow/internal/scene"
)

// MustOpenStore opens the scene store for the given config and registers
// cleanup with the test.
func MustOpenStore(t testing.TB, cfg *config.Config) *scene.Store {
	t.Helper()

	store, err := scene.Open(cfg)
	if err != nil {
		t.Fatalf("open scene store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
