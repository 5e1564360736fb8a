package testsupport

import (
	"testing"

	"corpuskit/internal/config"
	"corpuskit/internal/ledger"
)

// MustOpenLedger opens the run ledger for the given config and registers a
// cleanup that closes it when the test finishes.
func MustOpenLedger(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()

	store, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
