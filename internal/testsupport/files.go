package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"corpuskit/internal/config"
	"corpuskit/internal/identity"
	"corpuskit/internal/manifest"
)

// WriteFile creates a file of the requested size filled with a repeating
// pattern, creating parent directories as needed.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer file.Close()

	chunk := make([]byte, 32*1024)
	for i := range chunk {
		chunk[i] = 0x42
	}
	remaining := size
	for remaining > 0 {
		n := int64(len(chunk))
		if remaining < n {
			n = remaining
		}
		if _, err := file.Write(chunk[:n]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= n
	}
}

// SeedCorpus writes clip files and matching manifest rows for each
// {clipName, sentence} pair. Clip contents embed the clip name so every
// seeded row gets a distinct client_id.
func SeedCorpus(t testing.TB, cfg *config.Config, rows [][2]string) {
	t.Helper()

	clipsDir := cfg.ClipsPath()
	if err := os.MkdirAll(clipsDir, 0o755); err != nil {
		t.Fatalf("mkdir clips dir: %v", err)
	}

	records := make([]manifest.Record, 0, len(rows))
	for _, row := range rows {
		name, sentence := row[0], row[1]
		clipPath := filepath.Join(clipsDir, name)
		if err := os.WriteFile(clipPath, []byte("clip:"+name), 0o644); err != nil {
			t.Fatalf("write clip %s: %v", name, err)
		}
		clientID, err := identity.ClientID(clipPath, sentence)
		if err != nil {
			t.Fatalf("client id for %s: %v", name, err)
		}
		record := manifest.NewRecord(clientID, name, sentence, cfg.Corpus.Locale)
		record.SentenceID = identity.SentenceID(sentence)
		records = append(records, record)
	}

	if err := manifest.Append(cfg.ManifestPath(), records); err != nil {
		t.Fatalf("append manifest rows: %v", err)
	}
}
