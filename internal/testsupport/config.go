package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"corpuskit/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Corpus.Root = filepath.Join(base, "corpus")
	cfgVal.Logging.Dir = filepath.Join(base, "logs")
	cfgVal.Ledger.Path = filepath.Join(base, "ledger.db")
	cfgVal.Fetch.DownloadDir = filepath.Join(base, "downloads")
	cfgVal.Transcode.Workers = 2
	cfgVal.Features.Workers = 2

	if err := os.MkdirAll(filepath.Join(cfgVal.Corpus.Root, cfgVal.Corpus.ClipsDir), 0o755); err != nil {
		t.Fatalf("mkdir clips dir: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithSeed fixes the split seed on the test config.
func WithSeed(seed int64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Split.Seed = seed
	}
}

// WithRatios overrides the dev/test split ratios on the test config.
func WithRatios(dev, test float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Split.DevRatio = dev
		b.cfg.Split.TestRatio = test
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// points the config's transcode section at them. If names is empty, ffmpeg
// and ffprobe are stubbed. The stubs exit zero and write a marker byte to
// their final argument so temp-then-rename paths see non-empty output.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nout=\"\"\nfor a in \"$@\"; do out=\"$a\"; done\ncase \"$out\" in\n  -*|\"\") : ;;\n  *) printf 'STUB' > \"$out\" ;;\nesac\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
			switch name {
			case "ffmpeg":
				b.cfg.Transcode.FFmpeg = target
			case "ffprobe":
				b.cfg.Transcode.FFprobe = target
			}
		}
		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Corpus.Root)
}
