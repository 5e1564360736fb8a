package probe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"corpuskit/internal/ledger"
	"corpuskit/internal/services"
)

const stubPayload = `{
  "streams": [
    {"index": 0, "codec_name": "mp3", "codec_type": "audio", "sample_rate": "32000", "channels": 1, "duration": "4.20"}
  ],
  "format": {"filename": "clip.mp3", "nb_streams": 1, "duration": "4.20", "size": "25600", "format_name": "mp3"}
}`

func writeStubFFprobe(t *testing.T, dir, payload, callLog string) string {
	t.Helper()
	var script strings.Builder
	script.WriteString("#!/bin/sh\n")
	if callLog != "" {
		script.WriteString("echo called >> " + callLog + "\n")
	}
	if payload == "" {
		script.WriteString("exit 2\n")
	} else {
		script.WriteString("cat <<'EOF'\n")
		script.WriteString(payload)
		script.WriteString("\nEOF\n")
	}
	path := filepath.Join(dir, "ffprobe")
	if err := os.WriteFile(path, []byte(script.String()), 0o755); err != nil {
		t.Fatalf("write ffprobe stub: %v", err)
	}
	return path
}

func writeWavFile(t *testing.T, path string, sampleRate, seconds int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           make([]int, sampleRate*seconds),
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close wav: %v", err)
	}
}

func TestProbeParsesStubOutput(t *testing.T) {
	dir := t.TempDir()
	stub := writeStubFFprobe(t, dir, stubPayload, "")
	clip := filepath.Join(dir, "clip.mp3")
	if err := os.WriteFile(clip, []byte("not real audio"), 0o644); err != nil {
		t.Fatalf("write clip: %v", err)
	}

	prober := New(Options{Binary: stub})
	info, err := prober.Probe(context.Background(), clip)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if info.DurationSeconds != 4.2 {
		t.Fatalf("duration = %v, want 4.2", info.DurationSeconds)
	}
	if info.SampleRate != 32000 {
		t.Fatalf("sample rate = %d, want 32000", info.SampleRate)
	}
	if info.Channels != 1 {
		t.Fatalf("channels = %d, want 1", info.Channels)
	}
	if info.Codec != "mp3" {
		t.Fatalf("codec = %q, want mp3", info.Codec)
	}
}

func TestProbeReadsWavHeaderWithoutSubprocess(t *testing.T) {
	dir := t.TempDir()
	// The stub fails on invocation, so success proves the header path ran.
	stub := writeStubFFprobe(t, dir, "", "")
	clip := filepath.Join(dir, "tone.wav")
	writeWavFile(t, clip, 16000, 1)

	prober := New(Options{Binary: stub})
	info, err := prober.Probe(context.Background(), clip)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if info.DurationSeconds < 0.9 || info.DurationSeconds > 1.2 {
		t.Fatalf("duration = %v, want about 1s", info.DurationSeconds)
	}
	if info.SampleRate != 16000 {
		t.Fatalf("sample rate = %d, want 16000", info.SampleRate)
	}
	if info.Channels != 1 {
		t.Fatalf("channels = %d, want 1", info.Channels)
	}
}

func TestProbeCachesResultsAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	callLog := filepath.Join(dir, "calls.log")
	stub := writeStubFFprobe(t, dir, stubPayload, callLog)
	clip := filepath.Join(dir, "clip.mp3")
	if err := os.WriteFile(clip, []byte("payload"), 0o644); err != nil {
		t.Fatalf("write clip: %v", err)
	}

	store, err := ledger.OpenPath(filepath.Join(dir, "ledger.db"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	defer store.Close()

	prober := New(Options{Binary: stub, Cache: store})
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := prober.Probe(ctx, clip); err != nil {
			t.Fatalf("probe %d: %v", i, err)
		}
	}

	calls, err := os.ReadFile(callLog)
	if err != nil {
		t.Fatalf("read call log: %v", err)
	}
	if got := strings.Count(string(calls), "called"); got != 1 {
		t.Fatalf("ffprobe invoked %d times, want 1", got)
	}
}

func TestProbeCacheInvalidatedByRewrite(t *testing.T) {
	dir := t.TempDir()
	callLog := filepath.Join(dir, "calls.log")
	stub := writeStubFFprobe(t, dir, stubPayload, callLog)
	clip := filepath.Join(dir, "clip.mp3")
	if err := os.WriteFile(clip, []byte("payload"), 0o644); err != nil {
		t.Fatalf("write clip: %v", err)
	}

	store, err := ledger.OpenPath(filepath.Join(dir, "ledger.db"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	defer store.Close()

	prober := New(Options{Binary: stub, Cache: store})
	ctx := context.Background()
	if _, err := prober.Probe(ctx, clip); err != nil {
		t.Fatalf("first probe: %v", err)
	}
	// A different size guarantees a stale cache entry even when mtime
	// granularity hides the rewrite.
	if err := os.WriteFile(clip, []byte("longer payload than before"), 0o644); err != nil {
		t.Fatalf("rewrite clip: %v", err)
	}
	if _, err := prober.Probe(ctx, clip); err != nil {
		t.Fatalf("second probe: %v", err)
	}

	calls, err := os.ReadFile(callLog)
	if err != nil {
		t.Fatalf("read call log: %v", err)
	}
	if got := strings.Count(string(calls), "called"); got != 2 {
		t.Fatalf("ffprobe invoked %d times, want 2", got)
	}
}

func TestProbeMissingFileIsMediaIO(t *testing.T) {
	prober := New(Options{Binary: "ffprobe-not-used"})
	_, err := prober.Probe(context.Background(), filepath.Join(t.TempDir(), "absent.mp3"))
	if !errors.Is(err, services.ErrMediaIO) {
		t.Fatalf("err = %v, want media io error", err)
	}
}

func TestProbeFailureIsMediaIO(t *testing.T) {
	dir := t.TempDir()
	stub := writeStubFFprobe(t, dir, "", "")
	clip := filepath.Join(dir, "clip.mp3")
	if err := os.WriteFile(clip, []byte("payload"), 0o644); err != nil {
		t.Fatalf("write clip: %v", err)
	}

	prober := New(Options{Binary: stub})
	_, err := prober.Probe(context.Background(), clip)
	if !errors.Is(err, services.ErrMediaIO) {
		t.Fatalf("err = %v, want media io error", err)
	}
}

func TestWavInfoRejectsNonWavPayload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fake.wav")
	if err := os.WriteFile(path, []byte("ID3 not riff"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := WavInfo(path); err == nil {
		t.Fatal("expected an error for a non-RIFF payload")
	}
}
