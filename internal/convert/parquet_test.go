package convert

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"

	"corpuskit/internal/services"
)

func writeShard(t *testing.T, path string, rows []shardRow) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create shard: %v", err)
	}
	w := parquet.NewGenericWriter[shardRow](f)
	if _, err := w.Write(rows); err != nil {
		t.Fatalf("write shard rows: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close shard writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close shard file: %v", err)
	}
}

func TestParquetShardsListsDirectorySorted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"train-00001-of-00804.parquet", "test-00000-of-00009.parquet", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	shards, err := ParquetShards(dir)
	if err != nil {
		t.Fatalf("ParquetShards: %v", err)
	}
	if len(shards) != 2 {
		t.Fatalf("len(shards) = %d, want 2", len(shards))
	}
	if filepath.Base(shards[0]) != "test-00000-of-00009.parquet" {
		t.Errorf("shards[0] = %s", shards[0])
	}
	if filepath.Base(shards[1]) != "train-00001-of-00804.parquet" {
		t.Errorf("shards[1] = %s", shards[1])
	}
}

func TestParquetShardsAcceptsSingleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test-00000-of-00009.parquet")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	shards, err := ParquetShards(path)
	if err != nil {
		t.Fatalf("ParquetShards: %v", err)
	}
	if len(shards) != 1 || shards[0] != path {
		t.Fatalf("shards = %v", shards)
	}
}

func TestParquetShardsRejectsEmptyDirectory(t *testing.T) {
	_, err := ParquetShards(t.TempDir())
	if !errors.Is(err, services.ErrPrecondition) {
		t.Fatalf("err = %v, want precondition failure", err)
	}
}

func TestImportParquetShardsStreamsRows(t *testing.T) {
	im, paths := newTestImporter(t)
	shardDir := t.TempDir()
	shard := filepath.Join(shardDir, "test-00000-of-00009.parquet")
	writeShard(t, shard, []shardRow{
		{Audio: shardAudio{Bytes: []byte("RIFFfake-wav-one"), Path: "a.wav"}, Text: "HELLO FROM SHARD"},
		{Audio: shardAudio{Bytes: []byte("fLaCfake-flac-two"), Path: "b.flac"}, Text: "SECOND ROW"},
		{Audio: shardAudio{Bytes: nil, Path: "c.flac"}, Text: "no audio here"},
		{Audio: shardAudio{Bytes: []byte("RIFFfake-wav-four"), Path: "d.wav"}, Text: "   "},
	})

	result, err := im.ImportParquetShards(context.Background(), []string{shard})
	if err != nil {
		t.Fatalf("ImportParquetShards: %v", err)
	}
	if result.Imported != 2 || result.Missing != 2 || result.Failed != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	records := loadRecords(t, paths.manifest)
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	if records[0].Sentence != "Hello from shard" {
		t.Errorf("records[0].Sentence = %q", records[0].Sentence)
	}
	if records[1].Sentence != "Second row" {
		t.Errorf("records[1].Sentence = %q", records[1].Sentence)
	}
	for i, rec := range records {
		if !strings.HasPrefix(rec.Path, "people_speech_") || !strings.HasSuffix(rec.Path, ".mp3") {
			t.Errorf("records[%d].Path = %q, want people_speech_<id>.mp3", i, rec.Path)
		}
		if _, err := os.Stat(filepath.Join(paths.clipsDir, rec.Path)); err != nil {
			t.Errorf("clip %s missing: %v", rec.Path, err)
		}
	}

	// A second pass over the same shard must skip every clip it already
	// produced, proving the derived names are stable.
	again, err := im.ImportParquetShards(context.Background(), []string{shard})
	if err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if again.Imported != 0 || again.Skipped != 2 {
		t.Fatalf("rerun result = %+v, want all skipped", again)
	}
	if records := loadRecords(t, paths.manifest); len(records) != 2 {
		t.Fatalf("manifest grew to %d rows on rerun", len(records))
	}
}

func TestImportParquetShardsCountsUnreadableShard(t *testing.T) {
	im, paths := newTestImporter(t)
	dir := t.TempDir()
	good := filepath.Join(dir, "test-00001-of-00009.parquet")
	writeShard(t, good, []shardRow{
		{Audio: shardAudio{Bytes: []byte("RIFFok"), Path: "a.wav"}, Text: "STILL STANDING"},
	})
	junk := filepath.Join(dir, "test-00000-of-00009.parquet")
	if err := os.WriteFile(junk, []byte("not a parquet file"), 0o644); err != nil {
		t.Fatalf("write junk: %v", err)
	}

	result, err := im.ImportParquetShards(context.Background(), []string{junk, good})
	if err != nil {
		t.Fatalf("ImportParquetShards: %v", err)
	}
	if result.Failed == 0 {
		t.Fatal("junk shard must count as a failure")
	}
	if result.Imported != 1 {
		t.Fatalf("Imported = %d, want 1 from the readable shard", result.Imported)
	}
	if records := loadRecords(t, paths.manifest); len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
}

func TestPayloadExtSniffsHeaders(t *testing.T) {
	cases := []struct {
		data []byte
		path string
		want string
	}{
		{[]byte("fLaC...."), "x", ".flac"},
		{[]byte("RIFF1234WAVE"), "x", ".wav"},
		{[]byte("OggSxxxx"), "x", ".ogg"},
		{[]byte("????"), "clip.opus", ".opus"},
		{[]byte("????"), "noext", ".flac"},
	}
	for _, tc := range cases {
		if got := payloadExt(tc.data, tc.path); got != tc.want {
			t.Errorf("payloadExt(%q, %q) = %q, want %q", tc.data, tc.path, got, tc.want)
		}
	}
}
