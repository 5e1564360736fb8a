package convert

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"corpuskit/internal/logging"
	"corpuskit/internal/manifest"
	"corpuskit/internal/services"
	"corpuskit/internal/transcode"
)

// writeCopyStub installs a fake ffmpeg that copies the -i argument to the
// final argument, failing when the destination name contains "bad".
func writeCopyStub(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "ffmpeg")
	script := `#!/bin/sh
in=""
out=""
prev=""
for a in "$@"; do
  if [ "$prev" = "-i" ]; then in="$a"; fi
  prev="$a"
  out="$a"
done
case "$out" in
  *bad*) echo "stub failure" >&2; exit 1 ;;
esac
cp "$in" "$out"
`
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

type importerPaths struct {
	clipsDir string
	manifest string
}

func newTestImporter(t *testing.T) (*Importer, importerPaths) {
	t.Helper()
	root := t.TempDir()
	paths := importerPaths{
		clipsDir: filepath.Join(root, "clips"),
		manifest: filepath.Join(root, "validated.tsv"),
	}
	if err := os.MkdirAll(paths.clipsDir, 0o755); err != nil {
		t.Fatalf("mkdir clips: %v", err)
	}
	tr := transcode.New(transcode.Options{
		Binary:  writeCopyStub(t, root),
		Workers: 2,
		Logger:  logging.NewNop(),
	})
	im := &Importer{
		Transcoder:   tr,
		ClipsDir:     paths.clipsDir,
		ManifestPath: paths.manifest,
		Workers:      2,
		Logger:       logging.NewNop(),
	}
	return im, paths
}

func loadRecords(t *testing.T, path string) []manifest.Record {
	t.Helper()
	corpus, err := manifest.Load(path, logging.NewNop())
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	return corpus.Records
}

func writeSource(t *testing.T, dir, name, payload string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return path
}

func TestFormatSentence(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"  HELLO WORLD  ", "Hello world"},
		{"MIXED Case TEXT", "Mixed case text"},
		{"already fine", "Already fine"},
		{"éclair au café", "Éclair au café"},
		{"   ", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := FormatSentence(tc.in); got != tc.want {
			t.Errorf("FormatSentence(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestImportAppendsRowsInItemOrder(t *testing.T) {
	im, paths := newTestImporter(t)
	srcDir := t.TempDir()
	items := []Item{
		{ClipName: "spk1_a.mp3", Sentence: "First sentence", SourcePath: writeSource(t, srcDir, "a.wav", "payload-a")},
		{ClipName: "spk1_b.mp3", Sentence: "Second sentence", SourcePath: writeSource(t, srcDir, "b.wav", "payload-b")},
		{ClipName: "spk2_c.mp3", Sentence: "Third sentence", SourcePath: writeSource(t, srcDir, "c.wav", "payload-c")},
	}

	result, err := im.Import(context.Background(), items)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if result.Imported != 3 || result.Skipped != 0 || result.Failed != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	records := loadRecords(t, paths.manifest)
	if len(records) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(records))
	}
	for i, item := range items {
		rec := records[i]
		if rec.Path != item.ClipName {
			t.Errorf("record %d path = %q, want %q", i, rec.Path, item.ClipName)
		}
		if rec.Sentence != item.Sentence {
			t.Errorf("record %d sentence = %q, want %q", i, rec.Sentence, item.Sentence)
		}
		if len(rec.ClientID) != 128 {
			t.Errorf("record %d client_id length = %d, want 128", i, len(rec.ClientID))
		}
		if len(rec.SentenceID) != 64 {
			t.Errorf("record %d sentence_id length = %d, want 64", i, len(rec.SentenceID))
		}
		if rec.UpVotes != "2" || rec.DownVotes != "0" {
			t.Errorf("record %d votes = %s/%s, want 2/0", i, rec.UpVotes, rec.DownVotes)
		}
		if rec.Locale != "en" {
			t.Errorf("record %d locale = %q, want en", i, rec.Locale)
		}
	}
}

func TestImportRerunSkipsExistingClips(t *testing.T) {
	im, paths := newTestImporter(t)
	srcDir := t.TempDir()
	items := []Item{
		{ClipName: "spk1_a.mp3", Sentence: "First sentence", SourcePath: writeSource(t, srcDir, "a.wav", "payload-a")},
		{ClipName: "spk1_b.mp3", Sentence: "Second sentence", SourcePath: writeSource(t, srcDir, "b.wav", "payload-b")},
	}

	if _, err := im.Import(context.Background(), items); err != nil {
		t.Fatalf("first import: %v", err)
	}
	result, err := im.Import(context.Background(), items)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if result.Imported != 0 || result.Skipped != 2 {
		t.Fatalf("rerun result = %+v, want all skipped", result)
	}
	if records := loadRecords(t, paths.manifest); len(records) != 2 {
		t.Fatalf("manifest grew to %d rows on rerun, want 2", len(records))
	}
}

func TestImportCountsFailuresAndKeepsGoing(t *testing.T) {
	im, paths := newTestImporter(t)
	srcDir := t.TempDir()
	items := []Item{
		{ClipName: "spk1_a.mp3", Sentence: "First sentence", SourcePath: writeSource(t, srcDir, "a.wav", "payload-a")},
		{ClipName: "spk1_bad.mp3", Sentence: "Doomed sentence", SourcePath: writeSource(t, srcDir, "b.wav", "payload-b")},
		{ClipName: "spk2_c.mp3", Sentence: "Third sentence", SourcePath: writeSource(t, srcDir, "c.wav", "payload-c")},
	}

	result, err := im.Import(context.Background(), items)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if result.Imported != 2 || result.Failed != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(result.Examples) != 1 || !strings.Contains(result.Examples[0], "spk1_bad.mp3") {
		t.Fatalf("examples = %v", result.Examples)
	}
	records := loadRecords(t, paths.manifest)
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	for _, rec := range records {
		if rec.Path == "spk1_bad.mp3" {
			t.Fatal("failed clip must not get a manifest row")
		}
	}
}

func TestImportEmptyItemList(t *testing.T) {
	im, paths := newTestImporter(t)
	result, err := im.Import(context.Background(), nil)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if result.Imported != 0 || result.Skipped != 0 || result.Failed != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if _, err := os.Stat(paths.manifest); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("empty import must not create the manifest")
	}
}

func TestScanSpeechOceanPairsWavsWithTranscripts(t *testing.T) {
	root := t.TempDir()
	mustWrite := func(rel, content string) {
		t.Helper()
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	mustWrite(filepath.Join("WAVE", "SPEAKER0001", "000010011.WAV"), "wav-one")
	mustWrite(filepath.Join("WAVE", "0002", "000020044.wav"), "wav-two")
	mustWrite(filepath.Join("WAVE", "SPEAKER0001", "000010099.WAV"), "wav-orphan")
	mustWrite(filepath.Join("train", "text"), "000010011 WE CALL IT BEAR\n\n")
	mustWrite(filepath.Join("test", "text"), "000020044\tNICE DAY TODAY\n")

	items, missing, err := ScanSpeechOcean(root)
	if err != nil {
		t.Fatalf("ScanSpeechOcean: %v", err)
	}
	if missing != 1 {
		t.Fatalf("missing = %d, want 1", missing)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	// Glob results are path-sorted, so the 0002 speaker comes first.
	if items[0].ClipName != "SPEAKER0002_000020044.mp3" {
		t.Errorf("items[0].ClipName = %q", items[0].ClipName)
	}
	if items[0].Sentence != "Nice day today" {
		t.Errorf("items[0].Sentence = %q", items[0].Sentence)
	}
	if items[1].ClipName != "SPEAKER0001_000010011.mp3" {
		t.Errorf("items[1].ClipName = %q", items[1].ClipName)
	}
	if items[1].Sentence != "We call it bear" {
		t.Errorf("items[1].Sentence = %q", items[1].Sentence)
	}
}

func TestScanSpeechOceanRequiresTranscriptIndex(t *testing.T) {
	root := t.TempDir()
	wav := filepath.Join(root, "WAVE", "SPEAKER0001", "000010011.WAV")
	if err := os.MkdirAll(filepath.Dir(wav), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(wav, []byte("wav"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, _, err := ScanSpeechOcean(root)
	if !errors.Is(err, services.ErrPrecondition) {
		t.Fatalf("err = %v, want precondition failure", err)
	}
}

func TestScanL2ArcticKeepsTranscriptVerbatim(t *testing.T) {
	root := t.TempDir()
	mustWrite := func(rel, content string) {
		t.Helper()
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	mustWrite(filepath.Join("ABA", "wav", "arctic_a0001.wav"), "wav-one")
	mustWrite(filepath.Join("ABA", "transcript", "arctic_a0001.txt"),
		"Author of the danger trail, Philip Steels, etc.\n")
	mustWrite(filepath.Join("YBAA", "wav", "arctic_a0002.wav"), "wav-two")
	mustWrite(filepath.Join("YBAA", "transcript", "arctic_a0002.txt"), "   \n")
	mustWrite(filepath.Join("ZHAA", "wav", "arctic_a0003.wav"), "wav-three")

	items, missing, err := ScanL2Arctic(root)
	if err != nil {
		t.Fatalf("ScanL2Arctic: %v", err)
	}
	if missing != 2 {
		t.Fatalf("missing = %d, want 2", missing)
	}
	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(items))
	}
	if items[0].ClipName != "ABA_arctic_a0001.mp3" {
		t.Errorf("ClipName = %q", items[0].ClipName)
	}
	// L2-Arctic prompts keep their original casing and punctuation.
	if items[0].Sentence != "Author of the danger trail, Philip Steels, etc." {
		t.Errorf("Sentence = %q", items[0].Sentence)
	}
}

func TestScanL2ArcticRequiresSpeakerTree(t *testing.T) {
	_, _, err := ScanL2Arctic(t.TempDir())
	if !errors.Is(err, services.ErrPrecondition) {
		t.Fatalf("err = %v, want precondition failure", err)
	}
}
