package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"corpuskit/internal/logging"
	"corpuskit/internal/services"
)

const header = "client_id\tpath\tsentence_id\tsentence\tsentence_domain\tup_votes\tdown_votes\tage\tgender\taccents\tvariant\tlocale\tsegment"

func writeManifest(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "validated.tsv")
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func row(clientID, clip, sentence string) string {
	fields := make([]string, len(Columns))
	fields[0] = clientID
	fields[1] = clip
	fields[3] = sentence
	fields[5] = "2"
	fields[6] = "0"
	fields[11] = "en"
	return strings.Join(fields, "\t")
}

func TestLoadKeepsFileOrder(t *testing.T) {
	path := writeManifest(t, header,
		row("c1", "one.mp3", "first sentence"),
		row("c2", "two.mp3", "second sentence"),
		row("c3", "three.mp3", "third sentence"),
	)

	corpus, err := Load(path, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if corpus.Len() != 3 {
		t.Fatalf("Len = %d, want 3", corpus.Len())
	}
	want := []string{"one.mp3", "two.mp3", "three.mp3"}
	for i, name := range corpus.ClipNames() {
		if name != want[i] {
			t.Errorf("record %d clip = %q, want %q", i, name, want[i])
		}
	}
	if corpus.Records[1].Sentence != "second sentence" {
		t.Errorf("sentence = %q", corpus.Records[1].Sentence)
	}
	if corpus.Skipped != 0 {
		t.Errorf("Skipped = %d, want 0", corpus.Skipped)
	}
}

func TestLoadSkipsMalformedRows(t *testing.T) {
	path := writeManifest(t, header,
		row("c1", "one.mp3", "kept"),
		"only\tthree\tfields",
		row("c2", "two.mp3", "also kept"),
		strings.Repeat("x\t", len(Columns))+"extra",
	)

	corpus, err := Load(path, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if corpus.Len() != 2 {
		t.Fatalf("Len = %d, want 2", corpus.Len())
	}
	if corpus.Skipped != 2 {
		t.Fatalf("Skipped = %d, want 2", corpus.Skipped)
	}
}

func TestLoadPadsShortRows(t *testing.T) {
	path := writeManifest(t, header, "c1\tone.mp3\tsid\tthe sentence")

	corpus, err := Load(path, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if corpus.Len() != 1 {
		t.Fatalf("Len = %d, want 1", corpus.Len())
	}
	rec := corpus.Records[0]
	if rec.Sentence != "the sentence" {
		t.Errorf("Sentence = %q", rec.Sentence)
	}
	if rec.Locale != "" || rec.Segment != "" {
		t.Errorf("tail columns should be empty, got locale=%q segment=%q", rec.Locale, rec.Segment)
	}
}

func TestLoadRejectsBadHeader(t *testing.T) {
	path := writeManifest(t, "path\tclient_id\tsentence_id\tsentence", "a\tb\tc\td")

	_, err := Load(path, logging.NewNop())
	if !errors.Is(err, services.ErrSchema) {
		t.Fatalf("err = %v, want schema error", err)
	}
}

func TestLoadRejectsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.tsv")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path, logging.NewNop())
	if !errors.Is(err, services.ErrSchema) {
		t.Fatalf("err = %v, want schema error", err)
	}
}

func TestLoadMissingManifestIsPrecondition(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.tsv"), logging.NewNop())
	if !errors.Is(err, services.ErrPrecondition) {
		t.Fatalf("err = %v, want precondition error", err)
	}
}

func TestLoadIgnoresBlankLines(t *testing.T) {
	path := writeManifest(t, header, row("c1", "one.mp3", "kept"), "", row("c2", "two.mp3", "kept too"))

	corpus, err := Load(path, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if corpus.Len() != 2 || corpus.Skipped != 0 {
		t.Fatalf("Len = %d Skipped = %d", corpus.Len(), corpus.Skipped)
	}
}

func TestWriteLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.tsv")

	original := &Corpus{Records: []Record{
		NewRecord("c1", "one.mp3", "First sentence.", "en"),
		NewRecord("c2", "two.mp3", "Second sentence.", "de"),
	}}
	original.Records[0].SentenceID = "sid-1"
	original.Records[0].Gender = "female_feminine"

	if err := Write(path, original); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Len() != original.Len() {
		t.Fatalf("Len = %d, want %d", loaded.Len(), original.Len())
	}
	for i := range original.Records {
		if loaded.Records[i] != original.Records[i] {
			t.Errorf("record %d mismatch: %+v vs %+v", i, loaded.Records[i], original.Records[i])
		}
	}
}

func TestWriteCleansEmbeddedTabs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.tsv")
	corpus := &Corpus{Records: []Record{
		NewRecord("c1", "one.mp3", "has\ttab and\nnewline", "en"),
	}}

	if err := Write(path, corpus); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Len() != 1 {
		t.Fatalf("Len = %d, want 1 (embedded separators must not split the row)", loaded.Len())
	}
	if loaded.Records[0].Sentence != "has tab and newline" {
		t.Errorf("Sentence = %q", loaded.Records[0].Sentence)
	}
}

func TestWriteReplacesExistingAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.tsv")
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Write(path, &Corpus{Records: []Record{NewRecord("c1", "one.mp3", "text", "en")}}); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("stray temp files: %v", entries)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "client_id\t") {
		t.Fatalf("missing header: %q", data)
	}
}

func TestAppendCreatesWithHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streamed.tsv")

	if err := Append(path, []Record{NewRecord("c1", "one.mp3", "first", "en")}); err != nil {
		t.Fatal(err)
	}
	if err := Append(path, []Record{NewRecord("c2", "two.mp3", "second", "en")}); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Len() != 2 {
		t.Fatalf("Len = %d, want 2", loaded.Len())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(string(data), "client_id\t") != 1 {
		t.Fatalf("header should appear exactly once:\n%s", data)
	}
}

func TestNewRecordDefaults(t *testing.T) {
	rec := NewRecord("cid", "clip.mp3", "text", "")
	if rec.UpVotes != "2" || rec.DownVotes != "0" || rec.Locale != "en" {
		t.Fatalf("defaults wrong: %+v", rec)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	original := &Corpus{Records: []Record{NewRecord("c1", "one.mp3", "text", "en")}}
	clone := original.Clone()
	clone.Records[0].Sentence = "changed"
	if original.Records[0].Sentence != "text" {
		t.Fatal("Clone should not share backing storage")
	}
}
