package clips

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"corpuskit/internal/logging"
	"corpuskit/internal/services"
)

func populate(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("audio "+name), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestListFlatAndSorted(t *testing.T) {
	dir := t.TempDir()
	populate(t, dir, "b.mp3", "a.mp3", "c.mp3")
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	populate(t, filepath.Join(dir, "nested"), "hidden.mp3")

	names, err := List(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a.mp3", "b.mp3", "c.mp3"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
}

func TestListMissingDirIsPrecondition(t *testing.T) {
	_, err := List(filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, services.ErrPrecondition) {
		t.Fatalf("err = %v, want precondition", err)
	}
}

func TestDeleteRemovesAndCounts(t *testing.T) {
	dir := t.TempDir()
	populate(t, dir, "a.mp3", "b.mp3", "keep.mp3")

	result, err := Delete(dir, []string{"a.mp3", "b.mp3", "already-gone.mp3"}, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	// A clip already absent counts as success: the goal state is reached.
	if result.Succeeded != 3 || result.Failed != 0 {
		t.Fatalf("result = %+v", result)
	}

	names, err := List(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || names[0] != "keep.mp3" {
		t.Fatalf("remaining = %v", names)
	}
}

func TestDeleteCollectsPerFileFailures(t *testing.T) {
	dir := t.TempDir()
	populate(t, dir, "ok.mp3")
	// A non-empty directory cannot be removed with os.Remove.
	blocked := filepath.Join(dir, "blocked.mp3")
	if err := os.Mkdir(blocked, 0o755); err != nil {
		t.Fatal(err)
	}
	populate(t, blocked, "inner")

	result, err := Delete(dir, []string{"ok.mp3", "blocked.mp3"}, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if result.Succeeded != 1 || result.Failed != 1 {
		t.Fatalf("result = %+v", result)
	}
	if len(result.Examples) != 1 {
		t.Fatalf("examples = %v", result.Examples)
	}
}

func TestDeleteRejectsEscapingNames(t *testing.T) {
	dir := t.TempDir()
	outside := filepath.Join(t.TempDir(), "victim.mp3")
	if err := os.WriteFile(outside, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := Delete(dir, []string{"../victim.mp3", ".."}, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if result.Failed != 2 {
		t.Fatalf("result = %+v", result)
	}
	if _, err := os.Stat(outside); err != nil {
		t.Fatal("file outside the store must survive")
	}
}

func TestDeleteMissingDirIsPrecondition(t *testing.T) {
	_, err := Delete(filepath.Join(t.TempDir(), "nope"), []string{"a.mp3"}, logging.NewNop())
	if !errors.Is(err, services.ErrPrecondition) {
		t.Fatalf("err = %v, want precondition", err)
	}
}

func TestCopyVerifiesContent(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	populate(t, src, "a.mp3", "b.mp3")

	result, err := Copy(src, dst, []string{"a.mp3", "b.mp3", "missing.mp3"}, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if result.Succeeded != 2 || result.Failed != 1 {
		t.Fatalf("result = %+v", result)
	}

	data, err := os.ReadFile(filepath.Join(dst, "a.mp3"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "audio a.mp3" {
		t.Fatalf("content = %q", data)
	}
}

func TestCopyMissingDirsArePreconditions(t *testing.T) {
	ok := t.TempDir()
	missing := filepath.Join(t.TempDir(), "nope")

	if _, err := Copy(missing, ok, nil, logging.NewNop()); !errors.Is(err, services.ErrPrecondition) {
		t.Fatalf("missing src: err = %v", err)
	}
	if _, err := Copy(ok, missing, nil, logging.NewNop()); !errors.Is(err, services.ErrPrecondition) {
		t.Fatalf("missing dst: err = %v", err)
	}
}
