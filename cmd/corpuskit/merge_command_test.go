package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"corpuskit/internal/testsupport"
)

// seedIncoming builds a second corpus in the merge source layout under
// baseDir/incoming and returns its root.
func seedIncoming(t *testing.T, env *cliTestEnv, rows [][2]string) string {
	t.Helper()
	incomingCfg := *env.cfg
	incomingCfg.Corpus.Root = filepath.Join(env.baseDir, "incoming")
	testsupport.SeedCorpus(t, &incomingCfg, rows)
	return incomingCfg.Corpus.Root
}

func TestMergeAddsNewRowsAndCopiesClips(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.SeedCorpus(t, env.cfg, seedRows(2))
	incoming := seedIncoming(t, env, [][2]string{
		{"inc00.mp3", "An entirely new first sentence"},
		{"inc01.mp3", "An entirely new second sentence"},
	})

	stdout, _, err := runCLI(t, env, "merge", incoming)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	requireContains(t, stdout, "New rows: 2")

	merged := loadPart(t, env.cfg.ManifestPath())
	if merged.Len() != 4 {
		t.Fatalf("manifest rows = %d, want 4", merged.Len())
	}
	for _, name := range []string{"inc00.mp3", "inc01.mp3"} {
		if _, err := os.Stat(filepath.Join(env.cfg.ClipsPath(), name)); err != nil {
			t.Fatalf("clip %s not copied: %v", name, err)
		}
	}
}

func TestMergeSkipsDuplicateClipNames(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.SeedCorpus(t, env.cfg, seedRows(2))
	incoming := seedIncoming(t, env, [][2]string{
		{"clip00.mp3", "Shares a filename with the primary corpus"},
		{"inc00.mp3", "An entirely new sentence for merging"},
	})

	stdout, _, err := runCLI(t, env, "merge", incoming)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	requireContains(t, stdout, "1 duplicates")
	requireContains(t, stdout, "New rows: 1")

	merged := loadPart(t, env.cfg.ManifestPath())
	if merged.Len() != 3 {
		t.Fatalf("manifest rows = %d, want 3", merged.Len())
	}
}

func TestMergeDisqualifiesShortSentences(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.SeedCorpus(t, env.cfg, seedRows(1))
	incoming := seedIncoming(t, env, [][2]string{
		{"inc00.mp3", "Too short"},
		{"inc01.mp3", "This sentence is long enough to keep"},
	})

	stdout, _, err := runCLI(t, env, "merge", incoming)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	requireContains(t, stdout, "1 disqualified")
	requireContains(t, stdout, "New rows: 1")
}

func TestMergeSampleLimitsAdditions(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.SeedCorpus(t, env.cfg, seedRows(1))
	incoming := seedIncoming(t, env, [][2]string{
		{"inc00.mp3", "First candidate sentence for sampling"},
		{"inc01.mp3", "Second candidate sentence for sampling"},
		{"inc02.mp3", "Third candidate sentence for sampling"},
		{"inc03.mp3", "Fourth candidate sentence for sampling"},
	})

	stdout, _, err := runCLI(t, env, "merge", incoming, "--sample", "2")
	if err != nil {
		t.Fatalf("merge --sample: %v", err)
	}
	requireContains(t, stdout, "New rows: 2")

	merged := loadPart(t, env.cfg.ManifestPath())
	if merged.Len() != 3 {
		t.Fatalf("manifest rows = %d, want 3", merged.Len())
	}
}

func TestMergeDryRunLeavesPrimaryUntouched(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.SeedCorpus(t, env.cfg, seedRows(2))
	incoming := seedIncoming(t, env, [][2]string{
		{"inc00.mp3", "An entirely new sentence for merging"},
	})

	stdout, _, err := runCLI(t, env, "merge", incoming, "--dry-run")
	if err != nil {
		t.Fatalf("merge --dry-run: %v", err)
	}
	requireContains(t, stdout, "New rows: 1")
	requireContains(t, stdout, "Dry run")

	merged := loadPart(t, env.cfg.ManifestPath())
	if merged.Len() != 2 {
		t.Fatalf("dry run changed the manifest: %d rows", merged.Len())
	}
	if _, err := os.Stat(filepath.Join(env.cfg.ClipsPath(), "inc00.mp3")); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("dry run copied a clip")
	}
}

func TestMergeRequiresIncomingLayout(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.SeedCorpus(t, env.cfg, seedRows(1))

	_, _, err := runCLI(t, env, "merge", filepath.Join(env.baseDir, "nope"))
	if err == nil {
		t.Fatal("expected a missing incoming corpus to fail validation")
	}
	requireContains(t, err.Error(), "does not exist")
}
