package main

import (
	"os"
	"path/filepath"
	"testing"

	"corpuskit/internal/testsupport"
)

func TestCheckReportsOrphansAndMissingWithoutMutating(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.SeedCorpus(t, env.cfg, seedRows(3))

	orphan := filepath.Join(env.cfg.ClipsPath(), "orphan.mp3")
	if err := os.WriteFile(orphan, []byte("stray"), 0o644); err != nil {
		t.Fatalf("write orphan: %v", err)
	}
	if err := os.Remove(filepath.Join(env.cfg.ClipsPath(), "clip02.mp3")); err != nil {
		t.Fatalf("remove clip: %v", err)
	}

	stdout, _, err := runCLI(t, env, "check")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	requireContains(t, stdout, "Rows: 3")
	requireContains(t, stdout, "Orphan clips: 1")
	requireContains(t, stdout, "orphan.mp3")
	requireContains(t, stdout, "Rows with missing clips: 1")
	requireContains(t, stdout, "clip02.mp3")

	// Findings are reported, never repaired.
	if _, err := os.Stat(orphan); err != nil {
		t.Fatalf("check removed the orphan: %v", err)
	}
	if loadPart(t, env.cfg.ManifestPath()).Len() != 3 {
		t.Fatal("check changed the manifest")
	}
}

func TestCheckTopWordsTable(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.SeedCorpus(t, env.cfg, [][2]string{
		{"a.mp3", "Short sentence here"},
		{"b.mp3", "A noticeably longer sentence with several extra words in it"},
		{"c.mp3", "Another middling sentence for counting words"},
	})

	stdout, _, err := runCLI(t, env, "check", "--words=2")
	if err != nil {
		t.Fatalf("check --words: %v", err)
	}
	requireContains(t, stdout, "Words")
	requireContains(t, stdout, "A noticeably longer sentence")
}

func TestCheckNearDupesTable(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.SeedCorpus(t, env.cfg, [][2]string{
		{"a.mp3", "The quick brown fox jumps over the lazy dog"},
		{"b.mp3", "The quick brown fox jumps over the lazy cat"},
		{"c.mp3", "Completely unrelated material about corpus tooling"},
	})

	stdout, _, err := runCLI(t, env, "check", "--near-dupes=0.5")
	if err != nil {
		t.Fatalf("check --near-dupes: %v", err)
	}
	requireContains(t, stdout, "Similarity")
	requireContains(t, stdout, "quick brown fox")
}

func TestCheckRequiresManifest(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env, "check")
	if err == nil {
		t.Fatal("expected a missing manifest to fail validation")
	}
	requireContains(t, err.Error(), "does not exist")
}
