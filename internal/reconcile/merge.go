package reconcile

import (
	"strings"

	"corpuskit/internal/manifest"
)

// MergeOptions selects which keys participate in duplicate detection.
type MergeOptions struct {
	// ByClip skips incoming records whose clip filename already exists.
	ByClip bool
	// BySentence skips incoming records whose trimmed sentence already
	// exists. Empty sentences never match each other.
	BySentence bool
}

// DefaultMergeOptions enables both duplicate checks.
func DefaultMergeOptions() MergeOptions {
	return MergeOptions{ByClip: true, BySentence: true}
}

// Merge appends incoming records to primary, skipping duplicates by clip
// filename and/or trimmed sentence, including records that duplicate an
// earlier addition from the same incoming batch. Comparison is exact after
// trimming; no fuzzy matching. Returns the merged corpus, the records
// actually added (the caller copies exactly those clips), and the number of
// duplicates skipped.
func Merge(primary, incoming *manifest.Corpus, opts MergeOptions) (*manifest.Corpus, []manifest.Record, int) {
	merged := primary.Clone()
	if merged == nil {
		merged = &manifest.Corpus{}
	}

	seenClip := make(map[string]struct{}, merged.Len())
	seenText := make(map[string]struct{}, merged.Len())
	if opts.ByClip || opts.BySentence {
		for _, rec := range merged.Records {
			if opts.ByClip {
				seenClip[rec.Path] = struct{}{}
			}
			if opts.BySentence {
				if text := strings.TrimSpace(rec.Sentence); text != "" {
					seenText[text] = struct{}{}
				}
			}
		}
	}

	var added []manifest.Record
	duplicates := 0
	for _, rec := range incoming.Records {
		text := strings.TrimSpace(rec.Sentence)

		duplicate := false
		if opts.ByClip {
			if _, ok := seenClip[rec.Path]; ok {
				duplicate = true
			}
		}
		if !duplicate && opts.BySentence && text != "" {
			if _, ok := seenText[text]; ok {
				duplicate = true
			}
		}
		if duplicate {
			duplicates++
			continue
		}

		merged.Records = append(merged.Records, rec)
		added = append(added, rec)
		if opts.ByClip {
			seenClip[rec.Path] = struct{}{}
		}
		if opts.BySentence && text != "" {
			seenText[text] = struct{}{}
		}
	}
	return merged, added, duplicates
}
