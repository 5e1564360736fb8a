// Package reconcile implements the pure transformations over manifest
// corpora: disqualification filtering, manifest/store reconciliation, merge
// with deduplication, deterministic splitting, and seeded sampling. Nothing
// in this package touches the filesystem; callers apply the returned
// differences.
package reconcile

import (
	"corpuskit/internal/manifest"
	"corpuskit/internal/textutil"
)

// FilterDisqualified removes records that cannot be used for training:
// empty or whitespace-only sentences always, and sentences shorter than
// minWords words when minWords > 0. Returns the surviving corpus and the clip
// filenames of removed records so callers can delete the audio too.
func FilterDisqualified(corpus *manifest.Corpus, minWords int) (*manifest.Corpus, []string) {
	filtered := &manifest.Corpus{Path: corpus.Path}
	var removed []string
	for _, rec := range corpus.Records {
		words := textutil.CountWords(rec.Sentence)
		if words == 0 || (minWords > 0 && words < minWords) {
			removed = append(removed, rec.Path)
			continue
		}
		filtered.Records = append(filtered.Records, rec)
	}
	return filtered, removed
}

// ReconcileWithStore computes the difference between a corpus and the clip
// files actually on disk. Orphans are stored files no retained record
// references; missing are clip names referenced by records with no backing
// file, and those records are dropped from the returned corpus. The function
// is a pure set computation: rerunning it on its own output (with orphans
// deleted from the listing) yields two empty sets.
func ReconcileWithStore(corpus *manifest.Corpus, storeListing []string) (*manifest.Corpus, []string, []string) {
	present := make(map[string]struct{}, len(storeListing))
	for _, name := range storeListing {
		present[name] = struct{}{}
	}

	retained := &manifest.Corpus{Path: corpus.Path}
	referenced := make(map[string]struct{}, corpus.Len())
	var missing []string
	missingSeen := make(map[string]struct{})
	for _, rec := range corpus.Records {
		if _, ok := present[rec.Path]; !ok {
			if _, dup := missingSeen[rec.Path]; !dup {
				missingSeen[rec.Path] = struct{}{}
				missing = append(missing, rec.Path)
			}
			continue
		}
		referenced[rec.Path] = struct{}{}
		retained.Records = append(retained.Records, rec)
	}

	var orphans []string
	for _, name := range storeListing {
		if _, ok := referenced[name]; !ok {
			orphans = append(orphans, name)
		}
	}
	return retained, orphans, missing
}
