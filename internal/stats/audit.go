package stats

import (
	"sort"
	"strings"

	"corpuskit/internal/manifest"
	"corpuskit/internal/textutil"
)

// WordCountEntry is one sentence in the word-count report.
type WordCountEntry struct {
	Words    int
	Sentence string
}

// TopWords returns the n sentences with the most whitespace-separated words,
// longest first. Ties order by sentence text, descending, so the report is
// stable. Sentences with no words are ignored.
func TopWords(records []manifest.Record, n int) []WordCountEntry {
	if n <= 0 {
		return nil
	}
	entries := make([]WordCountEntry, 0, len(records))
	for _, rec := range records {
		words := textutil.CountWords(rec.Sentence)
		if words == 0 {
			continue
		}
		entries = append(entries, WordCountEntry{Words: words, Sentence: rec.Sentence})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Words != entries[j].Words {
			return entries[i].Words > entries[j].Words
		}
		return entries[i].Sentence > entries[j].Sentence
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// DupePair is a pair of transcripts judged near-duplicates.
type DupePair struct {
	SentenceA  string
	SentenceB  string
	Similarity float64
	CountA     int // rows carrying sentence A
	CountB     int
}

// NearDupes reports pairs of distinct transcripts whose TF-IDF cosine
// similarity reaches the threshold, strongest pairs first. Identical
// sentences collapse before comparison: many rows sharing one sentence is
// normal for this corpus and not a near-duplicate.
//
// The comparison is quadratic over unique sentences, which keeps it honest
// for audit-sized corpora; feed it a sampled manifest when auditing very
// large ones.
func NearDupes(records []manifest.Record, threshold float64) []DupePair {
	if threshold <= 0 || threshold > 1 {
		return nil
	}

	type sentenceGroup struct {
		text  string
		count int
		fp    *textutil.Fingerprint
	}
	seen := make(map[string]int)
	groups := make([]sentenceGroup, 0, len(records))
	for _, rec := range records {
		text := strings.TrimSpace(rec.Sentence)
		if text == "" {
			continue
		}
		key := textutil.NormalizeSentence(text)
		if idx, ok := seen[key]; ok {
			groups[idx].count++
			continue
		}
		seen[key] = len(groups)
		groups = append(groups, sentenceGroup{text: text, count: 1})
	}

	df := textutil.NewDocFrequency()
	for i := range groups {
		groups[i].fp = textutil.NewFingerprint(groups[i].text)
		df.Add(groups[i].fp)
	}
	idf := df.IDF()
	for i := range groups {
		groups[i].fp = groups[i].fp.WithIDF(idf)
	}

	var pairs []DupePair
	for i := 0; i < len(groups); i++ {
		if groups[i].fp == nil {
			continue
		}
		for j := i + 1; j < len(groups); j++ {
			if groups[j].fp == nil {
				continue
			}
			sim := textutil.CosineSimilarity(groups[i].fp, groups[j].fp)
			if sim < threshold {
				continue
			}
			pairs = append(pairs, DupePair{
				SentenceA:  groups[i].text,
				SentenceB:  groups[j].text,
				Similarity: sim,
				CountA:     groups[i].count,
				CountB:     groups[j].count,
			})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Similarity != pairs[j].Similarity {
			return pairs[i].Similarity > pairs[j].Similarity
		}
		if pairs[i].SentenceA != pairs[j].SentenceA {
			return pairs[i].SentenceA < pairs[j].SentenceA
		}
		return pairs[i].SentenceB < pairs[j].SentenceB
	})
	return pairs
}
