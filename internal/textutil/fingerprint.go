package textutil

import (
	"math"
	"strings"
)

// Fingerprint represents a term-frequency vector for transcript similarity
// comparison.
type Fingerprint struct {
	tokens map[string]float64
	norm   float64
}

// NewFingerprint creates a fingerprint from the provided text.
// Returns nil if the text produces no valid tokens.
func NewFingerprint(text string) *Fingerprint {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	counts := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	var norm float64
	for _, count := range counts {
		norm += count * count
	}
	return &Fingerprint{
		tokens: counts,
		norm:   math.Sqrt(norm),
	}
}

// Tokenize lowercases text and splits it on runs of non-alphanumeric
// characters. Tokens shorter than three characters are dropped so stop words
// and stray initials do not dominate the vectors.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return (r < 'a' || r > 'z') && (r < '0' || r > '9')
	})
	terms := fields[:0]
	for _, token := range fields {
		if len(token) >= 3 {
			terms = append(terms, token)
		}
	}
	return terms
}

// WithIDF returns a new Fingerprint with TF-IDF weights applied.
// Each term's count is multiplied by its IDF weight. The norm is recomputed.
// Terms absent from the IDF map retain their original weight.
func (f *Fingerprint) WithIDF(idf map[string]float64) *Fingerprint {
	if f == nil || len(idf) == 0 {
		return f
	}
	weighted := make(map[string]float64, len(f.tokens))
	var norm float64
	for token, count := range f.tokens {
		w := count
		if idfVal, ok := idf[token]; ok {
			w *= idfVal
		}
		if w == 0 {
			continue
		}
		weighted[token] = w
		norm += w * w
	}
	if len(weighted) == 0 {
		return nil
	}
	return &Fingerprint{
		tokens: weighted,
		norm:   math.Sqrt(norm),
	}
}

// DocFrequency collects document frequency statistics for IDF computation.
// Each added fingerprint counts as one document.
type DocFrequency struct {
	docCount int
	docFreq  map[string]int
}

// NewDocFrequency creates an empty document frequency table.
func NewDocFrequency() *DocFrequency {
	return &DocFrequency{docFreq: make(map[string]int)}
}

// Add registers a fingerprint's unique terms.
func (d *DocFrequency) Add(fp *Fingerprint) {
	if d == nil || fp == nil {
		return
	}
	d.docCount++
	for token := range fp.tokens {
		d.docFreq[token]++
	}
}

// IDF computes inverse document frequency weights: log((N+1)/(1+df)) for each term.
func (d *DocFrequency) IDF() map[string]float64 {
	if d == nil || d.docCount == 0 {
		return nil
	}
	idf := make(map[string]float64, len(d.docFreq))
	n := float64(d.docCount)
	for term, df := range d.docFreq {
		idf[term] = math.Log((n + 1) / (1 + float64(df)))
	}
	return idf
}
