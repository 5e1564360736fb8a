package textutil

// CosineSimilarity computes the cosine similarity between two transcript
// fingerprints. Returns 0 if either fingerprint is nil or has zero norm.
// The dot product walks the smaller vector; near-dupe audits call this for
// every candidate pair.
func CosineSimilarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	small, large := a, b
	if len(b.tokens) < len(a.tokens) {
		small, large = b, a
	}
	var dot float64
	for token, count := range small.tokens {
		if other, ok := large.tokens[token]; ok {
			dot += count * other
		}
	}
	if dot == 0 {
		return 0
	}
	return dot / (a.norm * b.norm)
}
