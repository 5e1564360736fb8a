package reconcile

import (
	"math/rand"

	"corpuskit/internal/manifest"
)

// Sample selects min(count, N) records uniformly at random without
// replacement, seeded for reproducibility. When count exceeds half the
// corpus it samples the complement (the indices to drop) instead, which
// keeps the tracked set small. The result preserves the source record
// order.
func Sample(corpus *manifest.Corpus, count int, seed int64) *manifest.Corpus {
	n := corpus.Len()
	if count <= 0 {
		return &manifest.Corpus{Path: corpus.Path}
	}
	if count >= n {
		out := &manifest.Corpus{Path: corpus.Path, Records: make([]manifest.Record, n)}
		copy(out.Records, corpus.Records)
		return out
	}

	rng := rand.New(rand.NewSource(seed))

	invert := count > n/2
	k := count
	if invert {
		k = n - count
	}
	chosen := pickIndices(rng, n, k)

	out := &manifest.Corpus{Path: corpus.Path, Records: make([]manifest.Record, 0, count)}
	for i, rec := range corpus.Records {
		_, hit := chosen[i]
		if hit != invert {
			out.Records = append(out.Records, rec)
		}
	}
	return out
}

// pickIndices draws a uniform k-subset of [0, n) using Floyd's sampling
// algorithm.
func pickIndices(rng *rand.Rand, n, k int) map[int]struct{} {
	chosen := make(map[int]struct{}, k)
	for i := n - k; i < n; i++ {
		j := rng.Intn(i + 1)
		if _, taken := chosen[j]; taken {
			chosen[i] = struct{}{}
		} else {
			chosen[j] = struct{}{}
		}
	}
	return chosen
}
