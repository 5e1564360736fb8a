package reconcile

import (
	"fmt"
	"math"
	"math/rand"

	"corpuskit/internal/manifest"
	"corpuskit/internal/services"
)

// TrainSplit is the implicit split that absorbs every record not assigned to
// a configured split.
const TrainSplit = "train"

// Ratio names a split and the fraction of records it should receive. The
// slice form keeps assignment order explicit and stable, which matters
// because earlier splits consume the front of the shuffled sequence.
type Ratio struct {
	Name  string
	Value float64
}

// ValidateRatios rejects configurations before any processing: negative
// values, values of 1.0 or more, a combined fraction of 1.0 or more (train
// must absorb a positive remainder), duplicate names, and an explicit
// "train" entry.
func ValidateRatios(ratios []Ratio) error {
	seen := make(map[string]struct{}, len(ratios))
	sum := 0.0
	for _, ratio := range ratios {
		if ratio.Name == TrainSplit {
			return services.Wrap(services.ErrInvalidRatio, "", "validate ratios",
				"The train split takes the remainder and cannot carry its own ratio", nil)
		}
		if _, dup := seen[ratio.Name]; dup {
			return services.Wrap(services.ErrInvalidRatio, "", "validate ratios",
				fmt.Sprintf("Split %q is configured twice", ratio.Name), nil)
		}
		seen[ratio.Name] = struct{}{}
		if ratio.Value < 0 || ratio.Value >= 1 {
			return services.Wrap(services.ErrInvalidRatio, "", "validate ratios",
				fmt.Sprintf("Ratio for %q is %v; must be in [0, 1)", ratio.Name, ratio.Value), nil)
		}
		sum += ratio.Value
	}
	if sum >= 1 {
		return services.Wrap(services.ErrInvalidRatio, "", "validate ratios",
			fmt.Sprintf("Combined split ratios %.3f leave nothing for train; must be below 1.0", sum), nil)
	}
	return nil
}

// Split partitions the corpus into the configured splits plus train.
//
// Records are shuffled with a PRNG seeded by seed, so the same seed and input
// order always produce the same assignment. Each configured split takes its
// allocation from the front of the shuffled sequence in configuration order;
// train takes the remainder. Allocations per split:
//
//   - N <= 1: everything to train.
//   - N == 2: the first configured split gets 1, train gets 1.
//   - 3 <= N <= 10: every configured split gets exactly 1 regardless of
//     ratio, so tiny corpora still produce non-empty dev/test sets.
//   - N > 10: max(1, round(N*ratio)) per split; if that would leave train
//     empty, every configured split is clamped back to 1.
//
// The returned sizes always sum to the input size.
func Split(corpus *manifest.Corpus, ratios []Ratio, seed int64) (map[string]*manifest.Corpus, error) {
	if err := ValidateRatios(ratios); err != nil {
		return nil, err
	}

	n := corpus.Len()
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(n, func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	counts := splitCounts(n, ratios)

	result := make(map[string]*manifest.Corpus, len(ratios)+1)
	cursor := 0
	for i, ratio := range ratios {
		part := &manifest.Corpus{Records: make([]manifest.Record, 0, counts[i])}
		for _, idx := range order[cursor : cursor+counts[i]] {
			part.Records = append(part.Records, corpus.Records[idx])
		}
		cursor += counts[i]
		result[ratio.Name] = part
	}

	train := &manifest.Corpus{Records: make([]manifest.Record, 0, n-cursor)}
	for _, idx := range order[cursor:] {
		train.Records = append(train.Records, corpus.Records[idx])
	}
	result[TrainSplit] = train
	return result, nil
}

func splitCounts(n int, ratios []Ratio) []int {
	if n <= 1 {
		return make([]int, len(ratios))
	}
	if n <= 10 {
		return floorCounts(n, len(ratios))
	}

	counts := make([]int, len(ratios))
	total := 0
	for i, ratio := range ratios {
		c := int(math.Round(float64(n) * ratio.Value))
		if c < 1 {
			c = 1
		}
		counts[i] = c
		total += c
	}
	if n-total <= 0 {
		return floorCounts(n, len(ratios))
	}
	return counts
}

// floorCounts hands each configured split a single record, in order, while
// keeping at least one record for train.
func floorCounts(n, numSplits int) []int {
	counts := make([]int, numSplits)
	budget := n - 1
	for i := range counts {
		if budget == 0 {
			break
		}
		counts[i] = 1
		budget--
	}
	return counts
}
