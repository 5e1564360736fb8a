package logging

import "sync"

// ProgressSampler rate-limits progress logging for long batch operations so a
// ten-thousand-clip transcode does not emit ten thousand log lines. Progress
// is bucketed by percent; a record passes when it reaches a new bucket or the
// phase changes.
type ProgressSampler struct {
	mu         sync.Mutex
	bucketSize float64
	lastPhase  string
	lastBucket int
}

// NewProgressSampler creates a sampler emitting roughly one record per
// bucketPercent of progress. Non-positive values fall back to 5%.
func NewProgressSampler(bucketPercent float64) *ProgressSampler {
	if bucketPercent <= 0 {
		bucketPercent = 5.0
	}
	return &ProgressSampler{bucketSize: bucketPercent, lastBucket: -1}
}

// ShouldLog reports whether a progress record at the given percent and phase
// should be emitted.
func (s *ProgressSampler) ShouldLog(percent float64, phase string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if phase != s.lastPhase {
		s.lastPhase = phase
		s.lastBucket = bucketFor(percent, s.bucketSize)
		return true
	}

	bucket := bucketFor(percent, s.bucketSize)
	if bucket != s.lastBucket {
		s.lastBucket = bucket
		return true
	}
	return false
}

// Reset clears sampling state so the next record always logs.
func (s *ProgressSampler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPhase = ""
	s.lastBucket = -1
}

func bucketFor(percent, bucketSize float64) int {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return int(percent / bucketSize)
}
