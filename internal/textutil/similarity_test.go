package textutil

import (
	"math"
	"testing"
)

func TestCosineSimilarityNil(t *testing.T) {
	tests := []struct {
		name string
		a    *Fingerprint
		b    *Fingerprint
		want float64
	}{
		{"both nil", nil, nil, 0},
		{"a nil", nil, NewFingerprint("hello world"), 0},
		{"b nil", NewFingerprint("hello world"), nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if got != tt.want {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosineSimilarityIdentical(t *testing.T) {
	text := "please call stella and ask her to bring these things"
	a := NewFingerprint(text)
	b := NewFingerprint(text)

	got := CosineSimilarity(a, b)
	if got != 1.0 {
		t.Errorf("CosineSimilarity(identical) = %v, want 1.0", got)
	}
}

func TestCosineSimilarityCompleteDifferent(t *testing.T) {
	a := NewFingerprint("apple banana cherry")
	b := NewFingerprint("dog elephant frog")

	got := CosineSimilarity(a, b)
	if got != 0 {
		t.Errorf("CosineSimilarity(different) = %v, want 0", got)
	}
}

func TestCosineSimilaritySymmetric(t *testing.T) {
	a := NewFingerprint("the rainbow appears after the storm")
	b := NewFingerprint("after the storm comes the calm")

	ab := CosineSimilarity(a, b)
	ba := CosineSimilarity(b, a)

	if ab != ba {
		t.Errorf("CosineSimilarity not symmetric: (%v, %v)", ab, ba)
	}
}

func TestCosineSimilarityNearDuplicateSentences(t *testing.T) {
	a := NewFingerprint("She had your dark suit in greasy wash water all year.")
	b := NewFingerprint("She had your dark suit in greasy wash water all year")
	c := NewFingerprint("Production may fall far below expectations this season.")

	if sim := CosineSimilarity(a, b); sim < 0.99 {
		t.Errorf("punctuation-only variant similarity = %v, want ~1.0", sim)
	}
	if sim := CosineSimilarity(a, c); sim >= 0.5 {
		t.Errorf("unrelated sentence similarity = %v, want < 0.5", sim)
	}
}

func TestWithIDFDemotesCommonTerms(t *testing.T) {
	df := NewDocFrequency()
	sentences := []string{
		"the weather station reported heavy rain",
		"the weather forecast mentioned light rain",
		"the orchestra performed a new symphony",
		"the museum opened a new exhibition",
	}
	fps := make([]*Fingerprint, 0, len(sentences))
	for _, s := range sentences {
		fp := NewFingerprint(s)
		df.Add(fp)
		fps = append(fps, fp)
	}
	idf := df.IDF()
	if idf == nil {
		t.Fatal("expected IDF weights")
	}

	// "the" appears everywhere so its weight should be below a term unique
	// to one sentence.
	if idf["the"] >= idf["symphony"] {
		t.Errorf("idf[the]=%v should be below idf[symphony]=%v", idf["the"], idf["symphony"])
	}

	raw := CosineSimilarity(fps[0], fps[1])
	weighted := CosineSimilarity(fps[0].WithIDF(idf), fps[1].WithIDF(idf))
	if weighted >= raw {
		t.Errorf("IDF weighting should reduce similarity driven by shared stop words: raw=%v weighted=%v", raw, weighted)
	}
}

func TestNewFingerprintEmpty(t *testing.T) {
	if fp := NewFingerprint(""); fp != nil {
		t.Error("expected nil for empty text")
	}
	if fp := NewFingerprint("a an it to"); fp != nil {
		t.Error("expected nil for text with only short tokens")
	}
}

func TestNewFingerprintNormCalculation(t *testing.T) {
	// "hello hello world" -> hello:2, world:1
	// norm = sqrt(2^2 + 1^2) = sqrt(5)
	fp := NewFingerprint("hello hello world")
	if fp == nil {
		t.Fatal("expected fingerprint")
	}

	expectedNorm := math.Sqrt(5)
	if math.Abs(fp.norm-expectedNorm) > 0.0001 {
		t.Errorf("norm = %v, want %v", fp.norm, expectedNorm)
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "simple words",
			input: "Hello World",
			want:  []string{"hello", "world"},
		},
		{
			name:  "filters short",
			input: "a to the quick fox",
			want:  []string{"the", "quick", "fox"},
		},
		{
			name:  "handles punctuation",
			input: "Hello, World! How are you?",
			want:  []string{"hello", "world", "how", "are", "you"},
		},
		{
			name:  "handles numbers",
			input: "take123 456take",
			want:  []string{"take123", "456take"},
		},
		{
			name:  "empty string",
			input: "",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("Tokenize() = %v (len %d), want %v (len %d)",
					got, len(got), tt.want, len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("token[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

