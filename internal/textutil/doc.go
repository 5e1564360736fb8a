// Package textutil provides transcript text processing: sentence
// normalization, token fingerprints with TF-IDF weighting, and cosine
// similarity.
//
// The primary use cases are:
//   - Normalizing transcript sentences (NFC, whitespace collapse) before
//     hashing or deduplication
//   - Creating token-based fingerprints from sentences for near-duplicate
//     detection
//
// Fingerprints use term frequency vectors normalized for efficient comparison.
// The tokenization process lowercases text, splits on non-alphanumeric
// characters, and filters tokens shorter than 3 characters.
package textutil
