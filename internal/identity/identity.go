// Package identity derives deterministic record identifiers from clip content
// and transcripts. Reconverting the same source data always yields the same
// IDs, so repeated imports dedupe instead of multiplying.
package identity

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"corpuskit/internal/textutil"
)

// ClientID computes the speaker/record identifier for a clip: SHA-256 over the
// clip bytes and the normalized sentence, hex-encoded and doubled to the
// 128-character width of upstream CommonVoice client_id values.
func ClientID(mediaPath, sentence string) (string, error) {
	hasher := sha256.New()

	file, err := os.Open(mediaPath)
	if err != nil {
		return "", fmt.Errorf("open clip: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(hasher, bufio.NewReader(file)); err != nil {
		return "", fmt.Errorf("hash clip %s: %w", mediaPath, err)
	}

	writeComponent(hasher, textutil.NormalizeSentence(sentence))

	digest := hex.EncodeToString(hasher.Sum(nil))
	return digest + digest, nil
}

// SentenceID computes the transcript identifier: SHA-256 hex of the
// normalized sentence.
func SentenceID(sentence string) string {
	hasher := sha256.New()
	writeComponent(hasher, textutil.NormalizeSentence(sentence))
	return hex.EncodeToString(hasher.Sum(nil))
}

// FileID computes a short stable hex token for generated clip filenames.
// Provenance distinguishes records whose sentences happen to match, such as
// the same prompt read by two speakers.
func FileID(provenance, sentence string) string {
	hasher := sha256.New()
	writeComponent(hasher, provenance)
	writeComponent(hasher, textutil.NormalizeSentence(sentence))
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}

func writeComponent(hasher hash.Hash, value string) {
	_, _ = hasher.Write([]byte(value))
	_, _ = hasher.Write([]byte{0})
}
