package probe

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
)

// WavInfo reads duration and stream parameters straight from a RIFF/WAVE
// header without spawning a subprocess. The duration derives from the chunk
// size and byte rate, so it is a close estimate rather than a sample-exact
// figure.
func WavInfo(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return Info{}, err
	}
	if dec.SampleRate == 0 || dec.NumChans == 0 {
		return Info{}, errors.New("wav header missing format chunk")
	}
	duration, err := dec.Duration()
	if err != nil {
		return Info{}, err
	}
	return Info{
		DurationSeconds: duration.Seconds(),
		SampleRate:      int(dec.SampleRate),
		Channels:        int(dec.NumChans),
		Codec:           "pcm",
	}, nil
}

func isWav(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".wav")
}
