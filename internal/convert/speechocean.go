package convert

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/bmatcuk/doublestar/v4"

	"corpuskit/internal/services"
)

// speechOceanTextFiles are the Kaldi-style transcript indexes shipped with
// SpeechOcean762, one utterance per line as "<uttid> <text>".
var speechOceanTextFiles = []string{
	filepath.Join("train", "text"),
	filepath.Join("test", "text"),
}

// ScanSpeechOcean walks a SpeechOcean762 tree and pairs every WAV under
// WAVE/<speaker>/ with its transcript from the train/test text indexes.
// WAVs without a transcript entry are counted as missing and left behind.
func ScanSpeechOcean(root string) ([]Item, int, error) {
	transcripts, err := readSpeechOceanTranscripts(root)
	if err != nil {
		return nil, 0, err
	}

	matches, err := doublestar.FilepathGlob(filepath.Join(root, "WAVE", "*", "*.{wav,WAV}"))
	if err != nil {
		return nil, 0, services.Wrap(services.ErrPrecondition, "", "scan speechocean",
			fmt.Sprintf("Searching for WAV files under %s failed", root), err)
	}
	if len(matches) == 0 {
		return nil, 0, services.Wrap(services.ErrPrecondition, "", "scan speechocean",
			fmt.Sprintf("No WAV files found under %s; expected a WAVE/<speaker>/ tree", root), nil)
	}
	sort.Strings(matches)

	items := make([]Item, 0, len(matches))
	missing := 0
	for _, wavPath := range matches {
		base := strings.TrimSuffix(filepath.Base(wavPath), filepath.Ext(wavPath))
		sentence, ok := transcripts[base]
		if !ok {
			missing++
			continue
		}
		speaker := filepath.Base(filepath.Dir(wavPath))
		if !strings.HasPrefix(speaker, "SPEAKER") {
			speaker = "SPEAKER" + speaker
		}
		items = append(items, Item{
			ClipName:   speaker + "_" + base + ".mp3",
			Sentence:   FormatSentence(sentence),
			SourcePath: wavPath,
		})
	}
	return items, missing, nil
}

// readSpeechOceanTranscripts loads the utterance-id to text mapping from the
// train and test indexes. At least one of the two must exist.
func readSpeechOceanTranscripts(root string) (map[string]string, error) {
	transcripts := make(map[string]string)
	found := 0
	for _, rel := range speechOceanTextFiles {
		path := filepath.Join(root, rel)
		if err := readKaldiText(path, transcripts); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, services.Wrap(services.ErrPrecondition, "", "scan speechocean",
				fmt.Sprintf("Reading transcript index %s failed", path), err)
		}
		found++
	}
	if found == 0 {
		return nil, services.Wrap(services.ErrPrecondition, "", "scan speechocean",
			fmt.Sprintf("No transcript index found under %s; expected train/text or test/text", root), nil)
	}
	return transcripts, nil
}

// readKaldiText parses "<uttid> <text>" lines into the mapping, splitting on
// the first whitespace run so internal spacing of the text survives.
func readKaldiText(path string, into map[string]string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cut := strings.IndexFunc(line, unicode.IsSpace)
		if cut <= 0 {
			continue
		}
		uttid := line[:cut]
		text := strings.TrimSpace(line[cut:])
		if text == "" {
			continue
		}
		into[uttid] = text
	}
	return scanner.Err()
}
