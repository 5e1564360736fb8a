package convert

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"corpuskit/internal/services"
)

// ScanL2Arctic walks an extracted L2-Arctic tree and pairs every
// <speaker>/wav/*.wav with the matching <speaker>/transcript/<utt>.txt.
// Recordings without a transcript file, or with an empty one, are counted
// as missing and left behind.
func ScanL2Arctic(root string) ([]Item, int, error) {
	matches, err := doublestar.FilepathGlob(filepath.Join(root, "*", "wav", "*.{wav,WAV}"))
	if err != nil {
		return nil, 0, services.Wrap(services.ErrPrecondition, "", "scan l2arctic",
			fmt.Sprintf("Searching for WAV files under %s failed", root), err)
	}
	if len(matches) == 0 {
		return nil, 0, services.Wrap(services.ErrPrecondition, "", "scan l2arctic",
			fmt.Sprintf("No WAV files found under %s; expected a <speaker>/wav/ tree", root), nil)
	}
	sort.Strings(matches)

	items := make([]Item, 0, len(matches))
	missing := 0
	for _, wavPath := range matches {
		base := strings.TrimSuffix(filepath.Base(wavPath), filepath.Ext(wavPath))
		speaker := filepath.Base(filepath.Dir(filepath.Dir(wavPath)))
		data, err := os.ReadFile(filepath.Join(root, speaker, "transcript", base+".txt"))
		if err != nil {
			missing++
			continue
		}
		sentence := strings.TrimSpace(string(data))
		if sentence == "" {
			missing++
			continue
		}
		items = append(items, Item{
			ClipName:   speaker + "_" + base + ".mp3",
			Sentence:   sentence,
			SourcePath: wavPath,
		})
	}
	return items, missing, nil
}
