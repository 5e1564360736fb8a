// Package convert imports third-party speech datasets into the corpus
// layout: scan the source tree, transcode each utterance into the clips
// directory, mint identity columns, and append manifest rows.
//
// Converters are resumable. A clip that already exists in the clips
// directory is skipped and no manifest row is appended for it, so an
// interrupted import can be rerun without producing duplicate rows.
package convert

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"corpuskit/internal/identity"
	"corpuskit/internal/logging"
	"corpuskit/internal/manifest"
	"corpuskit/internal/transcode"
)

const maxFailureExamples = 5

// Item is one utterance ready for import: the source audio file, its
// transcript, and the clip name it becomes under the clips directory.
type Item struct {
	ClipName   string
	Sentence   string
	SourcePath string
}

// Result summarizes an import batch.
type Result struct {
	Imported int // new clips produced, one manifest row each
	Skipped  int // clips already present, no row appended
	Missing  int // utterances left behind at scan time (no transcript or no audio)
	Failed   int
	Examples []string // first few failures, for the summary
}

func (r *Result) recordFailure(name string, err error) {
	r.Failed++
	if len(r.Examples) < maxFailureExamples {
		r.Examples = append(r.Examples, fmt.Sprintf("%s: %v", name, err))
	}
}

func (r *Result) merge(other *Result) {
	r.Imported += other.Imported
	r.Skipped += other.Skipped
	r.Missing += other.Missing
	r.Failed += other.Failed
	for _, example := range other.Examples {
		if len(r.Examples) >= maxFailureExamples {
			break
		}
		r.Examples = append(r.Examples, example)
	}
}

// Importer lands items in the corpus: clips into ClipsDir, rows appended to
// the manifest at ManifestPath.
type Importer struct {
	Transcoder   *transcode.Transcoder
	ClipsDir     string
	ManifestPath string
	Locale       string
	Workers      int // transcode pool size, NumCPU when zero
	Logger       *slog.Logger
}

// Import transcodes the items through a worker pool and appends one manifest
// row per newly produced clip. Rows are appended in item order regardless of
// which worker finished first, so reruns over the same source yield the same
// manifest. Per-item failures are counted and logged; only context
// cancellation aborts the batch.
func (im *Importer) Import(ctx context.Context, items []Item) (*Result, error) {
	result := &Result{}
	if len(items) == 0 {
		return result, nil
	}
	logger := im.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "convert")
	workers := im.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(items) {
		workers = len(items)
	}

	type outcome struct {
		skipped bool
		err     error
	}
	outcomes := make([]outcome, len(items))

	g, gctx := errgroup.WithContext(ctx)
	feed := make(chan int)
	g.Go(func() error {
		defer close(feed)
		for idx := range items {
			select {
			case feed <- idx:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for idx := range feed {
				if err := gctx.Err(); err != nil {
					return err
				}
				item := items[idx]
				skipped, err := im.Transcoder.File(gctx, transcode.Job{
					Source: item.SourcePath,
					Dest:   filepath.Join(im.ClipsDir, item.ClipName),
				})
				outcomes[idx] = outcome{skipped: skipped, err: err}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	records := make([]manifest.Record, 0, len(items))
	for idx, item := range items {
		out := outcomes[idx]
		switch {
		case out.err != nil:
			result.recordFailure(item.ClipName, out.err)
			logger.Warn("clip import failed",
				logging.String(logging.FieldClip, item.ClipName),
				logging.Error(out.err))
		case out.skipped:
			result.Skipped++
		default:
			clientID, err := identity.ClientID(filepath.Join(im.ClipsDir, item.ClipName), item.Sentence)
			if err != nil {
				result.recordFailure(item.ClipName, err)
				logger.Warn("clip identity failed",
					logging.String(logging.FieldClip, item.ClipName),
					logging.Error(err))
				continue
			}
			record := manifest.NewRecord(clientID, item.ClipName, item.Sentence, im.Locale)
			record.SentenceID = identity.SentenceID(item.Sentence)
			records = append(records, record)
			result.Imported++
		}
	}
	if len(records) > 0 {
		if err := manifest.Append(im.ManifestPath, records); err != nil {
			return result, err
		}
	}
	return result, nil
}

// FormatSentence normalizes an imported transcript: trimmed, lowercased,
// first letter capitalized.
func FormatSentence(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(text)
	return string(unicode.ToUpper(r)) + text[size:]
}
