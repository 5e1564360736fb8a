// Package stats computes corpus summaries: clip counts and durations
// through the probe cache, per-split row counts, word-count outliers, and
// near-duplicate transcripts.
package stats

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"corpuskit/internal/logging"
	"corpuskit/internal/manifest"
	"corpuskit/internal/services"
)

const maxFailureExamples = 5

// DurationProber resolves a clip's duration in seconds. Satisfied by
// *probe.Prober, which answers from the ledger cache when it can.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Summary is the duration report over a clips directory.
type Summary struct {
	Clips       int     // MP3 files found
	Probed      int     // files whose duration resolved
	Failed      int     // files the prober could not read
	TotalHours  float64 // summed duration
	MeanSeconds float64 // mean clip duration, 0 when nothing probed
	Examples    []string
}

func (s *Summary) recordFailure(name string, err error) {
	s.Failed++
	if len(s.Examples) < maxFailureExamples {
		s.Examples = append(s.Examples, fmt.Sprintf("%s: %v", name, err))
	}
}

// Collector walks a clips directory and sums durations.
type Collector struct {
	Prober   DurationProber
	ClipsDir string
	// Workers sizes the probe pool; NumCPU when zero.
	Workers int
	Logger  *slog.Logger
}

// Durations probes every MP3 under the clips directory and totals the
// results. Unreadable files are counted, not fatal.
func (c *Collector) Durations(ctx context.Context) (*Summary, error) {
	logger := c.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "stats")
	files, err := listClips(c.ClipsDir)
	if err != nil {
		return nil, err
	}
	summary := &Summary{Clips: len(files)}
	if len(files) == 0 {
		return summary, nil
	}

	workers := c.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(files) {
		workers = len(files)
	}

	type outcome struct {
		seconds float64
		err     error
	}
	outcomes := make([]outcome, len(files))

	g, gctx := errgroup.WithContext(ctx)
	feed := make(chan int)
	g.Go(func() error {
		defer close(feed)
		for idx := range files {
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
				seconds, err := c.Prober.Duration(gctx, files[idx])
				outcomes[idx] = outcome{seconds: seconds, err: err}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var totalSeconds float64
	for idx, out := range outcomes {
		if out.err != nil {
			summary.recordFailure(filepath.Base(files[idx]), out.err)
			logger.Warn("duration probe failed",
				logging.String(logging.FieldClip, filepath.Base(files[idx])),
				logging.Error(out.err))
			continue
		}
		summary.Probed++
		totalSeconds += out.seconds
	}
	summary.TotalHours = totalSeconds / 3600
	if summary.Probed > 0 {
		summary.MeanSeconds = totalSeconds / float64(summary.Probed)
	}
	return summary, nil
}

// listClips walks the clips directory recursively for MP3 files, sorted by
// WalkDir's lexical order.
func listClips(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".mp3") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, services.Wrap(services.ErrPrecondition, "", "stats",
			fmt.Sprintf("Unable to walk clips directory %s", dir), err)
	}
	return files, nil
}

// SplitCount is one split's row count.
type SplitCount struct {
	Name string
	Rows int
}

// SplitRows loads each part manifest and reports its row count. Parts whose
// file does not exist are left out of the report.
func SplitRows(paths []string, logger *slog.Logger) ([]SplitCount, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "stats")
	counts := make([]SplitCount, 0, len(paths))
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			logger.Debug("split part not present",
				logging.String(logging.FieldManifest, path))
			continue
		}
		corpus, err := manifest.Load(path, logger)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		counts = append(counts, SplitCount{Name: name, Rows: corpus.Len()})
	}
	return counts, nil
}
