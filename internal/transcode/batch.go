package transcode

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"corpuskit/internal/logging"
)

// maxFailureExamples caps how many failed filenames a BatchResult retains
// for the summary.
const maxFailureExamples = 5

// BatchResult aggregates per-file outcomes for one batch.
type BatchResult struct {
	Transcoded int
	Skipped    int
	Failed     int
	// Examples holds the first few failures as "name: reason".
	Examples []string
}

func (r *BatchResult) recordFailure(name string, err error) {
	r.Failed++
	if len(r.Examples) < maxFailureExamples {
		r.Examples = append(r.Examples, fmt.Sprintf("%s: %v", name, err))
	}
}

// Batch converts every job over the fixed worker pool. Per-file failures are
// logged and counted; the returned error is non-nil only when the context is
// canceled. progress, when non-nil, receives a live bar (callers pass it only
// for terminals); without one, progress is logged at sampled intervals.
func (t *Transcoder) Batch(ctx context.Context, jobs []Job, progress io.Writer) (*BatchResult, error) {
	result := &BatchResult{}
	if len(jobs) == 0 {
		return result, nil
	}

	var bar *progressbar.ProgressBar
	var sampler *logging.ProgressSampler
	if progress != nil {
		bar = progressbar.NewOptions(len(jobs),
			progressbar.OptionSetWriter(progress),
			progressbar.OptionSetDescription("transcoding"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	} else {
		sampler = logging.NewProgressSampler(10)
	}

	g, gctx := errgroup.WithContext(ctx)
	feed := make(chan Job)
	g.Go(func() error {
		defer close(feed)
		for _, job := range jobs {
			select {
			case feed <- job:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var mu sync.Mutex
	for i := 0; i < t.workers; i++ {
		g.Go(func() error {
			for job := range feed {
				if err := gctx.Err(); err != nil {
					return err
				}
				skipped, err := t.File(gctx, job)
				mu.Lock()
				switch {
				case err != nil:
					result.recordFailure(filepath.Base(job.Source), err)
				case skipped:
					result.Skipped++
				default:
					result.Transcoded++
				}
				done := result.Transcoded + result.Skipped + result.Failed
				mu.Unlock()
				if err != nil {
					t.logger.Warn("transcode failed",
						logging.String(logging.FieldClip, filepath.Base(job.Source)),
						logging.Error(err))
				}
				if bar != nil {
					bar.Add(1)
				} else if percent := float64(done) * 100 / float64(len(jobs)); sampler.ShouldLog(percent, "transcode") {
					t.logger.Info("transcode progress",
						logging.Int(logging.FieldCount, done),
						logging.Int("total", len(jobs)),
						logging.Float64("percent", percent))
				}
			}
			return nil
		})
	}

	err := g.Wait()
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return result, err
	}
	return result, nil
}
