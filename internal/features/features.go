// Package features computes log-mel filter-bank artifacts for dataset parts
// and maintains the gzip JSON-lines cut manifests that index them.
//
// Extraction runs clip by clip: the MP3 is decoded to a temporary WAV, the
// mel spectrogram is rendered next to the other artifacts, and a cut row is
// recorded for it. Finished artifacts are skipped on rerun, so an
// interrupted extraction picks up where it stopped.
package features

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/neurlang/gomel/mel"
	"golang.org/x/sync/errgroup"

	"corpuskit/internal/logging"
	"corpuskit/internal/manifest"
	"corpuskit/internal/services"
	"corpuskit/internal/transcode"
)

const (
	// DefaultNumMelBins matches the filter-bank layout ASR recipes expect.
	DefaultNumMelBins = 80
	// DefaultWindow and DefaultResolution size the analysis FFT.
	DefaultWindow     = 800
	DefaultResolution = 2048
	// DefaultMelFmax caps the mel scale below the Nyquist of the corpus
	// sample rate.
	DefaultMelFmax = 8000

	artifactSuffix      = ".fbank.png"
	maxFailureExamples  = 5
	perturbedStagingDir = "perturbed"
)

// Options configures an Extractor.
type Options struct {
	// Transcoder decodes clips to temporary WAVs and produces
	// speed-perturbed variants.
	Transcoder *transcode.Transcoder
	// ClipsDir holds the source clips named by the part manifests.
	ClipsDir string
	// OutDir receives feature artifacts and cut manifests.
	OutDir string

	NumMelBins int
	Window     int
	Resolution int
	MelFmin    float64
	MelFmax    float64

	// Workers sizes the extraction pool; NumCPU when zero.
	Workers int
	Logger  *slog.Logger
}

// Extractor renders filter-bank artifacts for corpus clips.
type Extractor struct {
	transcoder *transcode.Transcoder
	clipsDir   string
	outDir     string
	numMelBins int
	window     int
	resolution int
	melFmin    float64
	melFmax    float64
	workers    int
	logger     *slog.Logger
}

// New returns an Extractor with defaults applied.
func New(opts Options) *Extractor {
	numMelBins := opts.NumMelBins
	if numMelBins <= 0 {
		numMelBins = DefaultNumMelBins
	}
	window := opts.Window
	if window <= 0 {
		window = DefaultWindow
	}
	resolution := opts.Resolution
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	melFmax := opts.MelFmax
	if melFmax <= 0 {
		melFmax = DefaultMelFmax
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "features")
	return &Extractor{
		transcoder: opts.Transcoder,
		clipsDir:   opts.ClipsDir,
		outDir:     opts.OutDir,
		numMelBins: numMelBins,
		window:     window,
		resolution: resolution,
		melFmin:    opts.MelFmin,
		melFmax:    melFmax,
		workers:    workers,
		logger:     logger,
	}
}

// Result summarizes one part extraction.
type Result struct {
	Extracted int // artifacts rendered this run
	Skipped   int // artifacts already present
	Missing   int // manifest rows whose clip is absent from the clips dir
	Failed    int
	Examples  []string
	CutsPath  string
}

func (r *Result) recordFailure(name string, err error) {
	r.Failed++
	if len(r.Examples) < maxFailureExamples {
		r.Examples = append(r.Examples, fmt.Sprintf("%s: %v", name, err))
	}
}

// PartName derives the part name from a manifest path: "train.tsv" is the
// train part.
func PartName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IsTrainPart reports whether a part name denotes training data, the only
// parts that receive speed-perturbed variants.
func IsTrainPart(name string) bool {
	return strings.HasPrefix(strings.ToLower(name), "train")
}

// CutsPath returns where the cut manifest for a part is written.
func (e *Extractor) CutsPath(partName string) string {
	return filepath.Join(e.outDir, "cuts_"+partName+".jsonl.gz")
}

type workItem struct {
	cut    Cut
	source string
	dest   string
}

// Part extracts filter-bank artifacts for every clip in a part manifest and
// writes the part's cut manifest. Non-empty speedFactors additionally render
// perturbed variants of each clip before extraction, one per factor.
// Per-clip failures are counted; only context cancellation aborts the part.
func (e *Extractor) Part(ctx context.Context, partPath string, speedFactors []float64, progress io.Writer) (*Result, error) {
	partName := PartName(partPath)
	result := &Result{CutsPath: e.CutsPath(partName)}

	corpus, err := manifest.Load(partPath, e.logger)
	if err != nil {
		return result, err
	}
	if err := os.MkdirAll(e.outDir, 0o755); err != nil {
		return result, services.Wrap(services.ErrPrecondition, "", "fbank",
			fmt.Sprintf("Unable to create feature directory %s", e.outDir), err)
	}

	items := make([]workItem, 0, len(corpus.Records))
	present := make([]string, 0, len(corpus.Records))
	sentences := make(map[string]string, len(corpus.Records))
	for _, rec := range corpus.Records {
		source := filepath.Join(e.clipsDir, rec.Path)
		if stat, statErr := os.Stat(source); statErr != nil || stat.Size() == 0 {
			result.Missing++
			e.logger.Warn("clip missing from clips directory",
				logging.String(logging.FieldClip, rec.Path),
				logging.String(logging.FieldPart, partName))
			continue
		}
		present = append(present, rec.Path)
		sentences[rec.Path] = rec.Sentence
		id := clipStem(rec.Path)
		items = append(items, workItem{
			cut: Cut{
				ID:       id,
				Clip:     rec.Path,
				Sentence: rec.Sentence,
				Features: id + artifactSuffix,
				Speed:    1,
				Part:     partName,
			},
			source: source,
			dest:   filepath.Join(e.outDir, id+artifactSuffix),
		})
	}

	variants, err := e.renderVariants(ctx, partName, present, sentences, speedFactors, progress, result)
	if err != nil {
		return result, err
	}
	items = append(items, variants...)

	outcomes, err := e.extractAll(ctx, items)
	if err != nil {
		return result, err
	}

	cuts := make([]Cut, 0, len(items))
	for idx, item := range items {
		out := outcomes[idx]
		switch {
		case out.err != nil:
			result.recordFailure(item.cut.ID, out.err)
			e.logger.Warn("feature extraction failed",
				logging.String(logging.FieldClip, item.cut.Clip),
				logging.Error(out.err))
		case out.skipped:
			result.Skipped++
			cuts = append(cuts, item.cut)
		default:
			result.Extracted++
			cuts = append(cuts, item.cut)
		}
	}
	if err := WriteCuts(result.CutsPath, cuts); err != nil {
		return result, err
	}
	e.logger.Info("part extraction finished",
		logging.String(logging.FieldPart, partName),
		logging.Int("extracted", result.Extracted),
		logging.Int("skipped", result.Skipped),
		logging.Int("missing", result.Missing),
		logging.Int("failed", result.Failed))
	return result, nil
}

// renderVariants transcodes speed-perturbed copies of the present clips into
// the staging directory and returns one work item per produced variant, each
// carrying the original clip's transcript. Transcode failures are folded
// into the part result.
func (e *Extractor) renderVariants(ctx context.Context, partName string, names []string, sentences map[string]string, factors []float64, progress io.Writer, result *Result) ([]workItem, error) {
	if len(factors) == 0 || len(names) == 0 {
		return nil, nil
	}
	staging := filepath.Join(e.outDir, perturbedStagingDir)
	jobs := transcode.SpeedJobs(e.clipsDir, staging, names, factors)
	if len(jobs) == 0 {
		return nil, nil
	}
	batch, err := e.transcoder.Batch(ctx, jobs, progress)
	if err != nil {
		return nil, err
	}
	result.Failed += batch.Failed
	for _, example := range batch.Examples {
		if len(result.Examples) >= maxFailureExamples {
			break
		}
		result.Examples = append(result.Examples, example)
	}

	items := make([]workItem, 0, len(jobs))
	for _, job := range jobs {
		if stat, statErr := os.Stat(job.Dest); statErr != nil || stat.Size() == 0 {
			continue
		}
		name := filepath.Base(job.Dest)
		original := strings.TrimPrefix(name, transcode.SpeedPrefix(job.Tempo))
		id := clipStem(name)
		items = append(items, workItem{
			cut: Cut{
				ID:       id,
				Clip:     name,
				Sentence: sentences[original],
				Features: id + artifactSuffix,
				Speed:    job.Tempo,
				Part:     partName,
			},
			source: job.Dest,
			dest:   filepath.Join(e.outDir, id+artifactSuffix),
		})
	}
	return items, nil
}

type extractOutcome struct {
	skipped bool
	err     error
}

// extractAll renders artifacts for the items through a fixed worker pool.
func (e *Extractor) extractAll(ctx context.Context, items []workItem) ([]extractOutcome, error) {
	outcomes := make([]extractOutcome, len(items))
	if len(items) == 0 {
		return outcomes, nil
	}
	tmpDir, err := os.MkdirTemp("", "corpuskit-fbank-")
	if err != nil {
		return nil, services.Wrap(services.ErrPrecondition, "", "fbank",
			"Creating scratch directory for WAV decodes failed", err)
	}
	defer os.RemoveAll(tmpDir)

	workers := e.workers
	if workers > len(items) {
		workers = len(items)
	}
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
				skipped, err := e.extractOne(gctx, items[idx], tmpDir)
				outcomes[idx] = extractOutcome{skipped: skipped, err: err}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// extractOne renders a single artifact: decode the clip to a scratch WAV,
// run the mel transform, rename the finished artifact into place.
func (e *Extractor) extractOne(ctx context.Context, item workItem, tmpDir string) (skipped bool, err error) {
	if stat, statErr := os.Stat(item.dest); statErr == nil && stat.Size() > 0 {
		return true, nil
	}

	wavPath := filepath.Join(tmpDir, item.cut.ID+".wav")
	if _, err := e.transcoder.File(ctx, transcode.Job{Source: item.source, Dest: wavPath}); err != nil {
		return false, err
	}
	defer os.Remove(wavPath)

	tmp := item.dest + ".partial"
	m := e.newMel()
	if err := m.ToMelWav(wavPath, tmp); err != nil {
		os.Remove(tmp)
		return false, services.Wrap(services.ErrMediaIO, "", "fbank",
			fmt.Sprintf("Mel transform failed on %s", item.cut.Clip), err)
	}
	if stat, statErr := os.Stat(tmp); statErr != nil || stat.Size() == 0 {
		os.Remove(tmp)
		return false, services.Wrap(services.ErrMediaIO, "", "fbank",
			fmt.Sprintf("Mel transform produced no output for %s", item.cut.Clip), statErr)
	}
	if err := os.Rename(tmp, item.dest); err != nil {
		os.Remove(tmp)
		return false, services.Wrap(services.ErrMediaIO, "", "fbank",
			fmt.Sprintf("Unable to finalize %s", item.dest), err)
	}
	return false, nil
}

// newMel builds a configured mel transform. One instance per artifact keeps
// the workers independent.
func (e *Extractor) newMel() *mel.Mel {
	m := mel.NewMel()
	m.NumMels = e.numMelBins
	m.Window = e.window
	m.Resolut = e.resolution
	m.MelFmin = e.melFmin
	m.MelFmax = e.melFmax
	m.YReverse = true
	return m
}

func clipStem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
