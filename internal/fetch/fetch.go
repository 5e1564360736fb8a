// Package fetch downloads upstream dataset archives: the L2-Arctic speaker
// zips and People's Speech parquet shards. Downloads are plain single-attempt
// GETs; per-archive failures are counted and the batch continues.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sys/unix"

	"corpuskit/internal/logging"
	"corpuskit/internal/services"
)

// maxFailureExamples caps how many failures a Result retains for the summary.
const maxFailureExamples = 5

// HTTPDoer describes the HTTP client used for downloads.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options configures a Fetcher.
type Options struct {
	// Client performs the GETs; http.DefaultClient when nil.
	Client HTTPDoer
	// MinFreeGiB refuses to start when the download filesystem has less
	// free space than this; 0 disables the preflight.
	MinFreeGiB int
	// Progress, when non-nil, receives live download bars (callers pass it
	// only for terminals).
	Progress io.Writer
	// Logger receives per-archive warnings; a no-op logger when nil.
	Logger *slog.Logger
}

// Fetcher downloads dataset archives.
type Fetcher struct {
	client     HTTPDoer
	minFreeGiB int
	progress   io.Writer
	logger     *slog.Logger
}

// New returns a Fetcher with defaults applied.
func New(opts Options) *Fetcher {
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "fetch")
	return &Fetcher{
		client:     client,
		minFreeGiB: opts.MinFreeGiB,
		progress:   opts.Progress,
		logger:     logger,
	}
}

// Result summarizes one fetch batch.
type Result struct {
	Downloaded int
	Skipped    int
	Failed     int
	// Examples holds the first few failures as "name: reason".
	Examples []string
	// EstimatedHours accumulates probed WAV durations (L2-Arctic only).
	EstimatedHours float64
}

func (r *Result) recordFailure(name string, err error) {
	r.Failed++
	if len(r.Examples) < maxFailureExamples {
		r.Examples = append(r.Examples, fmt.Sprintf("%s: %v", name, err))
	}
}

// downloadFile GETs url into dest through a .partial temp file, showing a
// byte progress bar when the Fetcher has a progress writer.
func (f *Fetcher) downloadFile(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return services.Wrap(services.ErrMediaIO, "", "download",
			fmt.Sprintf("Unable to build request for %s", url), err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrMediaIO, "", "download",
			fmt.Sprintf("Unable to fetch %s", url), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrMediaIO, "", "download",
			fmt.Sprintf("%s returned status %d", url, resp.StatusCode), nil)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return services.Wrap(services.ErrMediaIO, "", "download",
			fmt.Sprintf("Unable to create directory for %s", dest), err)
	}
	tmp := dest + ".partial"
	out, err := os.Create(tmp)
	if err != nil {
		return services.Wrap(services.ErrMediaIO, "", "download",
			fmt.Sprintf("Unable to create %s", tmp), err)
	}

	var sink io.Writer = out
	if f.progress != nil {
		bar := progressbar.NewOptions64(resp.ContentLength,
			progressbar.OptionSetWriter(f.progress),
			progressbar.OptionSetDescription(filepath.Base(dest)),
			progressbar.OptionShowBytes(true),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Finish()
		sink = io.MultiWriter(out, bar)
	}

	if _, err := io.Copy(sink, resp.Body); err != nil {
		out.Close()
		os.Remove(tmp)
		return services.Wrap(services.ErrMediaIO, "", "download",
			fmt.Sprintf("Transfer of %s failed", url), err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return services.Wrap(services.ErrMediaIO, "", "download",
			fmt.Sprintf("Unable to finish %s", tmp), err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return services.Wrap(services.ErrMediaIO, "", "download",
			fmt.Sprintf("Unable to finalize %s", dest), err)
	}
	return nil
}

// CheckFreeSpace fails when dir's filesystem has less than minFreeGiB
// available. A zero or negative floor disables the check.
func CheckFreeSpace(dir string, minFreeGiB int) error {
	if minFreeGiB <= 0 {
		return nil
	}
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return services.Wrap(services.ErrPrecondition, "", "disk preflight",
			fmt.Sprintf("Unable to stat filesystem at %s", dir), err)
	}
	freeGiB := float64(stat.Bavail) * float64(stat.Bsize) / (1 << 30)
	if freeGiB < float64(minFreeGiB) {
		return services.Wrap(services.ErrPrecondition, "", "disk preflight",
			fmt.Sprintf("Only %.1f GiB free at %s, need at least %d GiB", freeGiB, dir, minFreeGiB), nil)
	}
	return nil
}

// fileExists reports whether path is an existing non-empty regular file.
func fileExists(path string) bool {
	stat, err := os.Stat(path)
	return err == nil && stat.Mode().IsRegular() && stat.Size() > 0
}

func joinURL(base, name string) string {
	for len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	return base + "/" + name
}
