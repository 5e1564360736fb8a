// Package transcode converts audio clips with ffmpeg: one file at a time
// through a temp-then-rename discipline, or in batches over a fixed worker
// pool. Per-file failures are counted and reported, never fatal to the batch.
package transcode

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"corpuskit/internal/logging"
	"corpuskit/internal/services"
)

// Defaults for the encode parameters when the config leaves them zero.
const (
	DefaultSampleRate = 32000
	DefaultChannels   = 1
	DefaultBitrate    = "48k"
)

// partialSuffix marks in-progress outputs. A killed run leaves only these
// behind; they are overwritten on the next attempt and never read.
const partialSuffix = ".partial"

// Job describes one source-to-destination conversion.
type Job struct {
	Source string
	Dest   string
	// Tempo re-times playback through an atempo filter; 0 or 1 means none.
	Tempo float64
}

// Options configures a Transcoder.
type Options struct {
	// Binary is the ffmpeg executable; "ffmpeg" when empty.
	Binary string
	// SampleRate, Channels, and Bitrate are the encode parameters
	// (-ar, -ac, -b:a). Zero/empty values take the package defaults.
	SampleRate int
	Channels   int
	Bitrate    string
	// Codec optionally forces -c:a instead of ffmpeg's container default.
	Codec string
	// Workers sizes the batch pool; NumCPU when zero.
	Workers int
	// Logger receives per-file warnings; a no-op logger when nil.
	Logger *slog.Logger
}

// Transcoder runs ffmpeg conversions.
type Transcoder struct {
	binary     string
	sampleRate int
	channels   int
	bitrate    string
	codec      string
	workers    int
	logger     *slog.Logger
}

// New returns a Transcoder with defaults applied.
func New(opts Options) *Transcoder {
	binary := strings.TrimSpace(opts.Binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	sampleRate := opts.SampleRate
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	channels := opts.Channels
	if channels <= 0 {
		channels = DefaultChannels
	}
	bitrate := strings.TrimSpace(opts.Bitrate)
	if bitrate == "" {
		bitrate = DefaultBitrate
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "transcode")
	return &Transcoder{
		binary:     binary,
		sampleRate: sampleRate,
		channels:   channels,
		bitrate:    bitrate,
		codec:      strings.TrimSpace(opts.Codec),
		workers:    workers,
		logger:     logger,
	}
}

// Workers reports the pool size Batch will use.
func (t *Transcoder) Workers() int {
	return t.workers
}

// File converts one clip. The destination is written as <dest>.partial and
// renamed into place on success. An existing non-empty destination is left
// alone and reported as skipped.
func (t *Transcoder) File(ctx context.Context, job Job) (skipped bool, err error) {
	if stat, statErr := os.Stat(job.Dest); statErr == nil && stat.Size() > 0 {
		return true, nil
	}
	if err := os.MkdirAll(filepath.Dir(job.Dest), 0o755); err != nil {
		return false, services.Wrap(services.ErrMediaIO, "", "transcode",
			fmt.Sprintf("Unable to create output directory for %s", job.Dest), err)
	}

	tmp := job.Dest + partialSuffix
	cmd := exec.CommandContext(ctx, t.binary, t.buildArgs(job, tmp)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.Remove(tmp)
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			err = fmt.Errorf("%w: %s", err, detail)
		}
		return false, services.Wrap(services.ErrMediaIO, "", "transcode",
			fmt.Sprintf("ffmpeg failed on %s", filepath.Base(job.Source)), err)
	}
	if stat, statErr := os.Stat(tmp); statErr != nil || stat.Size() == 0 {
		os.Remove(tmp)
		return false, services.Wrap(services.ErrMediaIO, "", "transcode",
			fmt.Sprintf("ffmpeg produced no output for %s", filepath.Base(job.Source)), statErr)
	}
	if err := os.Rename(tmp, job.Dest); err != nil {
		os.Remove(tmp)
		return false, services.Wrap(services.ErrMediaIO, "", "transcode",
			fmt.Sprintf("Unable to finalize %s", job.Dest), err)
	}
	return false, nil
}

func (t *Transcoder) buildArgs(job Job, tmp string) []string {
	args := []string{"-y", "-nostdin", "-v", "error", "-i", job.Source}
	if job.Tempo > 0 && job.Tempo != 1 {
		args = append(args, "-filter:a", "atempo="+formatFactor(job.Tempo))
	}
	args = append(args,
		"-ar", strconv.Itoa(t.sampleRate),
		"-ac", strconv.Itoa(t.channels),
		"-b:a", t.bitrate,
	)
	if t.codec != "" {
		args = append(args, "-c:a", t.codec)
	}
	// The temp name hides the container extension, so state it explicitly.
	args = append(args, "-f", formatForDest(job.Dest), tmp)
	return args
}

func formatForDest(dest string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(dest), "."))
	if ext == "" {
		return "mp3"
	}
	return ext
}

// SpeedPrefix returns the filename prefix for a tempo-perturbed copy, such
// as "sp0.9-" for factor 0.9.
func SpeedPrefix(factor float64) string {
	return "sp" + formatFactor(factor) + "-"
}

// SpeedJobs derives perturbed conversion jobs: each clip in srcDir becomes
// one job per factor writing "sp<factor>-<name>" into dstDir.
func SpeedJobs(srcDir, dstDir string, names []string, factors []float64) []Job {
	jobs := make([]Job, 0, len(names)*len(factors))
	for _, factor := range factors {
		if factor <= 0 || factor == 1 {
			continue
		}
		prefix := SpeedPrefix(factor)
		for _, name := range names {
			jobs = append(jobs, Job{
				Source: filepath.Join(srcDir, name),
				Dest:   filepath.Join(dstDir, prefix+name),
				Tempo:  factor,
			})
		}
	}
	return jobs
}

func formatFactor(factor float64) string {
	return strconv.FormatFloat(factor, 'g', -1, 64)
}
