package probe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"corpuskit/internal/ledger"
	"corpuskit/internal/logging"
	"corpuskit/internal/services"
)

// Info is the flattened outcome of probing one clip.
type Info struct {
	DurationSeconds float64
	SampleRate      int
	Channels        int
	Codec           string
}

// Cache memoizes probe results across runs. *ledger.Store satisfies it.
type Cache interface {
	LookupProbe(ctx context.Context, path string, size, mtimeUnix int64) (*ledger.ProbeEntry, bool, error)
	StoreProbe(ctx context.Context, entry ledger.ProbeEntry) error
}

// Options configures a Prober.
type Options struct {
	// Binary is the ffprobe executable; "ffprobe" when empty.
	Binary string
	// Timeout bounds each ffprobe invocation; DefaultTimeout when zero.
	Timeout time.Duration
	// Cache, when set, memoizes results keyed by path, size, and mtime.
	Cache Cache
	// Logger receives cache-write warnings; a no-op logger when nil.
	Logger *slog.Logger
}

// Prober resolves clip durations and stream parameters, preferring the cache
// and the WAV header fast path before spawning ffprobe.
type Prober struct {
	binary  string
	timeout time.Duration
	cache   Cache
	logger  *slog.Logger
}

// New returns a Prober with the provided options applied.
func New(opts Options) *Prober {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "probe")
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	binary := opts.Binary
	if binary == "" {
		binary = "ffprobe"
	}
	return &Prober{binary: binary, timeout: timeout, cache: opts.Cache, logger: logger}
}

// Probe returns duration, sample rate, and channel count for one clip.
// Failures are per-file media errors; callers skip and count them.
func (p *Prober) Probe(ctx context.Context, path string) (Info, error) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	stat, err := os.Stat(path)
	if err != nil {
		return Info{}, services.Wrap(services.ErrMediaIO, "", "probe",
			fmt.Sprintf("Unable to stat %s", path), err)
	}
	size := stat.Size()
	mtime := stat.ModTime().Unix()

	if p.cache != nil {
		entry, ok, err := p.cache.LookupProbe(ctx, path, size, mtime)
		if err != nil {
			p.logger.Warn("probe cache lookup failed", logging.String(logging.FieldClip, path), logging.Error(err))
		} else if ok {
			return Info{
				DurationSeconds: entry.DurationSeconds,
				SampleRate:      entry.SampleRate,
				Channels:        entry.Channels,
			}, nil
		}
	}

	info, err := p.probeFile(ctx, path)
	if err != nil {
		return Info{}, err
	}

	if p.cache != nil {
		storeErr := p.cache.StoreProbe(ctx, ledger.ProbeEntry{
			Path:            path,
			Size:            size,
			MTimeUnix:       mtime,
			DurationSeconds: info.DurationSeconds,
			SampleRate:      info.SampleRate,
			Channels:        info.Channels,
		})
		if storeErr != nil {
			p.logger.Warn("probe cache store failed", logging.String(logging.FieldClip, path), logging.Error(storeErr))
		}
	}
	return info, nil
}

// Duration returns the clip duration in seconds.
func (p *Prober) Duration(ctx context.Context, path string) (float64, error) {
	info, err := p.Probe(ctx, path)
	if err != nil {
		return 0, err
	}
	return info.DurationSeconds, nil
}

func (p *Prober) probeFile(ctx context.Context, path string) (Info, error) {
	if isWav(path) {
		if info, err := WavInfo(path); err == nil {
			return info, nil
		}
		// Fall through to ffprobe for wavs with unreadable headers.
	}
	result, err := Inspect(ctx, p.binary, path, p.timeout)
	if err != nil {
		return Info{}, services.Wrap(services.ErrMediaIO, "", "probe",
			fmt.Sprintf("Unable to probe %s", path), err)
	}
	stream, _ := result.FirstAudioStream()
	return Info{
		DurationSeconds: result.DurationSeconds(),
		SampleRate:      result.SampleRate(),
		Channels:        result.Channels(),
		Codec:           stream.CodecName,
	}, nil
}
