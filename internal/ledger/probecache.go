package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ProbeEntry caches the result of probing one audio file, keyed by absolute
// path and validated against size and mtime so edits invalidate the entry.
type ProbeEntry struct {
	Path            string
	Size            int64
	MTimeUnix       int64
	DurationSeconds float64
	SampleRate      int
	Channels        int
}

// LookupProbe returns the cached entry for path if its recorded size and
// mtime still match; a stale or absent entry reports ok=false.
func (s *Store) LookupProbe(ctx context.Context, path string, size, mtimeUnix int64) (*ProbeEntry, bool, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT path, size, mtime_unix, duration_seconds, sample_rate, channels
		 FROM probe_cache WHERE path = ?`, path)

	var entry ProbeEntry
	err := row.Scan(&entry.Path, &entry.Size, &entry.MTimeUnix,
		&entry.DurationSeconds, &entry.SampleRate, &entry.Channels)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup probe: %w", err)
	}
	if entry.Size != size || entry.MTimeUnix != mtimeUnix {
		return nil, false, nil
	}
	return &entry, true, nil
}

// StoreProbe upserts a cache entry.
func (s *Store) StoreProbe(ctx context.Context, entry ProbeEntry) error {
	err := s.execWithRetry(ctx,
		`INSERT INTO probe_cache (path, size, mtime_unix, duration_seconds, sample_rate, channels, probed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   size = excluded.size,
		   mtime_unix = excluded.mtime_unix,
		   duration_seconds = excluded.duration_seconds,
		   sample_rate = excluded.sample_rate,
		   channels = excluded.channels,
		   probed_at = excluded.probed_at`,
		entry.Path, entry.Size, entry.MTimeUnix,
		entry.DurationSeconds, entry.SampleRate, entry.Channels,
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("store probe: %w", err)
	}
	return nil
}

// ClearProbeCache drops every cached probe result, returning the number of
// entries removed. The cache rebuilds on the next stats run.
func (s *Store) ClearProbeCache(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	res, err := s.db.ExecContext(ctx, "DELETE FROM probe_cache")
	if err != nil {
		return 0, fmt.Errorf("clear probe cache: %w", err)
	}
	return res.RowsAffected()
}
