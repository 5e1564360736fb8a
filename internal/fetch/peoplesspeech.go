package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"corpuskit/internal/logging"
	"corpuskit/internal/services"
)

// Shard counts published for the People's Speech clean subset.
const (
	testShardCount  = 9
	trainShardCount = 804
)

// DefaultShards is how many parquet shards a fetch run grabs when the caller
// does not say otherwise.
const DefaultShards = 10

// ShardNames returns the first count shard filenames in the canonical
// order: the nine test shards, then train shards.
func ShardNames(count int) []string {
	if count <= 0 {
		return nil
	}
	if max := testShardCount + trainShardCount; count > max {
		count = max
	}
	names := make([]string, 0, count)
	for i := 0; i < testShardCount && len(names) < count; i++ {
		names = append(names, fmt.Sprintf("test-%05d-of-%05d.parquet", i, testShardCount))
	}
	for i := 0; len(names) < count; i++ {
		names = append(names, fmt.Sprintf("train-%05d-of-%05d.parquet", i, trainShardCount))
	}
	return names
}

// PeoplesSpeechOptions controls one parquet-shard fetch run.
type PeoplesSpeechOptions struct {
	// BaseURL is the shard repository root.
	BaseURL string
	// DownloadDir receives the parquet files.
	DownloadDir string
	// Shards is how many shard files to fetch; DefaultShards when zero.
	Shards int
}

// PeoplesSpeech downloads parquet shards, skipping files already present.
// The shards are consumed later by the parquet converter; nothing is
// extracted here.
func (f *Fetcher) PeoplesSpeech(ctx context.Context, opts PeoplesSpeechOptions) (*Result, error) {
	result := &Result{}
	shards := opts.Shards
	if shards <= 0 {
		shards = DefaultShards
	}
	if err := os.MkdirAll(opts.DownloadDir, 0o755); err != nil {
		return result, services.Wrap(services.ErrPrecondition, "", "fetch peoples-speech",
			fmt.Sprintf("Unable to create download directory %s", opts.DownloadDir), err)
	}
	if err := CheckFreeSpace(opts.DownloadDir, f.minFreeGiB); err != nil {
		return result, err
	}

	for _, name := range ShardNames(shards) {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		dest := filepath.Join(opts.DownloadDir, name)
		if fileExists(dest) {
			result.Skipped++
			continue
		}
		if err := f.downloadFile(ctx, joinURL(opts.BaseURL, name), dest); err != nil {
			result.recordFailure(name, err)
			f.logger.Warn("shard download failed",
				logging.String("shard", name), logging.Error(err))
			continue
		}
		result.Downloaded++
		f.logger.Info("shard downloaded", logging.String("shard", name))
	}
	return result, nil
}
