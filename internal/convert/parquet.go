package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/parquet-go/parquet-go"

	"corpuskit/internal/identity"
	"corpuskit/internal/logging"
	"corpuskit/internal/services"
)

// parquetChunkRows bounds how many shard rows are materialized to disk at a
// time, so audio payloads never accumulate beyond one chunk.
const parquetChunkRows = 64

// shardRow mirrors the People's Speech parquet schema: a nested audio
// payload plus the transcript.
type shardRow struct {
	Audio shardAudio `parquet:"audio"`
	Text  string     `parquet:"text"`
}

type shardAudio struct {
	Bytes []byte `parquet:"bytes"`
	Path  string `parquet:"path"`
}

// ParquetShards lists the shard files to import: src itself when it names a
// file, otherwise the *.parquet files directly inside the directory, sorted.
func ParquetShards(src string) ([]string, error) {
	info, err := os.Stat(src)
	if err != nil {
		return nil, services.Wrap(services.ErrPrecondition, "", "scan parquet",
			fmt.Sprintf("Parquet source %s is not accessible", src), err)
	}
	if !info.IsDir() {
		return []string{src}, nil
	}
	matches, err := doublestar.FilepathGlob(filepath.Join(src, "*.parquet"))
	if err != nil {
		return nil, services.Wrap(services.ErrPrecondition, "", "scan parquet",
			fmt.Sprintf("Searching for parquet shards under %s failed", src), err)
	}
	if len(matches) == 0 {
		return nil, services.Wrap(services.ErrPrecondition, "", "scan parquet",
			fmt.Sprintf("No parquet shards found under %s", src), nil)
	}
	sort.Strings(matches)
	return matches, nil
}

// ImportParquetShards streams every row of the named shards through the
// importer. Rows are read in chunks, their audio payloads written to a
// scratch directory, transcoded into clips, and the scratch files removed
// before the next chunk. An unreadable shard is counted as a failure and the
// remaining shards still run.
func (im *Importer) ImportParquetShards(ctx context.Context, shards []string) (*Result, error) {
	result := &Result{}
	logger := im.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "convert")
	for _, shard := range shards {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		before := *result
		if err := im.importShard(ctx, shard, result); err != nil {
			return result, err
		}
		logger.Info("parquet shard processed",
			logging.String("shard", filepath.Base(shard)),
			logging.Int("imported", result.Imported-before.Imported),
			logging.Int("skipped", result.Skipped-before.Skipped),
			logging.Int("failed", result.Failed-before.Failed))
	}
	return result, nil
}

// importShard reads one shard. Shard-local problems are recorded on result;
// the returned error is reserved for batch-fatal conditions such as context
// cancellation or a manifest append failure.
func (im *Importer) importShard(ctx context.Context, shardPath string, result *Result) error {
	f, err := os.Open(shardPath)
	if err != nil {
		result.recordFailure(filepath.Base(shardPath), err)
		return nil
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		result.recordFailure(filepath.Base(shardPath), err)
		return nil
	}
	// OpenFile validates the footer up front; the generic reader panics on
	// malformed input, so a corrupt shard has to be rejected here.
	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		result.recordFailure(filepath.Base(shardPath), err)
		return nil
	}

	tmpDir, err := os.MkdirTemp("", "corpuskit-parquet-")
	if err != nil {
		return services.Wrap(services.ErrPrecondition, "", "import parquet",
			"Creating scratch directory for audio payloads failed", err)
	}
	defer os.RemoveAll(tmpDir)

	reader := parquet.NewGenericReader[shardRow](pf)
	defer reader.Close()

	shardBase := strings.TrimSuffix(filepath.Base(shardPath), filepath.Ext(shardPath))
	rows := make([]shardRow, parquetChunkRows)
	next := 0
	for {
		n, readErr := reader.Read(rows)
		if n > 0 {
			items := materializeRows(rows[:n], shardBase, tmpDir, &next, result)
			chunkResult, err := im.Import(ctx, items)
			result.merge(chunkResult)
			for _, item := range items {
				os.Remove(item.SourcePath)
			}
			if err != nil {
				return err
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			result.recordFailure(filepath.Base(shardPath), readErr)
			return nil
		}
	}
}

// materializeRows writes each usable row's audio payload to the scratch
// directory and builds the matching import item. Rows without audio or
// transcript are counted as missing.
func materializeRows(rows []shardRow, shardBase, tmpDir string, next *int, result *Result) []Item {
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		idx := *next
		*next++
		text := strings.TrimSpace(row.Text)
		if text == "" || len(row.Audio.Bytes) == 0 {
			result.Missing++
			continue
		}
		sentence := FormatSentence(text)
		fileID := identity.FileID(fmt.Sprintf("%s_%d", shardBase, idx), sentence)
		clipName := "people_speech_" + fileID + ".mp3"
		payload := filepath.Join(tmpDir, fmt.Sprintf("payload-%d%s", idx, payloadExt(row.Audio.Bytes, row.Audio.Path)))
		if err := os.WriteFile(payload, row.Audio.Bytes, 0o644); err != nil {
			result.recordFailure(clipName, err)
			continue
		}
		items = append(items, Item{ClipName: clipName, Sentence: sentence, SourcePath: payload})
	}
	return items
}

// payloadExt picks a scratch-file extension from the payload header, falling
// back to the path recorded in the shard. People's Speech audio is FLAC.
func payloadExt(data []byte, path string) string {
	switch {
	case bytes.HasPrefix(data, []byte("fLaC")):
		return ".flac"
	case bytes.HasPrefix(data, []byte("RIFF")):
		return ".wav"
	case bytes.HasPrefix(data, []byte("OggS")):
		return ".ogg"
	}
	if ext := filepath.Ext(path); ext != "" {
		return ext
	}
	return ".flac"
}
