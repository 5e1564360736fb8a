package fetch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"corpuskit/internal/archive"
	"corpuskit/internal/logging"
	"corpuskit/internal/probe"
	"corpuskit/internal/services"
)

// Speakers lists the 24 L2-Arctic speaker archives in download order.
var Speakers = []string{
	"ABA", "ASI", "BWC", "EBVS", "ERMS",
	"HJK", "HKK", "HQTV", "LXC", "MBMPS",
	"NCC", "NJS", "PNV", "RRBI", "SKA",
	"SVBI", "THV", "TLV", "TNI", "TXHC",
	"YBAA", "YDCK", "YKWK", "ZHAA",
}

// metadataFiles are small auxiliary files fetched best-effort alongside the
// speaker archives.
var metadataFiles = []string{"LICENSE", "PROMPTS", "README.md", "README.pdf"}

// budgetMargin overshoots the requested hour budget by 20% so downstream
// trimming still has enough material after disqualified clips drop out.
const budgetMargin = 1.2

// L2ArcticOptions controls one L2-Arctic fetch run.
type L2ArcticOptions struct {
	// BaseURL is the archive repository root.
	BaseURL string
	// DownloadDir receives the zip files.
	DownloadDir string
	// ExtractDir receives one subdirectory per speaker.
	ExtractDir string
	// MaxHours stops the run once probed durations reach MaxHours * 1.2;
	// 0 means download everything.
	MaxHours float64
}

// L2Arctic downloads and extracts the speaker archives in order, probing
// extracted WAV durations into a running estimate. Already-extracted
// speakers are skipped but still count toward the estimate.
func (f *Fetcher) L2Arctic(ctx context.Context, opts L2ArcticOptions) (*Result, error) {
	result := &Result{}
	if err := os.MkdirAll(opts.DownloadDir, 0o755); err != nil {
		return result, services.Wrap(services.ErrPrecondition, "", "fetch l2arctic",
			fmt.Sprintf("Unable to create download directory %s", opts.DownloadDir), err)
	}
	if err := os.MkdirAll(opts.ExtractDir, 0o755); err != nil {
		return result, services.Wrap(services.ErrPrecondition, "", "fetch l2arctic",
			fmt.Sprintf("Unable to create extract directory %s", opts.ExtractDir), err)
	}
	if err := CheckFreeSpace(opts.DownloadDir, f.minFreeGiB); err != nil {
		return result, err
	}

	f.fetchMetadata(ctx, opts)

	for _, speaker := range Speakers {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		speakerDir := filepath.Join(opts.ExtractDir, speaker)
		if dirExists(speakerDir) {
			result.Skipped++
			result.EstimatedHours += treeHours(speakerDir)
			f.logger.Info("speaker already extracted",
				logging.String("speaker", speaker),
				logging.Float64("estimated_hours", result.EstimatedHours))
			if budgetReached(result.EstimatedHours, opts.MaxHours) {
				break
			}
			continue
		}

		zipName := speaker + ".zip"
		zipPath := filepath.Join(opts.DownloadDir, zipName)
		if !fileExists(zipPath) {
			if err := f.downloadFile(ctx, joinURL(opts.BaseURL, zipName), zipPath); err != nil {
				result.recordFailure(zipName, err)
				f.logger.Warn("speaker download failed",
					logging.String("speaker", speaker), logging.Error(err))
				continue
			}
			result.Downloaded++
		} else {
			result.Skipped++
		}

		if err := archive.ExtractZip(zipPath, speakerDir); err != nil {
			result.recordFailure(zipName, err)
			f.logger.Warn("speaker extraction failed",
				logging.String("speaker", speaker), logging.Error(err))
			os.RemoveAll(speakerDir)
			continue
		}

		result.EstimatedHours += treeHours(speakerDir)
		f.logger.Info("speaker ready",
			logging.String("speaker", speaker),
			logging.Float64("estimated_hours", result.EstimatedHours))
		if budgetReached(result.EstimatedHours, opts.MaxHours) {
			f.logger.Info("hour budget reached, stopping downloads",
				logging.Float64("estimated_hours", result.EstimatedHours),
				logging.Float64("max_hours", opts.MaxHours))
			break
		}
	}
	return result, nil
}

// fetchMetadata grabs the license and prompt files. They are optional, so
// failures are logged and never counted.
func (f *Fetcher) fetchMetadata(ctx context.Context, opts L2ArcticOptions) {
	for _, name := range metadataFiles {
		dest := filepath.Join(opts.DownloadDir, name)
		if fileExists(dest) {
			continue
		}
		if err := f.downloadFile(ctx, joinURL(opts.BaseURL, name), dest); err != nil {
			f.logger.Debug("metadata download failed",
				logging.String("file", name), logging.Error(err))
		}
	}
}

func budgetReached(estimatedHours, maxHours float64) bool {
	return maxHours > 0 && estimatedHours >= maxHours*budgetMargin
}

// treeHours sums WAV durations under root via header probes. Unreadable
// files contribute nothing.
func treeHours(root string) float64 {
	var seconds float64
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".wav") {
			return nil
		}
		if info, err := probe.WavInfo(path); err == nil {
			seconds += info.DurationSeconds
		}
		return nil
	})
	return seconds / 3600
}

func dirExists(path string) bool {
	stat, err := os.Stat(path)
	return err == nil && stat.IsDir()
}
