// Package clips manages the flat directory of audio files backing a
// manifest. Batch mutations never abort on a single bad file; failures are
// logged, counted, and surfaced in the caller's summary.
package clips

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"corpuskit/internal/fileutil"
	"corpuskit/internal/logging"
	"corpuskit/internal/services"
)

// maxFailureExamples caps how many failed filenames a BatchResult retains
// for the summary.
const maxFailureExamples = 5

// BatchResult reports the outcome of a per-file batch operation.
type BatchResult struct {
	Succeeded int
	Failed    int
	// Examples holds the first few failures as "name: reason".
	Examples []string
}

func (r *BatchResult) recordFailure(name string, err error) {
	r.Failed++
	if len(r.Examples) < maxFailureExamples {
		r.Examples = append(r.Examples, fmt.Sprintf("%s: %v", name, err))
	}
}

// List returns the names of regular files directly inside dir, sorted.
// Subdirectories are ignored; the store is flat.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, services.Wrap(services.ErrPrecondition, "", "list clips",
				fmt.Sprintf("Clips directory %s does not exist", dir), err)
		}
		return nil, services.Wrap(services.ErrPrecondition, "", "list clips",
			fmt.Sprintf("Unable to read clips directory %s", dir), err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// Delete removes the named clips from dir one by one. A clip already absent
// counts as success. Per-file failures are logged and counted, never fatal.
func Delete(dir string, names []string, logger *slog.Logger) (BatchResult, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "clips")
	if err := requireDir(dir, "delete clips"); err != nil {
		return BatchResult{}, err
	}

	var result BatchResult
	for _, name := range names {
		if !safeName(name) {
			result.recordFailure(name, fmt.Errorf("clip name escapes the store"))
			logger.Warn("refusing to delete clip outside store", logging.String(logging.FieldClip, name))
			continue
		}
		err := os.Remove(filepath.Join(dir, name))
		if err != nil && !os.IsNotExist(err) {
			result.recordFailure(name, err)
			logger.Warn("failed to delete clip",
				logging.String(logging.FieldClip, name),
				logging.Error(err))
			continue
		}
		result.Succeeded++
	}
	return result, nil
}

// Copy copies the named clips from srcDir into dstDir with SHA-256
// verification. Per-file failures are logged and counted, never fatal.
func Copy(srcDir, dstDir string, names []string, logger *slog.Logger) (BatchResult, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "clips")
	if err := requireDir(srcDir, "copy clips"); err != nil {
		return BatchResult{}, err
	}
	if err := requireDir(dstDir, "copy clips"); err != nil {
		return BatchResult{}, err
	}

	var result BatchResult
	for _, name := range names {
		if !safeName(name) {
			result.recordFailure(name, fmt.Errorf("clip name escapes the store"))
			logger.Warn("refusing to copy clip outside store", logging.String(logging.FieldClip, name))
			continue
		}
		src := filepath.Join(srcDir, name)
		dst := filepath.Join(dstDir, name)
		if err := fileutil.CopyFileVerified(src, dst); err != nil {
			result.recordFailure(name, err)
			logger.Warn("failed to copy clip",
				logging.String(logging.FieldClip, name),
				logging.Error(err))
			continue
		}
		result.Succeeded++
	}
	return result, nil
}

// safeName rejects clip names that would resolve outside the store
// directory.
func safeName(name string) bool {
	return name != "" && name != "." && name != ".." && filepath.Base(name) == name
}

func requireDir(dir, operation string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return services.Wrap(services.ErrPrecondition, "", operation,
				fmt.Sprintf("Clips directory %s does not exist", dir), err)
		}
		return services.Wrap(services.ErrPrecondition, "", operation,
			fmt.Sprintf("Unable to access clips directory %s", dir), err)
	}
	if !info.IsDir() {
		return services.Wrap(services.ErrPrecondition, "", operation,
			fmt.Sprintf("%s is not a directory", dir), nil)
	}
	return nil
}
