package features

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"corpuskit/internal/services"
)

// Cut is one row of a part's cut manifest: a clip, its transcript, and the
// feature artifact computed from it. Features holds the artifact name
// relative to the manifest's own directory.
type Cut struct {
	ID       string  `json:"id"`
	Clip     string  `json:"clip"`
	Sentence string  `json:"sentence"`
	Features string  `json:"features"`
	Speed    float64 `json:"speed"`
	Part     string  `json:"part"`
}

// WriteCuts writes a gzip-compressed JSON-lines cut manifest through a
// temporary file, renamed into place once fully flushed.
func WriteCuts(path string, cuts []Cut) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return services.Wrap(services.ErrPrecondition, "", "write cuts",
			fmt.Sprintf("Unable to create directory for %s", path), err)
	}
	tmp := path + ".partial"
	f, err := os.Create(tmp)
	if err != nil {
		return services.Wrap(services.ErrPrecondition, "", "write cuts",
			fmt.Sprintf("Unable to create %s", tmp), err)
	}
	gz := gzip.NewWriter(f)
	enc := json.NewEncoder(gz)
	for _, cut := range cuts {
		if err := enc.Encode(cut); err != nil {
			gz.Close()
			f.Close()
			os.Remove(tmp)
			return services.Wrap(services.ErrPrecondition, "", "write cuts",
				fmt.Sprintf("Unable to write %s", path), err)
		}
	}
	if err := gz.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return services.Wrap(services.ErrPrecondition, "", "write cuts",
			fmt.Sprintf("Unable to finalize %s", path), err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return services.Wrap(services.ErrPrecondition, "", "write cuts",
			fmt.Sprintf("Unable to finalize %s", path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return services.Wrap(services.ErrPrecondition, "", "write cuts",
			fmt.Sprintf("Unable to finalize %s", path), err)
	}
	return nil
}

// ReadCuts loads every row of a cut manifest in file order.
func ReadCuts(path string) ([]Cut, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrPrecondition, "", "read cuts",
			fmt.Sprintf("Unable to open cut manifest %s", path), err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, services.Wrap(services.ErrSchema, "", "read cuts",
			fmt.Sprintf("Cut manifest %s is not gzip data", path), err)
	}
	defer gz.Close()

	var cuts []Cut
	dec := json.NewDecoder(gz)
	for {
		var cut Cut
		if err := dec.Decode(&cut); err != nil {
			if errors.Is(err, io.EOF) {
				return cuts, nil
			}
			return nil, services.Wrap(services.ErrSchema, "", "read cuts",
				fmt.Sprintf("Cut manifest %s has a malformed row", path), err)
		}
		cuts = append(cuts, cut)
	}
}

// CombineResult reports what a combine pass assembled.
type CombineResult struct {
	Parts int
	Cuts  int
}

// Combine concatenates cut manifests into one, preserving input order.
// Every referenced feature artifact must exist on disk, resolved against
// the directory of the manifest that references it; the first missing
// artifact aborts the combine. References are rewritten relative to the
// output manifest so the combined file stays self-contained.
func Combine(inputs []string, output string) (*CombineResult, error) {
	result := &CombineResult{}
	outDir := filepath.Dir(output)
	var combined []Cut
	for _, input := range inputs {
		cuts, err := ReadCuts(input)
		if err != nil {
			return nil, err
		}
		baseDir := filepath.Dir(input)
		for i := range cuts {
			artifact := filepath.Join(baseDir, cuts[i].Features)
			if stat, err := os.Stat(artifact); err != nil || stat.Size() == 0 {
				return nil, services.Wrap(services.ErrPrecondition, "", "combine cuts",
					fmt.Sprintf("Cut %s references missing feature artifact %s", cuts[i].ID, artifact), err)
			}
			if rel, err := filepath.Rel(outDir, artifact); err == nil {
				cuts[i].Features = rel
			} else {
				cuts[i].Features = artifact
			}
		}
		combined = append(combined, cuts...)
		result.Parts++
	}
	result.Cuts = len(combined)
	if err := WriteCuts(output, combined); err != nil {
		return nil, err
	}
	return result, nil
}
