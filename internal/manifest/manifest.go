// Package manifest reads and writes the tab-separated clip manifests that
// describe a speech corpus. The format is the thirteen-column CommonVoice
// validated.tsv layout: no quoting, one record per line, UTF-8.
package manifest

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"corpuskit/internal/fileutil"
	"corpuskit/internal/logging"
	"corpuskit/internal/services"
)

// Corpus is an ordered collection of manifest records.
type Corpus struct {
	// Path records where the corpus was loaded from; informational only.
	Path    string
	Records []Record
	// Skipped counts malformed rows dropped during Load.
	Skipped int
}

// Len returns the number of records.
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Records)
}

// ClipNames returns the clip filename of every record, in order.
func (c *Corpus) ClipNames() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.Records))
	for _, rec := range c.Records {
		names = append(names, rec.Path)
	}
	return names
}

// Clone returns a deep copy so callers can mutate freely.
func (c *Corpus) Clone() *Corpus {
	if c == nil {
		return nil
	}
	clone := &Corpus{Path: c.Path, Skipped: c.Skipped}
	clone.Records = make([]Record, len(c.Records))
	copy(clone.Records, c.Records)
	return clone
}

// Load reads a manifest file. The header must carry client_id, path, and
// sentence at their fixed positions; otherwise the file is rejected as a
// schema mismatch. Rows with fewer than four fields are skipped with a
// warning and counted; rows with four or more fields have missing tail
// columns padded empty.
func Load(path string, logger *slog.Logger) (*Corpus, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "manifest")

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, services.Wrap(services.ErrPrecondition, "", "load manifest", fmt.Sprintf("Manifest %s does not exist", path), err)
		}
		return nil, services.Wrap(services.ErrPrecondition, "", "load manifest", fmt.Sprintf("Unable to open manifest %s", path), err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, services.Wrap(services.ErrSchema, "", "load manifest", fmt.Sprintf("Unable to read manifest %s", path), err)
		}
		return nil, services.Wrap(services.ErrSchema, "", "load manifest", fmt.Sprintf("Manifest %s is empty", path), nil)
	}
	if err := validateHeader(scanner.Text()); err != nil {
		return nil, err
	}

	corpus := &Corpus{Path: path}
	lineNo := 1
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 4 || len(fields) > len(Columns) {
			corpus.Skipped++
			logger.Warn("skipping malformed manifest row",
				logging.String(logging.FieldManifest, path),
				logging.Int("line", lineNo),
				logging.Int("fields", len(fields)))
			continue
		}
		corpus.Records = append(corpus.Records, recordFromFields(fields))
	}
	if err := scanner.Err(); err != nil {
		return nil, services.Wrap(services.ErrSchema, "", "load manifest", fmt.Sprintf("Unable to read manifest %s", path), err)
	}
	return corpus, nil
}

// maxLineBytes bounds a single manifest line; sentences are short but pasted
// junk should fail loudly rather than hang the scanner.
const maxLineBytes = 1 << 20

func validateHeader(line string) error {
	cols := strings.Split(strings.TrimRight(line, "\r"), "\t")
	ok := len(cols) >= 4 &&
		cols[0] == "client_id" &&
		cols[1] == "path" &&
		cols[3] == "sentence"
	if !ok {
		return services.Wrap(services.ErrSchema, "", "load manifest",
			fmt.Sprintf("Unexpected manifest header %q; want client_id, path, sentence at their fixed positions", line), nil)
	}
	return nil
}

// Write persists the corpus to path atomically: header first, then one line
// per record in corpus order. A failure at any point leaves the previous
// manifest untouched.
func Write(path string, corpus *Corpus) error {
	af, err := fileutil.NewAtomicFile(path)
	if err != nil {
		return services.Wrap(services.ErrPrecondition, "", "write manifest", fmt.Sprintf("Unable to create manifest %s", path), err)
	}

	w := bufio.NewWriter(af)
	if err := writeAll(w, corpus.Records, true); err != nil {
		_ = af.Abort()
		return services.Wrap(services.ErrPrecondition, "", "write manifest", fmt.Sprintf("Unable to write manifest %s", path), err)
	}
	if err := w.Flush(); err != nil {
		_ = af.Abort()
		return services.Wrap(services.ErrPrecondition, "", "write manifest", fmt.Sprintf("Unable to write manifest %s", path), err)
	}
	if err := af.Commit(); err != nil {
		return services.Wrap(services.ErrPrecondition, "", "write manifest", fmt.Sprintf("Unable to write manifest %s", path), err)
	}
	return nil
}

// Append adds records to an existing manifest, creating it with a header when
// absent. Converters use this to stream rows out batch by batch.
func Append(path string, records []Record) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return services.Wrap(services.ErrPrecondition, "", "append manifest", fmt.Sprintf("Unable to open manifest %s", path), err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return services.Wrap(services.ErrPrecondition, "", "append manifest", fmt.Sprintf("Unable to stat manifest %s", path), err)
	}

	w := bufio.NewWriter(file)
	if err := writeAll(w, records, info.Size() == 0); err != nil {
		return services.Wrap(services.ErrPrecondition, "", "append manifest", fmt.Sprintf("Unable to append to manifest %s", path), err)
	}
	if err := w.Flush(); err != nil {
		return services.Wrap(services.ErrPrecondition, "", "append manifest", fmt.Sprintf("Unable to append to manifest %s", path), err)
	}
	return file.Close()
}

func writeAll(w *bufio.Writer, records []Record, withHeader bool) error {
	if withHeader {
		if _, err := w.WriteString(strings.Join(Columns, "\t") + "\n"); err != nil {
			return err
		}
	}
	for _, rec := range records {
		if _, err := w.WriteString(strings.Join(rec.fields(), "\t") + "\n"); err != nil {
			return err
		}
	}
	return nil
}
