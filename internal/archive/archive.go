// Package archive extracts downloaded dataset archives (zip, tar.gz) into a
// destination directory. Entry paths are validated so a hostile archive
// cannot write outside the destination.
package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"corpuskit/internal/services"
)

// Extract dispatches on the archive extension: .zip, .tar.gz, or .tgz.
func Extract(src, destDir string) error {
	lower := strings.ToLower(src)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return ExtractZip(src, destDir)
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return ExtractTarGz(src, destDir)
	}
	return services.Wrap(services.ErrMediaIO, "", "extract",
		fmt.Sprintf("Unsupported archive format: %s", filepath.Base(src)), nil)
}

// ExtractZip unpacks a zip archive into destDir. Directories are created as
// needed; non-regular entries (symlinks, devices) are ignored.
func ExtractZip(src, destDir string) error {
	reader, err := zip.OpenReader(src)
	if err != nil {
		return services.Wrap(services.ErrMediaIO, "", "extract",
			fmt.Sprintf("Unable to open archive %s", filepath.Base(src)), err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if err := extractZipEntry(file, destDir); err != nil {
			return services.Wrap(services.ErrMediaIO, "", "extract",
				fmt.Sprintf("Unable to extract from %s", filepath.Base(src)), err)
		}
	}
	return nil
}

func extractZipEntry(file *zip.File, destDir string) error {
	target, err := securePath(destDir, file.Name)
	if err != nil {
		return err
	}
	mode := file.Mode()
	if mode.IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if !mode.IsRegular() {
		return nil
	}
	rc, err := file.Open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", file.Name, err)
	}
	defer rc.Close()
	return writeEntry(target, rc, mode.Perm())
}

// ExtractTarGz unpacks a gzip-compressed tarball into destDir. Non-regular
// entries (symlinks, devices) are ignored.
func ExtractTarGz(src, destDir string) error {
	f, err := os.Open(src)
	if err != nil {
		return services.Wrap(services.ErrMediaIO, "", "extract",
			fmt.Sprintf("Unable to open archive %s", filepath.Base(src)), err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return services.Wrap(services.ErrMediaIO, "", "extract",
			fmt.Sprintf("Archive %s is not gzip data", filepath.Base(src)), err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return services.Wrap(services.ErrMediaIO, "", "extract",
				fmt.Sprintf("Unable to read archive %s", filepath.Base(src)), err)
		}
		if err := extractTarEntry(header, tr, destDir); err != nil {
			return services.Wrap(services.ErrMediaIO, "", "extract",
				fmt.Sprintf("Unable to extract from %s", filepath.Base(src)), err)
		}
	}
}

func extractTarEntry(header *tar.Header, reader io.Reader, destDir string) error {
	target, err := securePath(destDir, header.Name)
	if err != nil {
		return err
	}
	switch header.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(target, 0o755)
	case tar.TypeReg:
		return writeEntry(target, reader, header.FileInfo().Mode().Perm())
	}
	return nil
}

func writeEntry(target string, reader io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, reader); err != nil {
		out.Close()
		os.Remove(target)
		return err
	}
	return out.Close()
}

// securePath resolves an entry name under destDir, refusing names that would
// escape it via ".." components.
func securePath(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.Clean(name))
	rel, err := filepath.Rel(destDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("entry %q escapes the destination directory", name)
	}
	return target, nil
}
