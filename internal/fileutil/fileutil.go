// Package fileutil provides filesystem helpers shared by the manifest codec,
// the clip store, and the converters: verified copies, cross-device moves, and
// atomic file replacement.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
)

// CopyFile streams src to dst using io.Copy with default permissions (0o644).
func CopyFile(src, dst string) error {
	return CopyFileMode(src, dst, 0o644)
}

// CopyFileMode streams src to dst, setting the given file mode on dst.
func CopyFileMode(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// CopyFileVerified streams src to dst with SHA256 + size integrity
// verification. Removes dst on mismatch.
func CopyFileVerified(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	srcSize := srcInfo.Size()

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	tee := io.TeeReader(in, srcHasher)
	multi := io.MultiWriter(out, dstHasher)

	written, err := io.Copy(multi, tee)
	if err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if written != srcSize {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcSize, written)
	}

	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		_ = os.Remove(dst)
		return fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}

	return nil
}

// MoveFile renames src to dst, falling back to copy+delete for cross-device
// moves.
func MoveFile(src, dst string) error {
	renameErr := os.Rename(src, dst)
	if renameErr == nil {
		return nil
	}

	var linkErr *os.LinkError
	if errors.As(renameErr, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV) {
		if err := CopyFile(src, dst); err != nil {
			return err
		}
		return os.Remove(src)
	}
	return renameErr
}

// WriteFileAtomic writes data to path by way of a temporary file in the same
// directory followed by a rename, so readers never observe a partial file.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	af, err := NewAtomicFile(path)
	if err != nil {
		return err
	}
	if _, err := af.Write(data); err != nil {
		_ = af.Abort()
		return err
	}
	af.mode = mode
	return af.Commit()
}

// AtomicFile accumulates writes in a temporary sibling of the target path.
// Commit fsyncs and renames it into place; Abort discards it. A rewrite of a
// manifest that fails midway leaves the original untouched.
type AtomicFile struct {
	target string
	tmp    *os.File
	mode   os.FileMode
	done   bool
}

// NewAtomicFile creates a temporary file next to target.
func NewAtomicFile(target string) (*AtomicFile, error) {
	tmp, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+".partial-*")
	if err != nil {
		return nil, err
	}
	return &AtomicFile{target: target, tmp: tmp, mode: 0o644}, nil
}

// Name returns the final target path.
func (a *AtomicFile) Name() string { return a.target }

func (a *AtomicFile) Write(p []byte) (int, error) {
	return a.tmp.Write(p)
}

// Commit flushes the temporary file to disk and renames it over the target.
func (a *AtomicFile) Commit() error {
	if a.done {
		return nil
	}
	a.done = true

	if err := a.tmp.Sync(); err != nil {
		_ = a.tmp.Close()
		_ = os.Remove(a.tmp.Name())
		return err
	}
	if err := a.tmp.Close(); err != nil {
		_ = os.Remove(a.tmp.Name())
		return err
	}
	if err := os.Chmod(a.tmp.Name(), a.mode); err != nil {
		_ = os.Remove(a.tmp.Name())
		return err
	}
	if err := os.Rename(a.tmp.Name(), a.target); err != nil {
		_ = os.Remove(a.tmp.Name())
		return err
	}
	return nil
}

// Abort closes and removes the temporary file without touching the target.
func (a *AtomicFile) Abort() error {
	if a.done {
		return nil
	}
	a.done = true
	_ = a.tmp.Close()
	return os.Remove(a.tmp.Name())
}
