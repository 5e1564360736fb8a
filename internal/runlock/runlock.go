// Package runlock enforces single-instance execution against a corpus root.
// The manifest is read fully at the start of a run and written fully at the
// end, so two concurrent runs would silently clobber each other's output.
package runlock

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"

	"corpuskit/internal/services"
)

// Lock guards a corpus root with an advisory file lock.
type Lock struct {
	path string
	lock *flock.Flock
}

// LockFileName is created inside the corpus root while a run is active.
const LockFileName = ".corpuskit.lock"

// New prepares a lock for the given corpus root. Nothing is acquired yet.
func New(root string) *Lock {
	path := filepath.Join(root, LockFileName)
	return &Lock{path: path, lock: flock.New(path)}
}

// Path returns the lock file location.
func (l *Lock) Path() string { return l.path }

// Acquire takes the lock without blocking. A second corpuskit run against
// the same root fails immediately instead of corrupting the manifest.
func (l *Lock) Acquire() error {
	ok, err := l.lock.TryLock()
	if err != nil {
		return services.Wrap(services.ErrLocked, "", "acquire run lock",
			fmt.Sprintf("Unable to acquire lock %s", l.path), err)
	}
	if !ok {
		return services.Wrap(services.ErrLocked, "", "acquire run lock",
			"Another corpuskit run is already working on this corpus", nil)
	}
	return nil
}

// Release drops the lock. Safe to call when not held.
func (l *Lock) Release() error {
	return l.lock.Unlock()
}
