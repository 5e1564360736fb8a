package runlock

import (
	"errors"
	"testing"

	"corpuskit/internal/services"
)

func TestAcquireAndRelease(t *testing.T) {
	root := t.TempDir()

	lock := New(root)
	if err := lock.Acquire(); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	second := New(root)
	err := second.Acquire()
	if !errors.Is(err, services.ErrLocked) {
		t.Fatalf("second acquire err = %v, want lock conflict", err)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}

	if err := second.Acquire(); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	if err := second.Release(); err != nil {
		t.Fatal(err)
	}
}

func TestReleaseWithoutAcquire(t *testing.T) {
	lock := New(t.TempDir())
	if err := lock.Release(); err != nil {
		t.Fatalf("release without acquire should be a no-op, got %v", err)
	}
}
