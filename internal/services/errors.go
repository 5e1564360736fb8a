package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPrecondition  = errors.New("precondition failure")
	ErrSchema        = errors.New("schema error")
	ErrRow           = errors.New("row error")
	ErrMediaIO       = errors.New("media io error")
	ErrInvalidRatio  = errors.New("invalid ratio")
	ErrConfiguration = errors.New("configuration error")
	ErrExternalTool  = errors.New("external tool error")
	ErrLocked        = errors.New("corpus locked")
)

// Wrap builds an error message that includes task context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, task, operation, message string, err error) error {
	detail := buildDetail(task, operation, message)
	if marker == nil {
		marker = ErrMediaIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Fatal reports whether the error must abort the whole batch before (or
// instead of) any mutation. Row and per-file media errors are recoverable;
// everything else in the taxonomy is not.
func Fatal(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrRow), errors.Is(err, ErrMediaIO):
		return false
	}
	return true
}

// ExitCode maps an error to the process exit status: 0 for nil, 1 for fatal
// precondition/schema/configuration failures. Batches that finish with only
// recoverable per-file errors report exit code 2 through their summary, not
// through an error value.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

func buildDetail(task, operation, message string) string {
	parts := make([]string, 0, 3)
	if task = strings.TrimSpace(task); task != "" {
		parts = append(parts, task)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "task failure"
	}
	return strings.Join(parts, ": ")
}
