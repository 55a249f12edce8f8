package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration marks missing or invalid credentials/config. Fatal:
	// the run aborts before any state mutation.
	ErrConfiguration = errors.New("configuration error")
	// ErrQuotaExhausted marks upstream quota errors. The caller skips the
	// affected channel and keeps the run alive.
	ErrQuotaExhausted = errors.New("quota exhausted")
	// ErrValidation marks generated payloads that fail the acceptance checks.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks missing upstream resources.
	ErrNotFound = errors.New("not found")
	// ErrEmptyQueue is returned when no eligible keyword remains.
	ErrEmptyQueue = errors.New("keyword queue empty")
	// ErrTransient marks recoverable collaborator failures.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Fatal reports whether an error must abort the run before state mutation.
// Only admission-level configuration errors qualify.
func Fatal(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
