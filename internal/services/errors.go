package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation          = errors.New("validation error")
	ErrSearch              = errors.New("search error")
	ErrDownload            = errors.New("download error")
	ErrPoolEmpty           = errors.New("resource pool empty")
	ErrNoResourceAvailable = errors.New("no resource available")
	ErrComposition         = errors.New("composition error")
	ErrPersistence         = errors.New("persistence error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		return fmt.Errorf("%s: %w", detail, err)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether err must abort the whole run rather than degrade a
// single item. Only persistence failures and context cancellation qualify.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrPersistence) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Classify returns a short label for the marker carried by err, used in
// summaries and log attributes.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPersistence):
		return "persistence"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrSearch):
		return "search"
	case errors.Is(err, ErrDownload):
		return "download"
	case errors.Is(err, ErrNoResourceAvailable), errors.Is(err, ErrPoolEmpty):
		return "exhausted"
	case errors.Is(err, ErrComposition):
		return "composition"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
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
