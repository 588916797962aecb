package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDerivation    = errors.New("derivation error")
	ErrStorage       = errors.New("storage error")
	ErrFetch         = errors.New("fetch error")
	ErrTranscode     = errors.New("transcode error")
	ErrUpload        = errors.New("upload error")
	ErrCatalog       = errors.New("catalog error")
	ErrConfiguration = errors.New("configuration error")
)

// Kind labels used in logs and run summaries.
const (
	KindDerivation    = "derivation"
	KindStorage       = "storage"
	KindFetch         = "fetch"
	KindTranscode     = "transcode"
	KindUpload        = "upload"
	KindCatalog       = "catalog"
	KindConfiguration = "configuration"
	KindTimeout       = "timeout"
	KindCanceled      = "canceled"
	KindUnknown       = "unknown"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrStorage
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind reports the error kind carried by err. Marker kinds win over timeout and
// cancellation so a timed-out fetch is still reported as a fetch failure.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDerivation):
		return KindDerivation
	case errors.Is(err, ErrStorage):
		return KindStorage
	case errors.Is(err, ErrFetch):
		return KindFetch
	case errors.Is(err, ErrTranscode):
		return KindTranscode
	case errors.Is(err, ErrUpload):
		return KindUpload
	case errors.Is(err, ErrCatalog):
		return KindCatalog
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	default:
		return KindUnknown
	}
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
