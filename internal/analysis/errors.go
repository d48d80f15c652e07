package analysis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/models"
)

var (
	ErrNotFound    = models.ErrNotFound
	ErrUnknownTool = errors.New("unknown tool")
)

// NotFoundError is returned when a referenced notice does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// DownloadError wraps a failed document download.
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// UnsupportedTypeError is returned for URLs whose extension has no reader.
type UnsupportedTypeError struct {
	Extension string
}

func (e *UnsupportedTypeError) Error() string {
	if e.Extension == "" {
		return "unsupported document type: no file extension"
	}
	return fmt.Sprintf("unsupported document type %q", e.Extension)
}

// ParseError is returned when a downloaded document cannot be read.
type ParseError struct {
	Format string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("read %s document: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError lists the tool arguments that failed validation.
type ValidationError struct {
	Tool   string
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, strings.Join(e.Fields, "; "))
}
