package helpers

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/compozy/listview/engine/catalog"
	"github.com/compozy/listview/engine/collection"
	"github.com/compozy/listview/engine/query"
	"github.com/compozy/listview/engine/remote"
)

// CLI error codes
const (
	ErrCodeCanceled        = "OPERATION_CANCELED"
	ErrCodeInvalidArgument = "INVALID_ARGUMENT"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeConflict        = "CONFLICT"
	ErrCodeFetch           = "FETCH_FAILED"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// CliError is an error categorized for command output.
type CliError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Err     error  `json:"-"`
}

func (e *CliError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Details)
	}
	return e.Message
}

func (e *CliError) Unwrap() error {
	return e.Err
}

func NewCliError(code, message string, details ...string) *CliError {
	e := &CliError{Code: code, Message: message}
	if len(details) > 0 {
		e.Details = details[0]
	}
	return e
}

// Categorize converts engine errors to CLI errors.
func Categorize(err error) *CliError {
	var cliErr *CliError
	if errors.As(err, &cliErr) {
		return cliErr
	}
	wrap := func(code, message string) *CliError {
		return &CliError{Code: code, Message: message, Details: err.Error(), Err: err}
	}
	switch {
	case errors.Is(err, context.Canceled):
		return wrap(ErrCodeCanceled, "Operation was canceled")
	case errors.Is(err, query.ErrInvalidArgument),
		errors.Is(err, collection.ErrInvalidRecord),
		errors.Is(err, collection.ErrImmutableID),
		errors.Is(err, catalog.ErrInvalidTheme):
		return wrap(ErrCodeInvalidArgument, "Invalid input")
	case errors.Is(err, collection.ErrNotFound), errors.Is(err, catalog.ErrUnknownKind):
		return wrap(ErrCodeNotFound, "Not found")
	case errors.Is(err, collection.ErrDuplicateID):
		return wrap(ErrCodeConflict, "Record already exists")
	case errors.Is(err, remote.ErrFetch):
		return wrap(ErrCodeFetch, "Failed to load data")
	default:
		return wrap(ErrCodeInternal, "Command failed")
	}
}

// WriteError prints err to w as a JSON object or a styled line.
func WriteError(w io.Writer, err error, format OutputFormat, color bool) {
	cliErr := Categorize(err)
	if format == OutputFormatJSON {
		_ = NewOutputWriter(w, OutputFormatJSON, false).WriteJSON(map[string]any{"error": cliErr})
		return
	}
	r := lipgloss.NewRenderer(w)
	style := r.NewStyle().Bold(true)
	detail := r.NewStyle()
	if color {
		style = style.Foreground(lipgloss.Color("#FF6B6B"))
		detail = detail.Foreground(lipgloss.Color("#888888"))
	}
	fmt.Fprintln(w, style.Render("✗ "+cliErr.Message))
	if cliErr.Details != "" {
		fmt.Fprintln(w, detail.Render("  "+cliErr.Details))
	}
}
