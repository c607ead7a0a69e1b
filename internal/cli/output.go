package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"

	service "github.com/okian/timeattack/internal/app"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // A pipeline stage failed
	ExitCommandError = 2 // Bad flags, config or arguments
)

// ExitError carries the process exit code of a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// emit writes v as JSON, or text when the output format is text.
func emit(w io.Writer, opts *RootOptions, v any, text string) error {
	if opts.Output == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := io.WriteString(w, text)
	return err
}

// withService opens the pipeline from the loaded config, runs fn and closes it.
func withService(ctx context.Context, opts *RootOptions, fn func(ctx context.Context, svc *service.Service) error) error {
	svc, err := service.Open(ctx, opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "open pipeline", err)
	}
	runErr := fn(ctx, svc)
	if err := svc.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
