package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCode classifies per-file failures
type ErrorCode string

const (
	ErrorUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	ErrorLoadFailed        ErrorCode = "LOAD_FAILED"
	ErrorSkipExisting      ErrorCode = "SKIP_EXISTING"
	ErrorSaveFailed        ErrorCode = "SAVE_FAILED"
	ErrorUnexpected        ErrorCode = "UNEXPECTED"
)

// ProcessingError represents a structured per-file error
type ProcessingError struct {
	Code      ErrorCode
	Message   string
	Path      string
	Timestamp time.Time
	Cause     error
}

func (e *ProcessingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ProcessingError) Unwrap() error {
	return e.Cause
}

func newError(code ErrorCode, path, message string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      code,
		Message:   message,
		Path:      path,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewUnsupportedFormatError(path, ext string) *ProcessingError {
	return newError(ErrorUnsupportedFormat, path, fmt.Sprintf("unsupported format %q", ext), nil)
}

func NewLoadError(path string, cause error) *ProcessingError {
	return newError(ErrorLoadFailed, path, "could not open image", cause)
}

// NewSkipExistingError reports a policy skip, not a failure
func NewSkipExistingError(path string) *ProcessingError {
	return newError(ErrorSkipExisting, path, "already exists (overwrite disabled)", nil)
}

func NewSaveError(path string, cause error) *ProcessingError {
	return newError(ErrorSaveFailed, path, "could not save image", cause)
}

func NewUnexpectedError(path string, cause error) *ProcessingError {
	return newError(ErrorUnexpected, path, "unexpected error", cause)
}

// CodeOf extracts the ErrorCode carried by err, or ErrorUnexpected
func CodeOf(err error) ErrorCode {
	var pe *ProcessingError
	if stderrors.As(err, &pe) {
		return pe.Code
	}
	return ErrorUnexpected
}

// IsSkip reports whether err is a skip-existing policy outcome
func IsSkip(err error) bool {
	return err != nil && CodeOf(err) == ErrorSkipExisting
}
