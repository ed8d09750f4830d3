package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypePageStructure ErrorType = "page_structure"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeEmptyListing  ErrorType = "empty_listing"
	ErrorTypeFetch         ErrorType = "fetch"
	ErrorTypeWrite         ErrorType = "write"
	ErrorTypeNetwork       ErrorType = "network"
	ErrorTypeParsing       ErrorType = "parsing"
	ErrorTypeUnknown       ErrorType = "unknown"
)

// Error represents a classified failure with an optional HTTP status code
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error: %s", e.Type, e.Message)
	if e.Code != 0 {
		msg = fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same type
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Message == "" || t.Message == e.Message)
}

// New creates an error of the given type
func New(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

// Wrap attaches a type and message to an underlying error
func Wrap(errorType ErrorType, err error, message string) *Error {
	return &Error{Type: errorType, Message: message, Err: err}
}

// PageStructure reports a marker element that never appeared
func PageStructure(marker string, err error) *Error {
	return Wrap(ErrorTypePageStructure, err, fmt.Sprintf("expected marker %q not found", marker))
}

// Fetch reports a non-200 response
func Fetch(statusCode int, url string) *Error {
	return &Error{Type: ErrorTypeFetch, Message: url, Code: statusCode}
}

// Write reports a local I/O failure while persisting an asset
func Write(path string, err error) *Error {
	return Wrap(ErrorTypeWrite, err, path)
}

// TypeOf returns the ErrorType carried anywhere in err's chain
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsFatal reports whether an error aborts the whole user query
func IsFatal(err error) bool {
	switch TypeOf(err) {
	case ErrorTypeFetch, ErrorTypeNotFound, ErrorTypeEmptyListing:
		return false
	default:
		return err != nil
	}
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork:
		return true
	default:
		return false
	}
}
