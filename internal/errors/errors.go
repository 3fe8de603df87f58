// Package errors provides error types and handling for page automation.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"

	"github.com/go-rod/rod"
)

// ErrorType categorizes errors for handling decisions.
type ErrorType int

const (
	// Unknown is an uncategorized error.
	Unknown ErrorType = iota
	// Session represents browser launch or connection failures.
	Session
	// Open represents page navigation failures.
	Open
	// NotFound represents a locator that matched nothing.
	NotFound
	// NotInteractable represents an element that cannot receive input.
	NotInteractable
	// Range represents an index outside the available options or windows.
	Range
	// InvalidArgument represents a rejected argument.
	InvalidArgument
	// Timeout represents timeout errors.
	Timeout
	// Script represents JavaScript evaluation errors.
	Script
	// IO represents local file errors (cookies, screenshots).
	IO
	// Recognition represents OCR or slide matching failures.
	Recognition
	// Network represents network-related errors talking to services.
	Network
	// Cancelled represents context cancellation.
	Cancelled
)

// String returns the string representation of ErrorType.
func (t ErrorType) String() string {
	switch t {
	case Session:
		return "session"
	case Open:
		return "open"
	case NotFound:
		return "not_found"
	case NotInteractable:
		return "not_interactable"
	case Range:
		return "range"
	case InvalidArgument:
		return "invalid_argument"
	case Timeout:
		return "timeout"
	case Script:
		return "script"
	case IO:
		return "io"
	case Recognition:
		return "recognition"
	case Network:
		return "network"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsRetryable returns whether errors of this type should be retried.
// Only service calls are ever retried; page actions are not.
func (t ErrorType) IsRetryable() bool {
	switch t {
	case Network, Timeout:
		return true
	default:
		return false
	}
}

// PageError represents a categorized page automation error.
type PageError struct {
	Type       ErrorType
	Operation  string
	Target     string
	Message    string
	Cause      error
	StatusCode int
	Retryable  bool
}

// Error implements the error interface.
func (e *PageError) Error() string {
	var b strings.Builder
	b.WriteString(e.Type.String())
	b.WriteString(" error during ")
	b.WriteString(e.Operation)
	if e.Target != "" {
		b.WriteString(" on ")
		b.WriteString(e.Target)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, " (caused by: %v)", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *PageError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches a target.
func (e *PageError) Is(target error) bool {
	t, ok := target.(*PageError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// New creates a new PageError.
func New(errType ErrorType, operation, target, message string, cause error) *PageError {
	return &PageError{
		Type:      errType,
		Operation: operation,
		Target:    target,
		Message:   message,
		Cause:     cause,
		Retryable: errType.IsRetryable(),
	}
}

// NewSessionError creates a browser session error.
func NewSessionError(operation string, cause error) *PageError {
	return New(Session, operation, "", "browser session failed", cause)
}

// NewOpenError creates a navigation error.
func NewOpenError(url string, cause error) *PageError {
	return New(Open, "open", url, fmt.Sprintf("failed to open %s", url), cause)
}

// NewNotFoundError creates an element not found error.
func NewNotFoundError(operation, locator string, cause error) *PageError {
	return New(NotFound, operation, locator, "no such element", cause)
}

// NewNotInteractableError creates an element not interactable error.
func NewNotInteractableError(operation, locator string, cause error) *PageError {
	return New(NotInteractable, operation, locator, "element not interactable", cause)
}

// NewRangeError creates an index out of range error.
func NewRangeError(operation string, index, length int) *PageError {
	var msg string
	if length == 0 {
		msg = fmt.Sprintf("index %d out of range: nothing to choose from", index)
	} else {
		msg = fmt.Sprintf("index %d must be between -%d and -1 or between 0 and %d", index, length, length-1)
	}
	return New(Range, operation, "", msg, nil)
}

// NewInvalidArgumentError creates an argument validation error.
func NewInvalidArgumentError(operation, message string) *PageError {
	return New(InvalidArgument, operation, "", message, nil)
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(operation, target string, cause error) *PageError {
	return New(Timeout, operation, target, "operation timed out", cause)
}

// NewScriptError creates a JavaScript evaluation error.
func NewScriptError(operation string, cause error) *PageError {
	return New(Script, operation, "", "script evaluation failed", cause)
}

// NewIOError creates a local file error.
func NewIOError(operation, path string, cause error) *PageError {
	return New(IO, operation, path, "file operation failed", cause)
}

// NewRecognitionError creates an OCR or matching error.
func NewRecognitionError(operation, message string, cause error) *PageError {
	return New(Recognition, operation, "", message, cause)
}

// NewNetworkError creates a network error.
func NewNetworkError(operation, url string, cause error) *PageError {
	return New(Network, operation, url, "network failure", cause)
}

// NewServiceError creates an error from an unexpected service status code.
// 5xx responses are retryable, everything else is not.
func NewServiceError(operation, url string, statusCode int) *PageError {
	err := New(Recognition, operation, url, fmt.Sprintf("service returned %d", statusCode), nil)
	err.StatusCode = statusCode
	err.Retryable = statusCode >= 500
	return err
}

// NewCancelledError creates a cancelled error.
func NewCancelledError(operation, target string) *PageError {
	return New(Cancelled, operation, target, "operation cancelled", nil)
}

// Categorize determines the error type from a driver or generic error.
func Categorize(err error, operation, target string) *PageError {
	if err == nil {
		return nil
	}

	var pageErr *PageError
	if errors.As(err, &pageErr) {
		return pageErr
	}

	var notFound *rod.ErrElementNotFound
	if errors.As(err, &notFound) {
		return NewNotFoundError(operation, target, err)
	}

	var notInteractable *rod.ErrNotInteractable
	var invisible *rod.ErrInvisibleShape
	var covered *rod.ErrCovered
	var noPointer *rod.ErrNoPointerEvents
	if errors.As(err, &notInteractable) || errors.As(err, &invisible) ||
		errors.As(err, &covered) || errors.As(err, &noPointer) {
		return NewNotInteractableError(operation, target, err)
	}

	var navErr *rod.ErrNavigation
	if errors.As(err, &navErr) {
		return New(Open, operation, target, "navigation failed", err)
	}

	var evalErr *rod.ErrEval
	if errors.As(err, &evalErr) {
		return NewScriptError(operation, err)
	}

	if errors.Is(err, context.Canceled) {
		e := NewCancelledError(operation, target)
		e.Cause = err
		return e
	}

	if isTimeout(err) {
		return NewTimeoutError(operation, target, err)
	}

	if isNetworkError(err) {
		return NewNetworkError(operation, target, err)
	}

	return New(Unknown, operation, target, err.Error(), err)
}

// isTimeout checks if an error is a timeout.
func isTimeout(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}

// isNetworkError checks if an error is network-related.
func isNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host")
}

// IsRetryable checks if an error should be retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var pageErr *PageError
	if errors.As(err, &pageErr) {
		return pageErr.Retryable
	}

	return isTimeout(err) || isNetworkError(err)
}

// GetErrorType extracts the error type from an error.
func GetErrorType(err error) ErrorType {
	var pageErr *PageError
	if errors.As(err, &pageErr) {
		return pageErr.Type
	}
	return Unknown
}

// IsType reports whether err is a PageError of the given type.
func IsType(err error, t ErrorType) bool {
	return err != nil && GetErrorType(err) == t
}
