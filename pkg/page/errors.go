package page

import "github.com/PentesterFlow/OpenPage/internal/errors"

// Error is the error type returned by every Page operation.
type Error = errors.PageError

// ErrorType classifies an Error.
type ErrorType = errors.ErrorType

// Error types.
const (
	ErrSession         = errors.Session
	ErrOpen            = errors.Open
	ErrNotFound        = errors.NotFound
	ErrNotInteractable = errors.NotInteractable
	ErrRange           = errors.Range
	ErrInvalidArgument = errors.InvalidArgument
	ErrTimeout         = errors.Timeout
	ErrScript          = errors.Script
	ErrIO              = errors.IO
	ErrRecognition     = errors.Recognition
	ErrNetwork         = errors.Network
	ErrCancelled       = errors.Cancelled
)

// IsOpenError reports whether err is a failed navigation.
func IsOpenError(err error) bool { return errors.IsType(err, errors.Open) }

// IsNotFound reports whether err means no element matched.
func IsNotFound(err error) bool { return errors.IsType(err, errors.NotFound) }

// IsNotInteractable reports whether err means the element could not be
// used.
func IsNotInteractable(err error) bool { return errors.IsType(err, errors.NotInteractable) }

// IsRangeError reports whether err is an out-of-range index.
func IsRangeError(err error) bool { return errors.IsType(err, errors.Range) }

// IsInvalidArgument reports whether err is a rejected argument.
func IsInvalidArgument(err error) bool { return errors.IsType(err, errors.InvalidArgument) }

// IsTimeout reports whether err is an expired wait.
func IsTimeout(err error) bool { return errors.IsType(err, errors.Timeout) }
