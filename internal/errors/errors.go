// Package errors provides unified error handling with a structured Code.
// Codes are shared by the frame pipeline, the calibration flow and the HTTP surface.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an AppError.
type Code int

const (
	Unknown Code = iota
	Internal
	InvalidArgument
	InvalidFrame      // zero-area or mismatched frame buffer; the frame is skipped
	OutOfBounds       // sample coordinate outside the frame; clamped by the core, never returned by it
	NoActiveSignature // classification with zero active signatures; informational only
	CalibrationIdle   // sample or cancel without a pending calibration
	CalibrationBusy   // calibration requested while another is pending
	UnknownLabel
	SourceUnavailable // capture source could not be started
	SourceClosed      // capture source ended or produced a short frame
	ConfigInvalid
)

var codeNames = map[Code]string{
	Unknown:           "UNKNOWN",
	Internal:          "INTERNAL",
	InvalidArgument:   "INVALID_ARGUMENT",
	InvalidFrame:      "INVALID_FRAME",
	OutOfBounds:       "OUT_OF_BOUNDS",
	NoActiveSignature: "NO_ACTIVE_SIGNATURE",
	CalibrationIdle:   "CALIBRATION_IDLE",
	CalibrationBusy:   "CALIBRATION_BUSY",
	UnknownLabel:      "UNKNOWN_LABEL",
	SourceUnavailable: "SOURCE_UNAVAILABLE",
	SourceClosed:      "SOURCE_CLOSED",
	ConfigInvalid:     "CONFIG_INVALID",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("CODE(%d)", int(c))
}

// httpStatusMap maps codes to HTTP status codes for the REST surface.
var httpStatusMap = map[Code]int{
	Unknown:           http.StatusInternalServerError,
	Internal:          http.StatusInternalServerError,
	InvalidArgument:   http.StatusBadRequest,
	InvalidFrame:      http.StatusUnprocessableEntity,
	OutOfBounds:       http.StatusBadRequest,
	NoActiveSignature: http.StatusOK,
	CalibrationIdle:   http.StatusConflict,
	CalibrationBusy:   http.StatusConflict,
	UnknownLabel:      http.StatusNotFound,
	SourceUnavailable: http.StatusServiceUnavailable,
	SourceClosed:      http.StatusServiceUnavailable,
	ConfigInvalid:     http.StatusBadRequest,
}

// AppError is the base error type with structured error code and metadata.
type AppError struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// HTTPStatus returns the corresponding HTTP status code.
func (e *AppError) HTTPStatus() int {
	if c, ok := httpStatusMap[e.Code]; ok {
		return c
	}
	return http.StatusInternalServerError
}

// New creates a new AppError with the given code and message.
func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Newf creates a new AppError with formatted message.
func Newf(code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with formatted message.
func Wrapf(err error, code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WithMetadata adds metadata to an AppError.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// CodeOf returns the code of the first AppError in err's chain, or Unknown.
func CodeOf(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return Unknown
}

// HTTPStatusOf maps any error to an HTTP status code.
func HTTPStatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// IsCode checks if an error has a specific error code anywhere in its chain.
func IsCode(err error, code Code) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsRetryable returns true if the error is potentially retryable.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case SourceUnavailable:
		return true
	default:
		return false
	}
}
