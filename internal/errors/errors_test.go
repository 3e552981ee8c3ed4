package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestAppErrorMessage(t *testing.T) {
	err := New(InvalidFrame, "zero-area frame").WithMetadata("width", "0")

	got := err.Error()
	if !strings.HasPrefix(got, "[INVALID_FRAME] zero-area frame") {
		t.Errorf("Error() = %q, want prefix %q", got, "[INVALID_FRAME] zero-area frame")
	}
	if !strings.Contains(got, "width:0") {
		t.Errorf("Error() = %q, want metadata", got)
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("pipe closed")
	err := Wrap(cause, SourceClosed, "read frame")

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	if !strings.Contains(err.Error(), "caused by: pipe closed") {
		t.Errorf("Error() = %q, want cause", err.Error())
	}
}

func TestIsCodeThroughWrapping(t *testing.T) {
	inner := Newf(CalibrationBusy, "calibrating %s", "green")
	outer := fmt.Errorf("begin: %w", inner)

	if !IsCode(outer, CalibrationBusy) {
		t.Error("IsCode should see through fmt wrapping")
	}
	if IsCode(outer, CalibrationIdle) {
		t.Error("IsCode matched the wrong code")
	}
	if CodeOf(errors.New("plain")) != Unknown {
		t.Error("CodeOf plain error should be Unknown")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{New(SourceUnavailable, "ffmpeg missing"), true},
		{New(SourceClosed, "eof"), false},
		{New(InvalidFrame, "bad"), false},
		{errors.New("plain"), false},
	}
	for _, tt := range tests {
		if got := IsRetryable(tt.err); got != tt.want {
			t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CalibrationBusy, http.StatusConflict},
		{UnknownLabel, http.StatusNotFound},
		{InvalidArgument, http.StatusBadRequest},
		{Code(99), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := New(tt.code, "x").HTTPStatus(); got != tt.want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
	if got := HTTPStatusOf(errors.New("plain")); got != http.StatusInternalServerError {
		t.Errorf("HTTPStatusOf(plain) = %d, want 500", got)
	}
}
