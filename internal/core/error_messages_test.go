package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/sony/gobreaker"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "file too large maps correctly",
			err:         errors.New("file too large: 20MB exceeds limit"),
			wantCode:    "FILE001",
			wantMessage: "Image exceeds the maximum upload size",
		},
		{
			name:        "max bytes reader maps to file too large",
			err:         errors.New("http: request body too large"),
			wantCode:    "FILE001",
			wantMessage: "Image exceeds the maximum upload size",
		},
		{
			name:        "empty selection maps correctly",
			err:         ErrEmptyFile,
			wantCode:    "FILE002",
			wantMessage: "No image was selected",
		},
		{
			name:        "connection refused maps correctly",
			err:         &TransportError{Op: "post", Err: errors.New("dial tcp 127.0.0.1:5000: connect: connection refused")},
			wantCode:    "CLS001",
			wantMessage: "The classification service could not be reached",
		},
		{
			name:        "timeout maps correctly",
			err:         &TransportError{Op: "post", Err: errors.New("context deadline exceeded")},
			wantCode:    "CLS002",
			wantMessage: "The classification service did not answer in time",
		},
		{
			name:        "open breaker maps correctly",
			err:         &TransportError{Op: "classify", Err: gobreaker.ErrOpenState},
			wantCode:    "CLS003",
			wantMessage: "The classification service is temporarily unavailable",
		},
		{
			name:        "busy limiter maps correctly",
			err:         fmt.Errorf("acquire: %w", ErrTooManyClassifications),
			wantCode:    "CLS003",
			wantMessage: "The classification service is temporarily unavailable",
		},
		{
			name:        "in-flight submit maps correctly",
			err:         ErrSubmissionInProgress,
			wantCode:    "SES001",
			wantMessage: "A classification is already running",
		},
		{
			name:        "unknown card maps correctly",
			err:         fmt.Errorf("%w: 7", ErrUnknownCard),
			wantCode:    "CARD001",
			wantMessage: "The result card no longer exists",
		},
		{
			name:        "rate limit maps correctly",
			err:         errors.New("rate limit exceeded"),
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
		},
		{
			name:        "unknown route maps correctly",
			err:         errors.New("not found"),
			wantCode:    "NAV001",
			wantMessage: "The requested page does not exist",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("FILE TOO LARGE"),
			wantCode:    "FILE001",
			wantMessage: "Image exceeds the maximum upload size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(errors.New("rate limit exceeded"))

	expected := "Too many requests (Code: RATE001). Please wait a moment before trying again"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}

	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error is not user facing",
			err:  nil,
			want: false,
		},
		{
			name: "known error is user facing",
			err:  ErrSubmissionInProgress,
			want: true,
		},
		{
			name: "unknown error is not user facing",
			err:  errors.New("random internal error xyz"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUserFacing(tt.err)
			if got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := fmt.Errorf("read form: %w", errors.New("multipart: NextPart: EOF"))
		userErr := NewUserError(techErr)

		if userErr.Error() != "The upload could not be read" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}

		if !errors.Is(userErr, techErr) {
			t.Error("Unwrap() should return original error")
		}
	})
}

func TestFailureMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"no file", ErrNoFileSelected, NoFileMessage},
		{"service text shown verbatim", &ServiceError{Status: 500, Message: "file too large"}, "file too large"},
		{"service without text", &ServiceError{Status: 502}, GenericFailureMessage},
		{"transport", &TransportError{Op: "post", Err: errors.New("connection reset")}, GenericFailureMessage},
		{"wrapped service", fmt.Errorf("breaker: %w", &ServiceError{Status: 400, Message: "invalid image"}), "invalid image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FailureMessage(tt.err); got != tt.want {
				t.Errorf("FailureMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
