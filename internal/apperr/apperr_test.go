package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"plain", New(CodeNotFound, "event %q", "42"), `NOT_FOUND: event "42"`},
		{"wrapped", Wrap(CodeInvalidFormat, errors.New("bad hour"), "start time"), "INVALID_FORMAT: start time: bad hour"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsAndCodeOfThroughWrapping(t *testing.T) {
	base := New(CodeInvalidInput, "title is required")
	err := fmt.Errorf("create event: %w", base)

	if !Is(err, CodeInvalidInput) {
		t.Error("Is() should find the code through fmt.Errorf wrapping")
	}
	if Is(err, CodeNotFound) {
		t.Error("Is() matched the wrong code")
	}
	if got := CodeOf(err); got != CodeInvalidInput {
		t.Errorf("CodeOf() = %q, want %q", got, CodeInvalidInput)
	}
	if got := MessageOf(err); got != "title is required" {
		t.Errorf("MessageOf() = %q", got)
	}
}

func TestCodeOfPlainError(t *testing.T) {
	err := errors.New("disk on fire")
	if got := CodeOf(err); got != CodeInternal {
		t.Errorf("CodeOf() = %q, want %q", got, CodeInternal)
	}
	if got := MessageOf(err); got != "disk on fire" {
		t.Errorf("MessageOf() = %q", got)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("eof")
	err := Wrap(CodeInternal, cause, "read")
	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the cause")
	}
}
