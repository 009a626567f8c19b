package aggregates

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	cases := []struct {
		err  *Error
		want string
	}{
		{&Error{Code: CodeConflict, Op: "live.pause", Message: "session is not active"}, "live.pause: session is not active (conflict)"},
		{&Error{Code: CodeNotFound, Op: "lesson.get"}, "lesson.get (not_found)"},
		{&Error{Code: CodeValidation, Message: "weight must be positive"}, "weight must be positive (validation)"},
		{&Error{Code: CodeInternal}, "internal"},
	}
	for _, tc := range cases {
		if got := tc.err.Error(); got != tc.want {
			t.Fatalf("Error(): want=%q got=%q", tc.want, got)
		}
	}
}

func TestCodeOfThroughWrapping(t *testing.T) {
	base := Forbidden("live.start", "not a host")
	wrapped := fmt.Errorf("handler: %w", base)
	if !IsCode(wrapped, CodeForbidden) {
		t.Fatalf("IsCode: want forbidden, got=%q", CodeOf(wrapped))
	}
	if MessageOf(wrapped) != "not a host" {
		t.Fatalf("MessageOf: got=%q", MessageOf(wrapped))
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Fatalf("plain error should have no code")
	}
	if Wrap(CodeInternal, "x", nil) != nil {
		t.Fatalf("Wrap(nil) should be nil")
	}
}
