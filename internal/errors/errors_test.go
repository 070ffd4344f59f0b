package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	cause := errors.New("underlying error")

	err := New(InvalidPattern, "pattern does not compile", cause)

	if err.Code != InvalidPattern {
		t.Errorf("Code = %v, want %v", err.Code, InvalidPattern)
	}
	if err.Message != "pattern does not compile" {
		t.Errorf("Message = %q, want %q", err.Message, "pattern does not compile")
	}
	if len(err.SuggestedFixes) != 1 {
		t.Errorf("len(SuggestedFixes) = %d, want 1", len(err.SuggestedFixes))
	}
}

func TestError_Error(t *testing.T) {
	tests := []struct {
		name      string
		code      ErrorCode
		message   string
		cause     error
		wantParts []string
	}{
		{
			name:      "with cause",
			code:      InvalidPattern,
			message:   "bad regex for .h",
			cause:     errors.New("missing closing )"),
			wantParts: []string{"INVALID_PATTERN", "bad regex for .h", "missing closing )"},
		},
		{
			name:      "without cause",
			code:      UnknownLanguage,
			message:   "language 'Klingon' is not registered",
			cause:     nil,
			wantParts: []string{"UNKNOWN_LANGUAGE", "language 'Klingon' is not registered"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.code, tt.message, tt.cause).Error()

			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want to contain %q", got, part)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := New(InternalError, "something went wrong", cause)

	if err.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), cause)
	}

	errNoCause := Newf(EmptyChain, "extension %s has no rules", ".f")
	if errNoCause.Unwrap() != nil {
		t.Errorf("Unwrap() on error without cause should return nil")
	}
}

func TestHasCode(t *testing.T) {
	unknown := Newf(UnknownLanguage, "language %q is not registered", "Klingon")
	wrapped := fmt.Errorf("building table: %w", unknown)
	joined := errors.Join(Newf(EmptyChain, "empty"), wrapped)

	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{"direct", unknown, UnknownLanguage, true},
		{"wrapped", wrapped, UnknownLanguage, true},
		{"joined first", joined, EmptyChain, true},
		{"joined second", joined, UnknownLanguage, true},
		{"absent", joined, InvalidPattern, false},
		{"plain error", errors.New("x"), UnknownLanguage, false},
		{"nil", nil, UnknownLanguage, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasCode(tt.err, tt.code); got != tt.want {
				t.Errorf("HasCode(%v, %s) = %v, want %v", tt.err, tt.code, got, tt.want)
			}
		})
	}
}

func TestCodeOf(t *testing.T) {
	err := fmt.Errorf("loading: %w", Newf(RuleSource, "unreadable"))
	code, ok := CodeOf(err)
	if !ok || code != RuleSource {
		t.Errorf("CodeOf() = (%v, %v), want (%v, true)", code, ok, RuleSource)
	}

	if _, ok := CodeOf(errors.New("plain")); ok {
		t.Error("CodeOf() on plain error should report false")
	}
}

func TestError_WithDetails(t *testing.T) {
	err := Newf(DuplicateExtension, "extension .pro declared twice")
	details := map[string]int{"first": 2, "second": 5}

	if result := err.WithDetails(details); result != err {
		t.Error("WithDetails should return the same error for chaining")
	}
	if err.Details == nil {
		t.Error("Details should be set")
	}
}

func TestErrorCodes(t *testing.T) {
	codes := []ErrorCode{
		UnknownLanguage,
		InvalidPattern,
		EmptyChain,
		DuplicateExtension,
		DuplicateLanguage,
		InvalidRule,
		RuleSource,
		InternalError,
	}

	seen := make(map[ErrorCode]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %v", code)
		}
		seen[code] = true

		if string(code) == "" {
			t.Error("Error code should not be empty")
		}
	}
}

func TestErrorActionsMap(t *testing.T) {
	for code, fixes := range ErrorActions {
		if len(fixes) == 0 {
			t.Errorf("ErrorActions[%v] has no fix actions", code)
		}
		for i, fix := range fixes {
			if fix.Type == "" {
				t.Errorf("ErrorActions[%v][%d].Type is empty", code, i)
			}
		}
	}

	if GetSuggestedFixes(InternalError) != nil {
		t.Error("InternalError should have no predefined fixes")
	}
}
