package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for rule-table construction failures
type ErrorCode string

const (
	// UnknownLanguage indicates an outcome references a language the registry does not know
	UnknownLanguage ErrorCode = "UNKNOWN_LANGUAGE"
	// InvalidPattern indicates a regex failed to compile or carries unsupported flags
	InvalidPattern ErrorCode = "INVALID_PATTERN"
	// EmptyChain indicates an extension was declared without any clauses
	EmptyChain ErrorCode = "EMPTY_CHAIN"
	// DuplicateExtension indicates two disambiguations claim the same extension
	DuplicateExtension ErrorCode = "DUPLICATE_EXTENSION"
	// DuplicateLanguage indicates a language name or alias is registered twice
	DuplicateLanguage ErrorCode = "DUPLICATE_LANGUAGE"
	// InvalidRule indicates a malformed predicate or outcome definition
	InvalidRule ErrorCode = "INVALID_RULE"
	// RuleSource indicates the rule source could not be read or decoded
	RuleSource ErrorCode = "RULE_SOURCE"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// EditRules suggests editing the rule source
	EditRules FixActionType = "edit-rules"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Description string        `json:"description,omitempty"`
}

// Error is a configuration error raised while building the language registry
// or the disambiguation table. It never surfaces from classification.
type Error struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a new Error with the default fixes for its code
func New(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Newf creates a new Error without a cause, formatting the message
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// HasCode reports whether err, or any error it wraps or joins, is an *Error
// with the given code.
func HasCode(err error, code ErrorCode) bool {
	return stderrors.Is(err, &Error{Code: code})
}

// CodeOf returns the code of the first *Error found in err's tree.
func CodeOf(err error) (ErrorCode, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	UnknownLanguage: {
		{
			Type:        EditRules,
			Description: "Declare the language under 'languages' or fix the name in the rule outcome",
		},
	},
	InvalidPattern: {
		{
			Type:        RunCommand,
			Command:     "langsift rules validate",
			Description: "List every pattern that fails to compile",
		},
	},
	EmptyChain: {
		{
			Type:        EditRules,
			Description: "Add at least one rule or remove the extension from the disambiguation",
		},
	},
	DuplicateExtension: {
		{
			Type:        EditRules,
			Description: "Merge the rules for the extension into a single disambiguation",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
