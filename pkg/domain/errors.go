package domain

import (
	"errors"
	"fmt"
)

// ErrThreadNotFound is returned when a thread ID cannot be found in the store.
var ErrThreadNotFound = errors.New("thread not found")

// Code is a stable, machine-readable failure identifier.
type Code string

// Data store failures.
const (
	CodeNotFound     Code = "NOT_FOUND"
	CodeUserNotFound Code = "USER_NOT_FOUND"
	CodeBlocked      Code = "BLOCKED"
	CodeNoSub        Code = "NO_SUB"
	CodeInactiveSub  Code = "INACTIVE_SUB"
	CodeNoQuota      Code = "NO_QUOTA"
	CodeExpNotFound  Code = "EXP_NOT_FOUND"
	CodeNoSlots      Code = "NO_SLOTS"
	CodeInvalidState Code = "INVALID_STATE"
	CodeStoreError   Code = "STORE_ERROR"
)

// Validation failures.
const (
	CodeBadAction       Code = "BAD_ACTION"
	CodeBadOutput       Code = "BAD_OUTPUT"
	CodeMissingArgument Code = "MISSING_ARGUMENT"
)

// Upstream call failures.
const (
	CodeLLMError       Code = "LLM_ERROR"
	CodeLLMOrToolError Code = "LLM_OR_TOOL_ERROR"
	CodeNoAPIKey       Code = "NO_API_KEY"
	CodeNoBaseURL      Code = "NO_BASE_URL"
	CodeHTTPError      Code = "HTTP_ERROR"
	CodeTimeout        Code = "TIMEOUT"
	CodeException      Code = "EXCEPTION"
)

// Error is a typed failure. Adapters return it (possibly wrapped) so that the
// agents can surface a stable code to the caller.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Errorf builds a typed failure with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsError extracts the typed failure from err.
// Untyped errors are reported under fallback with the error text as message.
func AsError(err error, fallback Code) *Error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return &Error{Code: fallback, Message: err.Error()}
}

// CodeOf returns the code of the typed failure wrapped in err, or "" if none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsBusiness reports whether code is a data store rule or lookup failure, whose
// message is safe to show to the end user.
func IsBusiness(code Code) bool {
	switch code {
	case CodeNotFound, CodeUserNotFound, CodeBlocked, CodeNoSub, CodeInactiveSub,
		CodeNoQuota, CodeExpNotFound, CodeNoSlots, CodeInvalidState:
		return true
	}
	return false
}
