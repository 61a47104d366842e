package registry

import (
	"errors"
	"fmt"
)

// ErrorCode represents the type of registry error.
type ErrorCode string

const (
	// ErrCodeDuplicate indicates a plugin or hook spec was registered twice.
	ErrCodeDuplicate ErrorCode = "DUPLICATE"
	// ErrCodeNotFound indicates the plugin or hook is unknown.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeValidation indicates an implementation does not match its hook spec.
	ErrCodeValidation ErrorCode = "VALIDATION"
	// ErrCodeCompile indicates a hook caller could not be compiled.
	ErrCodeCompile ErrorCode = "COMPILE"
)

// Error represents an error during registry operations.
type Error struct {
	Code    ErrorCode
	Plugin  string
	Hook    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var target string
	switch {
	case e.Plugin != "" && e.Hook != "":
		target = fmt.Sprintf(" %s.%s", e.Plugin, e.Hook)
	case e.Plugin != "":
		target = " " + e.Plugin
	case e.Hook != "":
		target = " " + e.Hook
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s]%s: %s: %v", e.Code, target, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s]%s: %s", e.Code, target, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

func newDuplicatePluginError(plugin string) *Error {
	return &Error{Code: ErrCodeDuplicate, Plugin: plugin, Message: "plugin already registered"}
}

func newDuplicateSpecError(hookName string) *Error {
	return &Error{Code: ErrCodeDuplicate, Hook: hookName, Message: "hook spec already added"}
}

func newPluginNotFoundError(plugin string) *Error {
	return &Error{Code: ErrCodeNotFound, Plugin: plugin, Message: "plugin not registered"}
}

func newValidationError(plugin, hookName, message string, cause error) *Error {
	return &Error{Code: ErrCodeValidation, Plugin: plugin, Hook: hookName, Message: message, Cause: cause}
}

func newCompileError(hookName string, cause error) *Error {
	return &Error{Code: ErrCodeCompile, Hook: hookName, Message: "compile failed", Cause: cause}
}

// IsValidationError checks if the error is a registration validation error.
func IsValidationError(err error) bool {
	return hasCode(err, ErrCodeValidation)
}

// IsDuplicateError checks if the error reports a duplicate registration.
func IsDuplicateError(err error) bool {
	return hasCode(err, ErrCodeDuplicate)
}

// IsNotFoundError checks if the error reports an unknown plugin.
func IsNotFoundError(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

func hasCode(err error, code ErrorCode) bool {
	var regErr *Error
	if errors.As(err, &regErr) {
		return regErr.Code == code
	}
	return false
}
