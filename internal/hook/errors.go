package hook

import (
	"errors"
	"fmt"
)

// ErrorCode represents the type of hook call error.
type ErrorCode string

const (
	// ErrCodeArgument indicates the call arguments do not satisfy the implementations.
	ErrCodeArgument ErrorCode = "ARGUMENT_BINDING"
	// ErrCodeUnknownArgument indicates the call passed a name no implementation declares.
	ErrCodeUnknownArgument ErrorCode = "UNKNOWN_ARGUMENT"
	// ErrCodeInvalidImpl indicates an implementation record cannot be dispatched.
	ErrCodeInvalidImpl ErrorCode = "INVALID_IMPL"
)

// CallError represents a contract violation detected while calling a hook.
// Errors returned by implementations themselves are never wrapped in a CallError.
type CallError struct {
	Code     ErrorCode
	HookName string
	Plugin   string
	Message  string
	Cause    error
}

// Error implements the error interface.
func (e *CallError) Error() string {
	prefix := fmt.Sprintf("[%s] hook %q", e.Code, e.HookName)
	if e.Plugin != "" {
		prefix += fmt.Sprintf(" (plugin %q)", e.Plugin)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying error.
func (e *CallError) Unwrap() error {
	return e.Cause
}

// NewArgumentError creates an error for an argument the call did not provide.
func NewArgumentError(hookName, plugin, argName string) *CallError {
	return &CallError{
		Code:     ErrCodeArgument,
		HookName: hookName,
		Plugin:   plugin,
		Message:  fmt.Sprintf("hook call must provide argument %q", argName),
	}
}

// NewUnknownArgumentError creates an error for argument names no implementation declares.
func NewUnknownArgumentError(hookName string, names []string) *CallError {
	return &CallError{
		Code:     ErrCodeUnknownArgument,
		HookName: hookName,
		Message:  fmt.Sprintf("unknown hook call arguments %q", names),
	}
}

// NewInvalidImplError creates an error for a record the engine cannot dispatch.
func NewInvalidImplError(hookName, plugin string, cause error) *CallError {
	return &CallError{
		Code:     ErrCodeInvalidImpl,
		HookName: hookName,
		Plugin:   plugin,
		Message:  "invalid implementation",
		Cause:    cause,
	}
}

// IsArgumentError checks if the error is an argument-binding error.
func IsArgumentError(err error) bool {
	var callErr *CallError
	if errors.As(err, &callErr) {
		return callErr.Code == ErrCodeArgument || callErr.Code == ErrCodeUnknownArgument
	}
	return false
}

// PanicError is returned when an implementation panics during a call.
type PanicError struct {
	HookName string
	Plugin   string
	Value    any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("hook %q: plugin %q panicked: %v", e.HookName, e.Plugin, e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
