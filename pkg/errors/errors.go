package errors

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a class of application error.
type ErrorCode string

const (
	CodeInvalidInput   ErrorCode = "INVALID_INPUT"
	CodeNotFound       ErrorCode = "NOT_FOUND"
	CodeAlreadyExists  ErrorCode = "ALREADY_EXISTS"
	CodeUnauthorized   ErrorCode = "UNAUTHORIZED"
	CodeForbidden      ErrorCode = "FORBIDDEN"
	CodeInternal       ErrorCode = "INTERNAL_ERROR"
	CodeServiceUnavail ErrorCode = "SERVICE_UNAVAILABLE"

	// Engine-specific error classes.
	CodeConfig             ErrorCode = "CONFIG_ERROR"
	CodeLLMNotSet          ErrorCode = "LLM_NOT_SET"
	CodeAgentSpec          ErrorCode = "AGENT_SPEC_ERROR"
	CodeToolExecution      ErrorCode = "TOOL_EXECUTION_ERROR"
	CodeMaxStepsReached    ErrorCode = "MAX_STEPS_REACHED"
	CodeRunCancelled       ErrorCode = "RUN_CANCELLED"
	CodeTransientProvider  ErrorCode = "TRANSIENT_PROVIDER_ERROR"
	CodeHook               ErrorCode = "HOOK_ERROR"
)

// AppError is the application-level error type.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewInvalidInputError builds an invalid-input error.
func NewInvalidInputError(message string) *AppError {
	return &AppError{
		Code:    CodeInvalidInput,
		Message: message,
	}
}

// NewNotFoundError builds a not-found error.
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: message,
	}
}

// NewAlreadyExistsError builds an already-exists error.
func NewAlreadyExistsError(message string) *AppError {
	return &AppError{
		Code:    CodeAlreadyExists,
		Message: message,
	}
}

// NewInternalError builds an internal error.
func NewInternalError(message string) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: message,
	}
}

// NewInternalErrorWithCause builds an internal error wrapping cause.
func NewInternalErrorWithCause(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: message,
		Err:     cause,
	}
}

// NewConfigError wraps a configuration load/validation failure.
func NewConfigError(message string, cause error) *AppError {
	return &AppError{Code: CodeConfig, Message: message, Err: cause}
}

// NewLLMNotSetError reports a run attempted with no LLMClient configured.
func NewLLMNotSetError() *AppError {
	return &AppError{Code: CodeLLMNotSet, Message: "no LLM client configured for this agent"}
}

// NewAgentSpecError reports an invalid or unresolvable AgentSpec.
func NewAgentSpecError(message string) *AppError {
	return &AppError{Code: CodeAgentSpec, Message: message}
}

// NewToolExecutionError wraps a tool execution failure that aborted the
// step rather than just producing a failed ToolResult.
func NewToolExecutionError(tool string, cause error) *AppError {
	return &AppError{Code: CodeToolExecution, Message: fmt.Sprintf("tool %q failed", tool), Err: cause}
}

// NewMaxStepsReached reports the Engine's step budget was exhausted.
func NewMaxStepsReached(maxSteps int) *AppError {
	return &AppError{Code: CodeMaxStepsReached, Message: fmt.Sprintf("reached the %d-step budget for this run", maxSteps)}
}

// NewRunCancelledError reports a run that ended via explicit cancellation.
func NewRunCancelledError() *AppError {
	return &AppError{Code: CodeRunCancelled, Message: "run cancelled"}
}

// NewTransientProviderError wraps a retryable LLM provider failure.
func NewTransientProviderError(provider string, cause error) *AppError {
	return &AppError{Code: CodeTransientProvider, Message: fmt.Sprintf("transient error from provider %q", provider), Err: cause}
}

// NewHookError wraps a mandatory hook's failure.
func NewHookError(hookName string, cause error) *AppError {
	return &AppError{Code: CodeHook, Message: fmt.Sprintf("hook %q failed", hookName), Err: cause}
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == CodeNotFound
	}
	return false
}

// IsInvalidInput reports whether err is an invalid-input error.
func IsInvalidInput(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == CodeInvalidInput
	}
	return false
}
