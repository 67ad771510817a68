package usecase

import "fmt"

type ErrorCode string

const (
	ErrorInvalidInput ErrorCode = "INVALID_INPUT"
	ErrorUnconfigured ErrorCode = "UNCONFIGURED"
	ErrorRateLimited  ErrorCode = "RATE_LIMITED"
	ErrorUpstream     ErrorCode = "UPSTREAM_ERROR"
	ErrorCancelled    ErrorCode = "CANCELLED"
	ErrorInternal     ErrorCode = "INTERNAL_ERROR"
)

// EmptyReplyPhrase is returned as content when the provider answered without
// any usable text.
const EmptyReplyPhrase = "I wasn't able to come up with a response this time. Please try rephrasing your question."

// FallbackPhrase is the user-safe text shown next to an error of the given code.
func FallbackPhrase(code ErrorCode) string {
	switch code {
	case ErrorInvalidInput:
		return "Your request could not be understood. Please check the model and messages and try again."
	case ErrorUnconfigured:
		return "The assistant is not available right now because the server is not configured."
	case ErrorRateLimited:
		return "The assistant is receiving too many requests. Please wait a moment and try again."
	case ErrorUpstream:
		return "Sorry, I encountered an error talking to the language model. Please try again."
	case ErrorCancelled:
		return "The request was cancelled before an answer was ready."
	default:
		return "Something went wrong on our side. Please try again."
	}
}

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Diagnostic is the caller-visible explanation: the wrapped error's message
// when there is one, the reason otherwise.
func (e *Error) Diagnostic() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Reason
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}
