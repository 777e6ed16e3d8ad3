package generator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Failure kinds surfaced by the text generation service.
var (
	ErrServiceUnavailable   = errors.New("service unavailable")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrEmptyResponse        = errors.New("no response received from AI")
	ErrUnknown              = errors.New("unexpected error")
)

// ErrSkipped reports a session action whose precondition did not hold.
// The session state is unchanged when it is returned.
var ErrSkipped = errors.New("action skipped")

// ServiceError wraps a provider failure with its kind.
type ServiceError struct {
	Kind   error
	Status int
	Reason string
	Err    error
}

func newServiceError(kind error, status int, reason string, err error) *ServiceError {
	return &ServiceError{Kind: kind, Status: status, Reason: strings.TrimSpace(reason), Err: err}
}

func (e *ServiceError) Error() string {
	reason := e.Reason
	if reason == "" && e.Err != nil {
		reason = e.Err.Error()
	}
	if reason == "" {
		return e.Kind.Error()
	}
	if e.Status > 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, reason)
	}
	return fmt.Sprintf("%s: %s", e.Kind, reason)
}

func (e *ServiceError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// UserMessage turns a failed pass into the text shown in the error banner.
func UserMessage(err error) string {
	reason := "An unexpected error occurred"
	if err != nil && err.Error() != "" {
		reason = err.Error()
	}
	return fmt.Sprintf("Failed to generate prompt: %s. Please check your API key and try again.", reason)
}

// classifyStatus maps an HTTP status returned by a provider to a failure kind.
func classifyStatus(code int, reason string, err error) error {
	if reason == "" {
		reason = http.StatusText(code)
	}
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return newServiceError(ErrAuthenticationFailed, code, reason, err)
	case code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500:
		return newServiceError(ErrServiceUnavailable, code, reason, err)
	default:
		return newServiceError(ErrUnknown, code, reason, err)
	}
}

// classifyTransport handles errors that never produced an HTTP response.
func classifyTransport(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return newServiceError(ErrServiceUnavailable, 0, err.Error(), err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return newServiceError(ErrServiceUnavailable, 0, err.Error(), err)
	}
	return newServiceError(ErrUnknown, 0, err.Error(), err)
}

// asServiceError guarantees every failure leaving the agent carries a kind.
func asServiceError(err error) error {
	var se *ServiceError
	if errors.As(err, &se) {
		return err
	}
	return classifyTransport(err)
}
