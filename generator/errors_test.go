package generator

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStatus(t *testing.T) {
	cases := []struct {
		code int
		want error
	}{
		{http.StatusUnauthorized, ErrAuthenticationFailed},
		{http.StatusForbidden, ErrAuthenticationFailed},
		{http.StatusTooManyRequests, ErrServiceUnavailable},
		{http.StatusRequestTimeout, ErrServiceUnavailable},
		{http.StatusInternalServerError, ErrServiceUnavailable},
		{http.StatusServiceUnavailable, ErrServiceUnavailable},
		{http.StatusBadRequest, ErrUnknown},
		{http.StatusNotFound, ErrUnknown},
	}
	for _, tc := range cases {
		err := classifyStatus(tc.code, "", nil)
		assert.ErrorIs(t, err, tc.want, "status %d", tc.code)

		var se *ServiceError
		if assert.ErrorAs(t, err, &se) {
			assert.Equal(t, tc.code, se.Status)
			assert.Equal(t, http.StatusText(tc.code), se.Reason)
		}
	}
}

func TestClassifyTransport(t *testing.T) {
	dialErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	assert.ErrorIs(t, classifyTransport(dialErr), ErrServiceUnavailable)
	assert.ErrorIs(t, classifyTransport(dialErr), dialErr)
	assert.ErrorIs(t, classifyTransport(context.DeadlineExceeded), ErrServiceUnavailable)
	assert.ErrorIs(t, classifyTransport(errors.New("boom")), ErrUnknown)
}

func TestAsServiceErrorKeepsKind(t *testing.T) {
	orig := newServiceError(ErrAuthenticationFailed, 401, "bad key", nil)
	assert.Same(t, orig, asServiceError(orig))
	assert.ErrorIs(t, asServiceError(errors.New("odd")), ErrUnknown)
}

func TestServiceErrorMessage(t *testing.T) {
	assert.Equal(t, "authentication failed (status 401): invalid api key",
		newServiceError(ErrAuthenticationFailed, 401, "invalid api key", nil).Error())
	assert.Equal(t, "no response received from AI",
		newServiceError(ErrEmptyResponse, 0, "", nil).Error())
	assert.Equal(t, "service unavailable: dial tcp: refused",
		newServiceError(ErrServiceUnavailable, 0, "", errors.New("dial tcp: refused")).Error())
}

func TestUserMessage(t *testing.T) {
	msg := UserMessage(newServiceError(ErrEmptyResponse, 0, "", nil))
	assert.Equal(t, "Failed to generate prompt: no response received from AI. Please check your API key and try again.", msg)
	assert.Equal(t, "Failed to generate prompt: An unexpected error occurred. Please check your API key and try again.", UserMessage(nil))
}
