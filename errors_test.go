package urllib3

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urllib3/urllib3-go/retry"
)

func TestEmptyPoolErrorUnwraps(t *testing.T) {
	cause := errors.New("pool full")
	err := &EmptyPoolError{URL: "http://example.com/", Cause: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "example.com")
}

func TestNewMaxRetryErrorFromLastError(t *testing.T) {
	cause := errors.New("connect refused")
	history := []retry.Event{{Method: "GET", URL: "http://example.com/", Error: cause}}
	err := NewMaxRetryError("http://example.com/", history, cause, 0)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, history, err.History)
}

func TestNewMaxRetryErrorFromLastStatus(t *testing.T) {
	err := NewMaxRetryError("http://example.com/", nil, nil, 503)
	require.Error(t, err.Reason)
	assert.Contains(t, err.Reason.Error(), "503")
}

func TestResponseErrorMessage(t *testing.T) {
	err := &ResponseError{URL: "http://example.com/", Status: 500}
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "example.com")
}

func TestInvalidURLErrorUnwraps(t *testing.T) {
	cause := errors.New("empty host")
	err := &InvalidURLError{Cause: cause}
	assert.ErrorIs(t, err, cause)
}
