package gwerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGatewayError_Error(t *testing.T) {
	err := New(Upstream, "engine call failed", errors.New("connection refused"))
	assert.Contains(t, err.Error(), "upstream")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestGatewayError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := New(Internal, "failed", cause)
	assert.ErrorIs(t, err, cause)
}

func TestIs(t *testing.T) {
	err := New(RateLimited, "too many requests", nil)
	assert.True(t, Is(err, RateLimited))
	assert.False(t, Is(err, Conflict))
	assert.False(t, Is(errors.New("plain"), RateLimited))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		BadRequest:         400,
		Forbidden:          403,
		NotFound:           404,
		Conflict:           409,
		RateLimited:        429,
		Upstream:           502,
		ServiceUnavailable: 503,
		Timeout:            504,
		Internal:           500,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(kind), "kind %s", kind)
	}
}

func TestNewRateLimited_RetryAfter(t *testing.T) {
	retry := 5
	err := NewRateLimited("slow down", &retry, nil)
	assert.Equal(t, RateLimited, err.Kind)
	assert.Equal(t, 5, *err.RetryAfter)
}
