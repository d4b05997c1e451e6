package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesChain(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeUnavailable, "user store unreachable")

	require.ErrorIs(t, err, cause)
	assert.True(t, HasCode(err, CodeUnavailable))
	assert.Equal(t, "user store unreachable: connection refused", err.Error())
}

func TestHasCodeSeesThroughOuterWrapping(t *testing.T) {
	inner := New(CodeConflict, "email already registered")
	outer := fmt.Errorf("register: %w", inner)

	assert.True(t, HasCode(outer, CodeConflict))
	assert.False(t, HasCode(outer, CodeUnauthorized))
}

func TestCodeOfDefaultsToInternal(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
	assert.Equal(t, CodeNotFound, CodeOf(New(CodeNotFound, "missing")))
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeInvalidInput: http.StatusBadRequest,
		CodeUnauthorized: http.StatusUnauthorized,
		CodeForbidden:    http.StatusForbidden,
		CodeNotFound:     http.StatusNotFound,
		CodeConflict:     http.StatusConflict,
		CodeUnavailable:  http.StatusServiceUnavailable,
		CodeInternal:     http.StatusInternalServerError,
		Code("mystery"):  http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(code), string(code))
	}
}
