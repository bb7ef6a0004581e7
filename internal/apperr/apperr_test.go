package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"invalid argument", InvalidArgument("bad input"), CodeInvalidArgument},
		{"unauthenticated", Unauthenticated("no token"), CodeUnauthenticated},
		{"permission denied", PermissionDenied("not yours"), CodePermissionDenied},
		{"not found", NotFound("missing"), CodeNotFound},
		{"already exists", AlreadyExists("taken"), CodeAlreadyExists},
		{"failed precondition", FailedPrecondition("blocked"), CodeFailedPrecondition},
		{"internal", Internal(errors.New("boom"), "db down"), CodeInternal},
		{"wrapped", fmt.Errorf("context: %w", NotFound("missing")), CodeNotFound},
		{"plain error", errors.New("boom"), CodeInternal},
		{"nil", nil, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "slot 10:00 is taken", MessageOf(AlreadyExists("slot %s is taken", "10:00")))
	assert.Equal(t, "db down", MessageOf(Internal(errors.New("connection refused"), "db down")))

	// Unclassified errors never leak their text to callers.
	assert.Equal(t, "internal server error", MessageOf(errors.New("pq: relation does not exist")))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeInvalidArgument, http.StatusBadRequest},
		{CodeUnauthenticated, http.StatusUnauthorized},
		{CodePermissionDenied, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodeAlreadyExists, http.StatusConflict},
		{CodeFailedPrecondition, http.StatusPreconditionFailed},
		{CodeInternal, http.StatusInternalServerError},
		{Code("unknown"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.code), string(tt.code))
	}
}

func TestInternalWrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal(cause, "db down")

	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "db down")
	assert.Contains(t, err.Error(), "connection refused")

	var appErr *Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, CodeInternal, appErr.Code)
}
