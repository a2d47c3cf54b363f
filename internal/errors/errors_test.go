package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", ErrInvalidInput, http.StatusBadRequest},
		{"conflict", ErrUserExists, http.StatusConflict},
		{"not found", ErrUserNotFound, http.StatusNotFound},
		{"authentication", ErrRefreshTokenReused, http.StatusUnauthorized},
		{"upload", ErrUploadFailed, http.StatusInternalServerError},
		{"wrapped domain", fmt.Errorf("login: %w", ErrInvalidCredentials), http.StatusUnauthorized},
		{"plain error", errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToHTTPStatus(tt.err))
		})
	}
}

func TestWrapErrorKeepsIdentity(t *testing.T) {
	cause := errors.New("connection reset")
	err := WrapError(ErrInternal, cause)

	assert.True(t, errors.Is(err, ErrInternal))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrUserExists))
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestGetErrorMessageHidesInternalCause(t *testing.T) {
	assert.Equal(t, "internal server error", GetErrorMessage(errors.New("pq: relation users does not exist")))
	assert.Equal(t, "user does not exist", GetErrorMessage(ErrUserNotFound))
	assert.Equal(t, "", GetErrorMessage(nil))
}

func TestWithDetails(t *testing.T) {
	err := WithDetails(ErrInvalidInput, "email is required", "password is required")

	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Equal(t, []string{"email is required", "password is required"}, GetErrorDetails(err))
	assert.Nil(t, ErrInvalidInput.Details)
}
