package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{ErrGenerationFailed, http.StatusServiceUnavailable},
		{ErrProviderNotConfigured, http.StatusInternalServerError},
		{ErrValidationFailed, http.StatusUnprocessableEntity},
		{ErrStoryNotFound, http.StatusNotFound},
		{ErrUnauthorized, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.HTTPStatus, string(tt.err.Code))
	}
}

func TestWithErrorDoesNotMutateSentinel(t *testing.T) {
	cause := stderrors.New("upstream 500")
	err := ErrGenerationFailed.WithError(cause)

	assert.Nil(t, ErrGenerationFailed.Err)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.Equal(t, "Story text generation failed", err.Message)
}

func TestAsAppError(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", ErrStoryNotFound)
	assert.True(t, IsAppError(wrapped))
	assert.Equal(t, CodeStoryNotFound, AsAppError(wrapped).Code)

	plain := stderrors.New("boom")
	assert.False(t, IsAppError(plain))
	got := AsAppError(plain)
	assert.Equal(t, CodeUnknown, got.Code)
	assert.Equal(t, http.StatusInternalServerError, got.HTTPStatus)
}
