package errorutil

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"domain error passes through", NewForbidden("nope"), "FORBIDDEN", http.StatusForbidden},
		{"wrapped not found", fmt.Errorf("get ticket: %w", ErrNotFound), "NOT_FOUND", http.StatusNotFound},
		{"sql no rows", sql.ErrNoRows, "NOT_FOUND", http.StatusNotFound},
		{"validation", FieldError("subject", "required"), "VALIDATION_FAILED", http.StatusBadRequest},
		{"unknown", errors.New("boom"), "INTERNAL_ERROR", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			de := ToDomainError(tt.err)
			require.NotNil(t, de)
			assert.Equal(t, tt.code, de.Code)
			assert.Equal(t, tt.status, de.HTTPStatus)
		})
	}
	assert.Nil(t, ToDomainError(nil))
}

func TestValidationErrorMessageIsStable(t *testing.T) {
	err := NewValidationError(map[string]string{"b": "two", "a": "one"})
	assert.Equal(t, "validation failed: a: one; b: two", err.Error())

	verr, ok := AsValidation(fmt.Errorf("wrap: %w", err))
	require.True(t, ok)
	assert.Len(t, verr.Fields, 2)
}

func TestNewNotFoundIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(NewNotFound("ticket", nil)))
}
