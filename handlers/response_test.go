package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"case_relay_go/services"

	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", services.ErrNotFound, http.StatusNotFound},
		{"validation", services.ErrValidation, http.StatusBadRequest},
		{"invalid transition", services.ErrInvalidTransition, http.StatusBadRequest},
		{"unauthorized", services.ErrUnauthorized, http.StatusUnauthorized},
		{"locked", services.ErrLocked, http.StatusLocked},
		{"forbidden", services.ErrForbidden, http.StatusForbidden},
		{"upload", services.ErrUpload, http.StatusBadGateway},
		{"persistence", services.ErrPersistence, http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("outer: %w", services.ErrNotFound), http.StatusNotFound},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestRespondError(t *testing.T) {
	t.Run("Unclassified errors use the fallback", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodGet, "/", nil)

		err := respondError(c, errors.New("sqlite: disk I/O error"), "Something went wrong")
		assert.NoError(t, err)
		assertMessage(t, rec, http.StatusInternalServerError, "Something went wrong")
	})

	t.Run("Invalid numeric parameter", func(t *testing.T) {
		_, c, _ := setupEcho(http.MethodGet, "/", nil)
		setParams(c, "caseId", "abc")

		_, ok := parseUintParam(c, "caseId")
		assert.False(t, ok)
	})
}
