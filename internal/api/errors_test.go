package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/test", nil)

	WriteError(w, r, errors.New("boom"), http.StatusInternalServerError, ErrCodeInternal)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "INTERNAL_ERROR", response.Code)
	assert.Equal(t, "boom", response.Message)
	assert.Equal(t, http.StatusInternalServerError, response.Status)
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w http.ResponseWriter, r *http.Request)
		status int
		code   ErrorCode
	}{
		{"not_found", func(w http.ResponseWriter, r *http.Request) { NotFound(w, r, "missing") }, http.StatusNotFound, ErrCodeNotFound},
		{"method_not_allowed", MethodNotAllowed, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed},
		{"conflict", func(w http.ResponseWriter, r *http.Request) { Conflict(w, r, "busy") }, http.StatusConflict, ErrCodeConflict},
		{"internal", func(w http.ResponseWriter, r *http.Request) { InternalError(w, r, errors.New("x")) }, http.StatusInternalServerError, ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w, httptest.NewRequest(http.MethodGet, "/test", nil))

			assert.Equal(t, tt.status, w.Code)
			var response ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, string(tt.code), response.Code)
		})
	}
}

func TestTooManyRequests_RetryAfter(t *testing.T) {
	tests := []struct {
		name  string
		delay time.Duration
		want  string
	}{
		{"rounds_up", 1500 * time.Millisecond, "2"},
		{"whole_seconds", 30 * time.Second, "30"},
		{"zero_defaults_to_one", 0, "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			TooManyRequests(w, httptest.NewRequest(http.MethodPost, "/run", nil), "slow down", tt.delay)

			assert.Equal(t, http.StatusTooManyRequests, w.Code)
			assert.Equal(t, tt.want, w.Header().Get("Retry-After"))
			assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")
		})
	}
}
