package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "cardledger/pkg/domain-errors"
)

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestWriteError(t *testing.T) {
	t.Run("storage failure omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.Wrap(errors.New("pq: connection refused"), dErrors.CodeStorageFailure, "failed to store card"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "storage_failure", body["error"])
		_, ok := body["error_description"]
		assert.False(t, ok, "error_description must be omitted for server errors")
	})

	t.Run("validation includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeValidation, "to_owner is required"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "validation", body["error"])
		assert.Equal(t, "to_owner is required", body["error_description"])
	})

	t.Run("grading unavailable keeps description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeGradingUnavailable, "grading service unavailable"))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "grading service unavailable", decodeBody(t, w)["error_description"])
	})

	t.Run("unclassified error is internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, fmt.Errorf("boom"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "internal", decodeBody(t, w)["error"])
	})
}

type pingRequest struct {
	Name string `json:"name"`
}

func (r *pingRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("valid body is normalised", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"  misty "}`))
		w := httptest.NewRecorder()
		req, ok := DecodeAndPrepare[pingRequest](w, r, logger, r.Context(), "req-1")
		require.True(t, ok)
		assert.Equal(t, "misty", req.Name)
	})

	t.Run("malformed json is bad request", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
		w := httptest.NewRecorder()
		_, ok := DecodeAndPrepare[pingRequest](w, r, logger, r.Context(), "req-2")
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "bad_request", decodeBody(t, w)["error"])
	})

	t.Run("validation failure is reported", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":" "}`))
		w := httptest.NewRecorder()
		_, ok := DecodeAndPrepare[pingRequest](w, r, logger, r.Context(), "req-3")
		assert.False(t, ok)
		assert.Equal(t, "validation", decodeBody(t, w)["error"])
	})
}
