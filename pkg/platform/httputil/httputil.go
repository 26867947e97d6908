// Package httputil holds the JSON response and request helpers shared by handlers.
package httputil

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "cardledger/pkg/domain-errors"
)

// maxJSONBody bounds JSON request bodies. Uploads use their own limit.
const maxJSONBody = 1 << 20

// Validatable is implemented by request types that normalise and check themselves.
type Validatable interface {
	Validate() error
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to its status and writes {"error", "error_description"}.
// Server-side failures omit the description so internals do not leak.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.ToHTTPStatus(code)
	body := map[string]string{"error": string(code)}
	if status < http.StatusInternalServerError || code == dErrors.CodeGradingUnavailable || code == dErrors.CodeGradingRejected {
		if de, ok := dErrors.As(err); ok && de.Message != "" {
			body["error_description"] = de.Message
		}
	}
	WriteJSON(w, status, body)
}

// DecodeAndPrepare decodes a JSON body into T and runs its Validate method when present.
// On failure it writes the error response and returns false.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	var req T
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(&req); err != nil {
		logger.WarnContext(ctx, "failed to decode request body",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return nil, false
	}
	if v, ok := any(&req).(Validatable); ok {
		if err := v.Validate(); err != nil {
			logger.WarnContext(ctx, "request validation failed",
				"request_id", requestID,
				"error", err,
			)
			WriteError(w, err)
			return nil, false
		}
	}
	return &req, true
}
