package testutil

import (
	"net/http"
	"time"

	"cardledger/pkg/requestcontext"
)

// WithRequestTime pins the request clock, as the request-time middleware would.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
