// Package middleware provides HTTP middleware for IntentGate.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/central73/intentgate/internal/logger"
)

const headerRequestID = "X-Request-ID"

// RequestID propagates the caller's X-Request-ID, minting one when the
// header is absent. The ID lands in the request context for log
// correlation and is echoed on the response so agent runtimes can tie a
// governance decision back to their own call.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}

		ctx := logger.WithRequestID(r.Context(), id)
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
