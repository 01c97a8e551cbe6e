package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/xtxerr/paylake/internal/logging"
)

// requestIDMiddleware tags each request with a unique request_id,
// honoring an X-Request-ID header when the client supplies one.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set("X-Request-ID", requestID)

		ctx := logging.ContextWithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware logs one line per request.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		next.ServeHTTP(w, r)
		logging.WithContext(r.Context()).Debug("request",
			"method", r.Method, "path", r.URL.Path,
			"duration_ms", time.Since(started).Milliseconds())
	})
}

// recoveryMiddleware recovers from handler panics and returns a 500.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Error("handler panic", "path", r.URL.Path, "panic", err)
				writeError(w, http.StatusInternalServerError,
					"internal server error", logging.RequestID(r.Context()))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
