package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"gitlab.com/timkado/api/accessibility-finder-service/internal/domain"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// AccessLogMiddleware logs one line per request and turns handler panics into 500s.
// It must run inside RequestIDMiddleware so entries carry the request ID.
func AccessLogMiddleware(logger domain.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			defer func() {
				if p := recover(); p != nil {
					logger.Error(r.Context(), "Panic in HTTP handler",
						"path", r.URL.Path,
						"panic_info", p,
						"stacktrace", string(debug.Stack()))
					domain.NewErrorResponse(domain.ErrCodeInternal, "Internal server error", "").WriteJSON(rec, http.StatusInternalServerError)
				}
				logger.Info(r.Context(), "HTTP request served",
					"method", r.Method,
					"path", r.URL.Path,
					"status", rec.status,
					"duration_ms", time.Since(started).Milliseconds())
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
