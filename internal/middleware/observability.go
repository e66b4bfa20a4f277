package middleware

import (
	"net/http"
	"time"

	"iptrail/internal/metrics"
	"iptrail/internal/tracing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// responseWrapper captures the status code written by the handler.
type responseWrapper struct {
	http.ResponseWriter
	status int
}

func (w *responseWrapper) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseWrapper) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// Observability assigns each request an ID, opens a span for it, logs its
// outcome, and feeds the HTTP metrics.
func Observability(logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := tracing.GenerateRequestID()

			ctx := tracing.WithRequestID(r.Context(), requestID)
			ctx = tracing.WithStartTime(ctx, start)
			ctx, span := tracing.WithOtelTracing(ctx, "http_request")
			defer span.End()

			wrapped := &responseWrapper{ResponseWriter: w}
			next.ServeHTTP(wrapped, r.WithContext(ctx))

			if wrapped.status == 0 {
				wrapped.status = http.StatusOK
			}

			path := routeTemplate(r)
			duration := time.Since(start)
			metrics.RecordHTTPRequest(r.Method, path, wrapped.status, duration)

			logger.WithFields(logrus.Fields{
				"request_id": requestID,
				"method":     r.Method,
				"path":       path,
				"status":     wrapped.status,
				"duration":   duration.String(),
			}).Info("Request completed")
		})
	}
}

// routeTemplate returns the mux route pattern so metrics don't explode in
// cardinality on path parameters.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if template, err := route.GetPathTemplate(); err == nil {
			return template
		}
	}
	return r.URL.Path
}
