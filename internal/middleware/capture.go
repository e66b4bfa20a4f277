package middleware

import (
	"net/http"

	"iptrail/internal/models"
	"iptrail/internal/service"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Capture records the client address of every request passing through it.
// The wrapped handler always runs first and its response is never altered;
// capture failures are logged and swallowed.
func Capture(storage service.StorageService, users service.UserResolver, opts models.CaptureOptions, logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)

			var userID *string
			if users != nil {
				userID = users.ResolveUserID(r)
			}

			if opts.Async {
				// Fire and forget; the channel carries the outcome for
				// anyone who cares, errors are already logged by the
				// pipeline.
				storage.StoreFromRequestAsync(r.Context(), r, userID, opts)
			} else {
				if _, err := storage.StoreFromRequest(r.Context(), r, userID, opts); err != nil {
					logger.WithError(err).Warn("Failed to capture client address")
				}
			}
		})
	}
}
