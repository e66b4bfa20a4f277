package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestObservabilityPreservesResponse(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	router := mux.NewRouter()
	router.Use(Observability(logger))
	router.HandleFunc("/records/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("missing"))
	})

	r := httptest.NewRequest(http.MethodGet, "/records/42", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "missing", w.Body.String())
}

func TestObservabilityDefaultsStatusToOK(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	router := mux.NewRouter()
	router.Use(Observability(logger))
	router.HandleFunc("/implicit", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r := httptest.NewRequest(http.MethodGet, "/implicit", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestResponseWrapperCapturesStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapped := &responseWrapper{ResponseWriter: rec}

	wrapped.WriteHeader(http.StatusAccepted)
	_, err := wrapped.Write([]byte("payload"))
	assert.NoError(t, err)

	assert.Equal(t, http.StatusAccepted, wrapped.status)
	assert.Equal(t, "payload", rec.Body.String())
}

func TestRouteTemplate(t *testing.T) {
	router := mux.NewRouter()
	var captured string
	router.HandleFunc("/records/{id}", func(w http.ResponseWriter, r *http.Request) {
		captured = routeTemplate(r)
	})

	r := httptest.NewRequest(http.MethodGet, "/records/42", nil)
	router.ServeHTTP(httptest.NewRecorder(), r)

	assert.Equal(t, "/records/{id}", captured)
}
