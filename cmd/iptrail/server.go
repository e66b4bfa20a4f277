package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"iptrail/internal/constants"
	"iptrail/internal/metrics"
	"iptrail/internal/middleware"
	"iptrail/internal/models"
	"iptrail/internal/service"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// RecordQuerier is the read side of the record store used by the API
// handlers.
type RecordQuerier interface {
	GetByID(ctx context.Context, id int64) (*models.IPRecord, error)
	Search(ctx context.Context, filter models.RecordFilter) ([]models.IPRecord, error)
	Stats(ctx context.Context) (*models.IPStats, error)
	UserStats(ctx context.Context, userID string) (*models.UserIPStats, error)
}

type Server struct {
	router  *mux.Router
	logger  *logrus.Logger
	cfg     *models.Config
	storage service.StorageService
	querier RecordQuerier
	users   service.UserResolver
	server  *http.Server
}

func NewServer(cfg *models.Config, storage service.StorageService, querier RecordQuerier, users service.UserResolver, logger *logrus.Logger) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		logger:  logger,
		cfg:     cfg,
		storage: storage,
		querier: querier,
		users:   users,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Observability(s.logger))

	// Health check and metrics
	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	if s.cfg.Capture.CaptureAllRequests {
		api.Use(middleware.Capture(s.storage, s.users, s.cfg.Capture.Options, s.logger))
	}
	api.HandleFunc("/capture", s.handleCapture()).Methods(http.MethodPost)
	api.HandleFunc("/records", s.handleSearchRecords()).Methods(http.MethodGet)
	api.HandleFunc("/records/{id:[0-9]+}", s.handleGetRecord()).Methods(http.MethodGet)
	api.HandleFunc("/stats/summary", s.handleStatsSummary()).Methods(http.MethodGet)
	api.HandleFunc("/stats/users/{userId}", s.handleUserStats()).Methods(http.MethodGet)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Server.IdleTimeoutSec) * time.Second,
	}

	s.logger.Infof("Starting server on port %d", s.cfg.Server.Port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// captureRequest is the optional body of POST /api/v1/capture. Absent
// fields fall back to the configured capture options.
type captureRequest struct {
	Tag   *string `json:"tag,omitempty"`
	Async *bool   `json:"async,omitempty"`
}

type captureResponse struct {
	Status string           `json:"status"`
	Record *models.IPRecord `json:"record,omitempty"`
}

func (s *Server) handleCapture() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := s.cfg.Capture.Options

		if r.Body != nil && r.ContentLength != 0 {
			var req captureRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				s.writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			if req.Tag != nil {
				opts.Tag = *req.Tag
			}
			if req.Async != nil {
				opts.Async = *req.Async
			}
		}

		userID := s.users.ResolveUserID(r)

		if opts.Async {
			s.storage.StoreFromRequestAsync(r.Context(), r, userID, opts)
			s.writeJSON(w, http.StatusAccepted, captureResponse{Status: "accepted"})
			return
		}

		record, err := s.storage.StoreFromRequest(r.Context(), r, userID, opts)
		if err != nil {
			if errors.Is(err, models.ErrNoAddressResolved) {
				s.writeError(w, http.StatusUnprocessableEntity, err.Error())
				return
			}
			s.logger.WithError(err).Error("Failed to store IP record")
			s.writeError(w, http.StatusInternalServerError, "failed to store record")
			return
		}
		if record == nil {
			s.writeJSON(w, http.StatusOK, captureResponse{Status: "duplicate"})
			return
		}
		s.writeJSON(w, http.StatusCreated, captureResponse{Status: "stored", Record: record})
	}
}

func (s *Server) handleSearchRecords() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		filter := models.RecordFilter{
			IPAddress: query.Get("ip"),
			UserID:    query.Get("userId"),
			Tag:       query.Get("tag"),
		}
		if limit := query.Get("limit"); limit != "" {
			n, err := strconv.Atoi(limit)
			if err != nil || n < 0 {
				s.writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			filter.Limit = n
		}
		if offset := query.Get("offset"); offset != "" {
			n, err := strconv.Atoi(offset)
			if err != nil || n < 0 {
				s.writeError(w, http.StatusBadRequest, "invalid offset")
				return
			}
			filter.Offset = n
		}

		records, err := s.querier.Search(r.Context(), filter)
		if err != nil {
			s.logger.WithError(err).Error("Failed to search records")
			s.writeError(w, http.StatusInternalServerError, "failed to search records")
			return
		}
		if records == nil {
			records = []models.IPRecord{}
		}
		s.writeJSON(w, http.StatusOK, records)
	}
}

func (s *Server) handleGetRecord() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid record id")
			return
		}

		record, err := s.querier.GetByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				s.writeError(w, http.StatusNotFound, "record not found")
				return
			}
			s.logger.WithError(err).Error("Failed to get record")
			s.writeError(w, http.StatusInternalServerError, "failed to get record")
			return
		}
		s.writeJSON(w, http.StatusOK, record)
	}
}

func (s *Server) handleStatsSummary() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := s.querier.Stats(r.Context())
		if err != nil {
			s.logger.WithError(err).Error("Failed to compute stats")
			s.writeError(w, http.StatusInternalServerError, "failed to compute stats")
			return
		}
		s.writeJSON(w, http.StatusOK, stats)
	}
}

func (s *Server) handleUserStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := mux.Vars(r)["userId"]
		if len(userID) > constants.MaxUserIDLength {
			s.writeError(w, http.StatusBadRequest, "user id too long")
			return
		}

		stats, err := s.querier.UserStats(r.Context(), userID)
		if err != nil {
			s.logger.WithError(err).Error("Failed to compute user stats")
			s.writeError(w, http.StatusInternalServerError, "failed to compute user stats")
			return
		}
		s.writeJSON(w, http.StatusOK, stats)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
