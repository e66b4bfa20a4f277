package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"iptrail/internal/constants"
	"iptrail/internal/extractor"
	"iptrail/internal/metrics"
	"iptrail/internal/models"
	"iptrail/internal/tracing"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// RecordStore is the persistence capability the pipeline depends on.
type RecordStore interface {
	Append(ctx context.Context, record *models.IPRecord) (*models.IPRecord, error)
	ExistsByAddressAndUser(ctx context.Context, ipAddress, userID string) (bool, error)
	FindByAddress(ctx context.Context, ipAddress string) ([]models.IPRecord, error)
}

// Resolver turns an HTTP request into a client address.
type Resolver interface {
	Resolve(r *http.Request) (extractor.ResolvedIP, bool)
}

// StoreResult carries the outcome of an asynchronous store. A nil Record
// with a nil Err means the record was skipped as a duplicate.
type StoreResult struct {
	Record *models.IPRecord
	Err    error
}

// StorageService persists IP records at most once per (address, user)
// pair, synchronously or through the bounded async executor.
type StorageService interface {
	// Store persists the record unless an equivalent one exists. A nil
	// result with a nil error is a duplicate-skip.
	Store(ctx context.Context, record *models.IPRecord) (*models.IPRecord, error)
	// StoreAsync is Store on the executor. It never fails synchronously;
	// saturation and storage failures are delivered on the channel.
	StoreAsync(ctx context.Context, record *models.IPRecord) <-chan StoreResult
	// StoreFromRequest resolves the client address, assembles a record from
	// the request fields selected by opts, and stores it.
	StoreFromRequest(ctx context.Context, r *http.Request, userID *string, opts models.CaptureOptions) (*models.IPRecord, error)
	// StoreFromRequestAsync assembles the record synchronously (the request
	// must not be retained) and performs the store on the executor.
	StoreFromRequestAsync(ctx context.Context, r *http.Request, userID *string, opts models.CaptureOptions) <-chan StoreResult
}

type storageService struct {
	logger   *logrus.Logger
	store    RecordStore
	resolver Resolver
	executor *Executor
}

// NewStorageService wires the pipeline. The executor may be shared with
// other components; the pipeline does not own its lifecycle.
func NewStorageService(store RecordStore, resolver Resolver, executor *Executor, logger *logrus.Logger) StorageService {
	if logger == nil {
		logger = logrus.New()
	}
	return &storageService{
		logger:   logger,
		store:    store,
		resolver: resolver,
		executor: executor,
	}
}

func (s *storageService) Store(ctx context.Context, record *models.IPRecord) (*models.IPRecord, error) {
	if record == nil {
		return nil, models.ErrNilRecord
	}
	if strings.TrimSpace(record.IPAddress) == "" {
		return nil, models.ErrBlankAddress
	}

	ctx, span := tracing.WithOtelTracing(ctx, "store_ip_record")
	defer span.End()
	tracing.AddSpanAttributes(ctx, attribute.String("record.ip", record.IPAddress))

	start := time.Now()
	defer func() {
		metrics.ObserveStoreDuration(time.Since(start))
	}()

	duplicate, err := s.isDuplicate(ctx, record.IPAddress, record.UserID)
	if err != nil {
		metrics.RecordStoreOutcome("error")
		tracing.RecordError(ctx, err)
		return nil, fmt.Errorf("failed to check for duplicate record: %w", err)
	}
	if duplicate {
		s.logger.WithFields(logrus.Fields{
			LogFieldIPAddress: record.IPAddress,
			LogFieldUserID:    userIDForLog(record.UserID),
		}).Debug("Skipping duplicate IP record")
		metrics.RecordStoreOutcome("duplicate")
		return nil, nil
	}

	saved, err := s.store.Append(ctx, record)
	if err != nil {
		// A concurrent submission for the same pair can slip past the
		// duplicate check; the store's unique constraint settles the race.
		if errors.Is(err, models.ErrDuplicateRecord) {
			s.logger.WithField(LogFieldIPAddress, record.IPAddress).
				Debug("Concurrent duplicate resolved by unique constraint")
			metrics.RecordStoreOutcome("duplicate")
			return nil, nil
		}
		metrics.RecordStoreOutcome("error")
		tracing.RecordError(ctx, err)
		return nil, fmt.Errorf("failed to append IP record: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		LogFieldRecordID:  saved.ID,
		LogFieldIPAddress: saved.IPAddress,
	}).Debug("Stored IP record")
	metrics.RecordStoreOutcome("stored")
	return saved, nil
}

func (s *storageService) StoreAsync(ctx context.Context, record *models.IPRecord) <-chan StoreResult {
	result := make(chan StoreResult, 1)

	// The caller's request context may end before the task runs; keep its
	// values but detach its cancellation.
	taskCtx := context.WithoutCancel(ctx)
	err := s.executor.Submit(func() {
		saved, storeErr := s.Store(taskCtx, record)
		if storeErr != nil {
			s.logger.WithError(storeErr).Error("Failed to store IP record asynchronously")
		}
		result <- StoreResult{Record: saved, Err: storeErr}
		close(result)
	})
	if err != nil {
		s.logger.WithError(err).Warn("Async store rejected")
		result <- StoreResult{Err: err}
		close(result)
	}

	return result
}

func (s *storageService) StoreFromRequest(ctx context.Context, r *http.Request, userID *string, opts models.CaptureOptions) (*models.IPRecord, error) {
	record, err := s.assembleRecord(r, userID, opts)
	if err != nil {
		return nil, err
	}
	return s.Store(ctx, record)
}

func (s *storageService) StoreFromRequestAsync(ctx context.Context, r *http.Request, userID *string, opts models.CaptureOptions) <-chan StoreResult {
	record, err := s.assembleRecord(r, userID, opts)
	if err != nil {
		result := make(chan StoreResult, 1)
		result <- StoreResult{Err: err}
		close(result)
		return result
	}
	return s.StoreAsync(ctx, record)
}

// assembleRecord reads everything it needs from the request up front so
// async stores never touch the request after the handler returns.
func (s *storageService) assembleRecord(r *http.Request, userID *string, opts models.CaptureOptions) (*models.IPRecord, error) {
	if r == nil {
		return nil, models.ErrNilRequest
	}

	resolved, ok := s.resolver.Resolve(r)
	if !ok {
		return nil, models.ErrNoAddressResolved
	}

	record := &models.IPRecord{
		IPAddress:    resolved.Address,
		UserID:       userID,
		SourceHeader: strPtr(resolved.Source),
	}

	if opts.StoreUserAgent {
		if ua := truncate(r.UserAgent(), constants.MaxUserAgentLength); ua != "" {
			record.UserAgent = &ua
		}
	}
	if opts.StoreRequestPath && r.URL != nil {
		if path := truncate(r.URL.Path, constants.MaxRequestPathLength); path != "" {
			record.RequestPath = &path
		}
	}
	if opts.StoreHTTPMethod && r.Method != "" {
		method := r.Method
		record.HTTPMethod = &method
	}
	if opts.Tag != "" {
		tag := truncate(opts.Tag, constants.MaxTagLength)
		record.Tag = &tag
	}

	return record, nil
}

// isDuplicate applies the asymmetric duplicate rule: identified records
// match on the exact (address, userId) pair, anonymous records match any
// other anonymous record with the same address. Anonymous and identified
// hits against the same address coexist.
func (s *storageService) isDuplicate(ctx context.Context, ipAddress string, userID *string) (bool, error) {
	if userID == nil {
		records, err := s.store.FindByAddress(ctx, ipAddress)
		if err != nil {
			return false, err
		}
		for _, existing := range records {
			if existing.UserID == nil {
				return true, nil
			}
		}
		return false, nil
	}
	return s.store.ExistsByAddressAndUser(ctx, ipAddress, *userID)
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

func strPtr(s string) *string {
	return &s
}

func userIDForLog(userID *string) string {
	if userID == nil {
		return ""
	}
	return *userID
}
