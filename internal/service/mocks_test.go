package service

import (
	"context"
	"net/http"
	"sync"
	"time"

	"iptrail/internal/extractor"
	"iptrail/internal/models"

	"github.com/stretchr/testify/mock"
)

// fakeRecordStore is an in-memory RecordStore with the same duplicate
// semantics as the SQLite store.
type fakeRecordStore struct {
	mu        sync.Mutex
	records   []models.IPRecord
	nextID    int64
	appendErr error
	existsErr error
	findErr   error
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{nextID: 1}
}

func (f *fakeRecordStore) Append(ctx context.Context, record *models.IPRecord) (*models.IPRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.appendErr != nil {
		return nil, f.appendErr
	}

	saved := *record
	saved.ID = f.nextID
	f.nextID++
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = time.Now().UTC()
	}
	f.records = append(f.records, saved)
	return &saved, nil
}

func (f *fakeRecordStore) ExistsByAddressAndUser(ctx context.Context, ipAddress, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.existsErr != nil {
		return false, f.existsErr
	}

	for _, r := range f.records {
		if r.IPAddress == ipAddress && r.UserID != nil && *r.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRecordStore) FindByAddress(ctx context.Context, ipAddress string) ([]models.IPRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.findErr != nil {
		return nil, f.findErr
	}

	var out []models.IPRecord
	for _, r := range f.records {
		if r.IPAddress == ipAddress {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRecordStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// fakeResolver returns a fixed resolution regardless of the request.
type fakeResolver struct {
	resolved extractor.ResolvedIP
	ok       bool
}

func (f *fakeResolver) Resolve(r *http.Request) (extractor.ResolvedIP, bool) {
	return f.resolved, f.ok
}

// mockCleanupStore is a testify mock for the scheduler's dependency.
type mockCleanupStore struct {
	mock.Mock
}

func (m *mockCleanupStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}
