package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"iptrail/internal/constants"
	"iptrail/internal/migrations"
	"iptrail/internal/models"
	"iptrail/internal/security"

	_ "github.com/mattn/go-sqlite3"
)

// Database is the SQLite-backed record store. PII columns go through the
// encryptor; the two lookup columns use deterministic encryption so the
// unique indexes and equality queries keep working.
type Database struct {
	db        *sql.DB
	encryptor *encryptor
}

// New opens (or creates) the database at dbPath and applies the schema.
func New(dbPath string) (*Database, error) {
	if err := security.ValidateFilePath(dbPath); err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}

	// Ensure the database file exists so sqlite doesn't have to race on it
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		file, err := os.OpenFile(dbPath, os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			return nil, fmt.Errorf("failed to create database file: %w", err)
		}
		if err := file.Close(); err != nil {
			return nil, fmt.Errorf("failed to close database file: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	schema, err := migrations.GetInitialSchema()
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to load schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to apply schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	enc, err := NewEncryptor()
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize encryption: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize encryption: %w", err)
	}

	return &Database{db: db, encryptor: enc}, nil
}

// Close closes the underlying connection pool.
func (d *Database) Close() error {
	return d.db.Close()
}

// Append inserts a new record and returns a copy with its assigned ID.
// A unique-index hit maps to models.ErrDuplicateRecord so callers can
// treat the race as a normal duplicate-skip.
func (d *Database) Append(ctx context.Context, record *models.IPRecord) (*models.IPRecord, error) {
	if record == nil {
		return nil, models.ErrNilRecord
	}

	saved := *record
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = time.Now().UTC()
	}

	encAddress, err := d.encryptor.EncryptForLookup(saved.IPAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt ip address: %w", err)
	}
	encUserID, err := d.encryptor.encryptPtrForLookup(saved.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt user id: %w", err)
	}
	encUserAgent, err := d.encryptor.encryptPtr(saved.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt user agent: %w", err)
	}
	encPath, err := d.encryptor.encryptPtr(saved.RequestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt request path: %w", err)
	}

	var insertErr error
	err = retryableDBOperation(ctx, func() error {
		result, execErr := d.db.ExecContext(ctx, insertRecordQuery,
			encAddress, encUserID, encUserAgent, encPath,
			saved.HTTPMethod, saved.Tag, saved.SourceHeader, saved.CreatedAt)
		if execErr != nil {
			if isUniqueConstraintError(execErr) {
				insertErr = models.ErrDuplicateRecord
				return nil
			}
			return execErr
		}
		id, idErr := result.LastInsertId()
		if idErr != nil {
			return idErr
		}
		saved.ID = id
		return nil
	}, "insert IP record")
	if err != nil {
		return nil, err
	}
	if insertErr != nil {
		return nil, insertErr
	}

	return &saved, nil
}

// ExistsByAddressAndUser reports whether a record for the exact
// (address, userID) pair exists.
func (d *Database) ExistsByAddressAndUser(ctx context.Context, ipAddress, userID string) (bool, error) {
	encAddress, err := d.encryptor.EncryptForLookup(ipAddress)
	if err != nil {
		return false, fmt.Errorf("failed to encrypt ip address: %w", err)
	}
	encUserID, err := d.encryptor.EncryptForLookup(userID)
	if err != nil {
		return false, fmt.Errorf("failed to encrypt user id: %w", err)
	}

	var exists bool
	err = d.db.QueryRowContext(ctx, existsByAddressAndUserQuery, encAddress, encUserID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check record existence: %w", err)
	}
	return exists, nil
}

// FindByAddress returns all records for an address, newest first.
func (d *Database) FindByAddress(ctx context.Context, ipAddress string) ([]models.IPRecord, error) {
	encAddress, err := d.encryptor.EncryptForLookup(ipAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt ip address: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, selectRecordsByAddressQuery, encAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to query records by address: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return d.scanRecords(rows)
}

// GetByID returns the record with the given ID, or sql.ErrNoRows.
func (d *Database) GetByID(ctx context.Context, id int64) (*models.IPRecord, error) {
	row := d.db.QueryRowContext(ctx, selectRecordByIDQuery, id)
	record, err := d.scanRecord(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get record by id: %w", err)
	}
	return record, nil
}

// Search returns records matching the filter, newest first. Limit is
// clamped to the configured page bounds.
func (d *Database) Search(ctx context.Context, filter models.RecordFilter) ([]models.IPRecord, error) {
	var conditions []string
	var args []interface{}

	if filter.IPAddress != "" {
		encAddress, err := d.encryptor.EncryptForLookup(filter.IPAddress)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt ip address: %w", err)
		}
		conditions = append(conditions, "ip_address = ?")
		args = append(args, encAddress)
	}
	if filter.UserID != "" {
		encUserID, err := d.encryptor.EncryptForLookup(filter.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt user id: %w", err)
		}
		conditions = append(conditions, "user_id = ?")
		args = append(args, encUserID)
	}
	if filter.Tag != "" {
		conditions = append(conditions, "tag = ?")
		args = append(args, filter.Tag)
	}

	query := "SELECT " + recordColumns + " FROM ip_records"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"

	limit := filter.Limit
	if limit <= 0 {
		limit = constants.DefaultSearchPageSize
	}
	if limit > constants.MaxSearchPageSize {
		limit = constants.MaxSearchPageSize
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return d.scanRecords(rows)
}

// Stats aggregates the record table into the summary served by the API.
func (d *Database) Stats(ctx context.Context) (*models.IPStats, error) {
	stats := &models.IPStats{}

	if err := d.db.QueryRowContext(ctx, countRecordsQuery).Scan(&stats.TotalRecords); err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}
	if err := d.db.QueryRowContext(ctx, countDistinctAddressesQuery).Scan(&stats.UniqueAddresses); err != nil {
		return nil, fmt.Errorf("failed to count addresses: %w", err)
	}
	if err := d.db.QueryRowContext(ctx, countDistinctUsersQuery).Scan(&stats.UniqueUsers); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	now := time.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := now.AddDate(0, 0, -7)
	if err := d.db.QueryRowContext(ctx, countRecordsSinceQuery, dayStart).Scan(&stats.RecordsToday); err != nil {
		return nil, fmt.Errorf("failed to count records today: %w", err)
	}
	if err := d.db.QueryRowContext(ctx, countRecordsSinceQuery, weekStart).Scan(&stats.RecordsThisWeek); err != nil {
		return nil, fmt.Errorf("failed to count records this week: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, frequentAddressesQuery, 10)
	if err != nil {
		return nil, fmt.Errorf("failed to query frequent addresses: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var entry models.AddressCount
		if err := rows.Scan(&entry.IPAddress, &entry.Count); err != nil {
			return nil, fmt.Errorf("failed to scan address count: %w", err)
		}
		decrypted, err := d.encryptor.Decrypt(entry.IPAddress)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt ip address: %w", err)
		}
		entry.IPAddress = decrypted
		stats.TopAddresses = append(stats.TopAddresses, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate frequent addresses: %w", err)
	}

	// Aggregates lose the column decltype, so the driver hands the
	// timestamps back as text.
	var oldest, newest sql.NullString
	if err := d.db.QueryRowContext(ctx, recordTimeBoundsQuery).Scan(&oldest, &newest); err != nil {
		return nil, fmt.Errorf("failed to query record time bounds: %w", err)
	}
	if stats.OldestRecord, err = parseTimestamp(oldest); err != nil {
		return nil, fmt.Errorf("failed to parse oldest record time: %w", err)
	}
	if stats.NewestRecord, err = parseTimestamp(newest); err != nil {
		return nil, fmt.Errorf("failed to parse newest record time: %w", err)
	}

	return stats, nil
}

var sqliteTimestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTimestamp(value sql.NullString) (*time.Time, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	for _, layout := range sqliteTimestampLayouts {
		if ts, err := time.Parse(layout, value.String); err == nil {
			return &ts, nil
		}
	}
	return nil, fmt.Errorf("unrecognized timestamp %q", value.String)
}

// UserStats summarizes the recorded history of one user.
func (d *Database) UserStats(ctx context.Context, userID string) (*models.UserIPStats, error) {
	encUserID, err := d.encryptor.EncryptForLookup(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt user id: %w", err)
	}

	stats := &models.UserIPStats{UserID: userID}
	var lastSeen sql.NullString
	err = d.db.QueryRowContext(ctx, userStatsQuery, encUserID).
		Scan(&stats.TotalRecords, &stats.UniqueAddresses, &lastSeen)
	if err != nil {
		return nil, fmt.Errorf("failed to query user stats: %w", err)
	}
	if stats.LastSeen, err = parseTimestamp(lastSeen); err != nil {
		return nil, fmt.Errorf("failed to parse last seen time: %w", err)
	}
	return stats, nil
}

// DeleteOlderThan removes records created before the cutoff and returns
// how many were deleted.
func (d *Database) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := retryableDBOperation(ctx, func() error {
		result, execErr := d.db.ExecContext(ctx, deleteOlderThanQuery, cutoff)
		if execErr != nil {
			return execErr
		}
		n, affErr := result.RowsAffected()
		if affErr != nil {
			return affErr
		}
		deleted = n
		return nil
	}, "delete old records")
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (d *Database) scanRecord(row rowScanner) (*models.IPRecord, error) {
	var record models.IPRecord
	err := row.Scan(
		&record.ID, &record.IPAddress, &record.UserID, &record.UserAgent,
		&record.RequestPath, &record.HTTPMethod, &record.Tag,
		&record.SourceHeader, &record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	decrypted, err := d.encryptor.Decrypt(record.IPAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt ip address: %w", err)
	}
	record.IPAddress = decrypted

	if record.UserID, err = d.encryptor.decryptPtr(record.UserID); err != nil {
		return nil, fmt.Errorf("failed to decrypt user id: %w", err)
	}
	if record.UserAgent, err = d.encryptor.decryptPtr(record.UserAgent); err != nil {
		return nil, fmt.Errorf("failed to decrypt user agent: %w", err)
	}
	if record.RequestPath, err = d.encryptor.decryptPtr(record.RequestPath); err != nil {
		return nil, fmt.Errorf("failed to decrypt request path: %w", err)
	}

	return &record, nil
}

func (d *Database) scanRecords(rows *sql.Rows) ([]models.IPRecord, error) {
	var records []models.IPRecord
	for rows.Next() {
		record, err := d.scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return records, nil
}
