package models

import "time"

// IPRecord is a single observed client address, optionally tied to a user.
// Records are written once and never updated; the pipeline guarantees at
// most one record per (ip_address, user_id) pair.
type IPRecord struct {
	ID           int64     `json:"id"`
	IPAddress    string    `json:"ipAddress"`
	UserID       *string   `json:"userId,omitempty"`
	UserAgent    *string   `json:"userAgent,omitempty"`
	RequestPath  *string   `json:"requestPath,omitempty"`
	HTTPMethod   *string   `json:"httpMethod,omitempty"`
	Tag          *string   `json:"tag,omitempty"`
	SourceHeader *string   `json:"sourceHeader,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// CaptureOptions selects which optional request fields are copied onto a
// record and whether the write takes the asynchronous path.
type CaptureOptions struct {
	StoreUserAgent   bool   `json:"storeUserAgent"`
	StoreRequestPath bool   `json:"storeRequestPath"`
	StoreHTTPMethod  bool   `json:"storeHttpMethod"`
	Tag              string `json:"tag"`
	Async            bool   `json:"async"`
}

// DefaultCaptureOptions records the request path and method asynchronously,
// without the User-Agent.
func DefaultCaptureOptions() CaptureOptions {
	return CaptureOptions{
		StoreRequestPath: true,
		StoreHTTPMethod:  true,
		Async:            true,
	}
}

// RecordFilter narrows record searches. Zero values mean "no filter".
type RecordFilter struct {
	IPAddress string
	UserID    string
	Tag       string
	Limit     int
	Offset    int
}

// AddressCount pairs an address with the number of records holding it.
type AddressCount struct {
	IPAddress string `json:"ipAddress"`
	Count     int64  `json:"count"`
}

// IPStats is the summary served by the stats endpoint.
type IPStats struct {
	TotalRecords    int64          `json:"totalRecords"`
	UniqueAddresses int64          `json:"uniqueAddresses"`
	UniqueUsers     int64          `json:"uniqueUsers"`
	RecordsToday    int64          `json:"recordsToday"`
	RecordsThisWeek int64          `json:"recordsThisWeek"`
	TopAddresses    []AddressCount `json:"topAddresses"`
	OldestRecord    *time.Time     `json:"oldestRecord,omitempty"`
	NewestRecord    *time.Time     `json:"newestRecord,omitempty"`
}

// UserIPStats summarizes the recorded history of one user.
type UserIPStats struct {
	UserID          string     `json:"userId"`
	TotalRecords    int64      `json:"totalRecords"`
	UniqueAddresses int64      `json:"uniqueAddresses"`
	LastSeen        *time.Time `json:"lastSeen,omitempty"`
}
