package constants

// Default server configuration values
const (
	DefaultServerPort            = 8089
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
	DefaultGracefulShutdownSec   = 30
)

// Default async executor configuration values
const (
	DefaultCorePoolSize            = 2
	DefaultMaxPoolSize             = 10
	DefaultQueueCapacity           = 100
	DefaultShutdownDrainTimeoutSec = 10
)

// Default retention configuration values
const (
	DefaultRetentionDays          = 90
	CleanupSchedulerIntervalHours = 24
)

// Database retry configuration
const (
	DefaultDatabaseRetryAttempts = 3
	DefaultRetryBackoffMs        = 1000
	DefaultMaxBackoffMs          = 60000
)

// Field length limits applied when assembling records from requests
const (
	MaxUserAgentLength   = 512
	MaxRequestPathLength = 2048
	MaxTagLength         = 100
	MaxUserIDLength      = 256
)

// DefaultUserIDHeader is consulted by the header-based user resolver when
// no identity header is configured.
const DefaultUserIDHeader = "X-User-ID"

// Search pagination bounds
const (
	DefaultSearchPageSize = 50
	MaxSearchPageSize     = 500
)

// Encryption salts. Changing these invalidates existing encrypted columns.
const (
	EncryptionSalt       = "iptrail-encryption-salt-v1"
	EncryptionLookupSalt = "iptrail-lookup-salt-v1"
)
