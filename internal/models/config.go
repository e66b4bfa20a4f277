package models

// Config holds the application configuration
type Config struct {
	Server        ServerConfig   `json:"server"`
	Database      DatabaseConfig `json:"database"`
	Resolver      ResolverConfig `json:"resolver"`
	Async         AsyncConfig    `json:"async"`
	Capture       CaptureConfig  `json:"capture"`
	Tracing       TracingConfig  `json:"tracing"`
	LogLevel      string         `json:"log_level"`
	RetentionDays int            `json:"retentionDays"`
}

// ServerConfig holds HTTP server related configurations
type ServerConfig struct {
	Port            int `json:"port"`
	ReadTimeoutSec  int `json:"readTimeoutSec"`
	WriteTimeoutSec int `json:"writeTimeoutSec"`
	IdleTimeoutSec  int `json:"idleTimeoutSec"`
}

// DatabaseConfig holds database related configurations
type DatabaseConfig struct {
	Path string `json:"path"`
}

// ResolverConfig controls how much the resolver trusts proxy headers.
// TrustedProxies entries are CIDR blocks (a bare address means /32 or /128).
type ResolverConfig struct {
	TrustAllProxies bool     `json:"trustAllProxies"`
	TrustedProxies  []string `json:"trustedProxies"`
}

// AsyncConfig sizes the bounded executor behind the asynchronous store path.
type AsyncConfig struct {
	CorePoolSize            int `json:"corePoolSize"`
	MaxPoolSize             int `json:"maxPoolSize"`
	QueueCapacity           int `json:"queueCapacity"`
	ShutdownDrainTimeoutSec int `json:"shutdownDrainTimeoutSec"`
}

// CaptureConfig holds the capture options applied by the service's own
// capture endpoint and middleware, plus the header consulted for the
// authenticated user identity. CaptureAllRequests additionally records the
// client of every API request, not just calls to the capture endpoint.
type CaptureConfig struct {
	UserIDHeader       string         `json:"userIdHeader"`
	CaptureAllRequests bool           `json:"captureAllRequests"`
	Options            CaptureOptions `json:"options"`
}

// TracingConfig contains OpenTelemetry configuration
type TracingConfig struct {
	ServiceName    string  `json:"service_name"`
	ServiceVersion string  `json:"service_version"`
	Environment    string  `json:"environment"`
	OTLPEndpoint   string  `json:"otlp_endpoint"`
	SampleRate     float64 `json:"sample_rate"`
	Enabled        bool    `json:"enabled"`
	UseStdout      bool    `json:"use_stdout"`
}
