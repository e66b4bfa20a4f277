package service

// Standard structured-log field names used across the service so log
// queries stay consistent.
const (
	LogFieldRequestID = "request_id"
	LogFieldTraceID   = "trace_id"
	LogFieldMethod    = "method"
	LogFieldURL       = "url"
	LogFieldRemoteIP  = "remote_ip"
	LogFieldUserAgent = "user_agent"
	LogFieldIPAddress = "ip"
	LogFieldUserID    = "user_id"
	LogFieldSource    = "source"
	LogFieldRecordID  = "record_id"
)
