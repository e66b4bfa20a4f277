package extractor

import (
	"regexp"
	"strings"
)

var ipv4Pattern = regexp.MustCompile(
	`^((25[0-5]|2[0-4]\d|1\d{2}|[1-9]?\d)\.){3}(25[0-5]|2[0-4]\d|1\d{2}|[1-9]?\d)$`,
)

// ipv6Pattern matches the canonical compressed and uncompressed textual
// forms. Zone identifiers and IPv4-mapped forms are intentionally rejected.
var ipv6Pattern = regexp.MustCompile(strings.Join([]string{
	`^([0-9a-fA-F]{1,4}:){7}[0-9a-fA-F]{1,4}$`,
	`^::([0-9a-fA-F]{1,4}:){0,6}[0-9a-fA-F]{1,4}$`,
	`^([0-9a-fA-F]{1,4}:){1,7}:$`,
	`^([0-9a-fA-F]{1,4}:){1,6}:[0-9a-fA-F]{1,4}$`,
	`^([0-9a-fA-F]{1,4}:){1,5}(:[0-9a-fA-F]{1,4}){1,2}$`,
	`^([0-9a-fA-F]{1,4}:){1,4}(:[0-9a-fA-F]{1,4}){1,3}$`,
	`^([0-9a-fA-F]{1,4}:){1,3}(:[0-9a-fA-F]{1,4}){1,4}$`,
	`^([0-9a-fA-F]{1,4}:){1,2}(:[0-9a-fA-F]{1,4}){1,5}$`,
	`^[0-9a-fA-F]{1,4}:(:[0-9a-fA-F]{1,4}){1,6}$`,
	`^:((:[0-9a-fA-F]{1,4}){1,7}|:)$`,
}, "|"))

const (
	loopbackLongForm = "0:0:0:0:0:0:0:1"
	loopbackShort    = "::1"
)

// IsValidIPv4 reports whether s is four dot-separated octets in 0-255.
func IsValidIPv4(s string) bool {
	return ipv4Pattern.MatchString(s)
}

// IsValidIPv6 reports whether s is a syntactically valid IPv6 address.
// The expanded and compressed loopback literals are always accepted.
func IsValidIPv6(s string) bool {
	return ipv6Pattern.MatchString(s) || s == loopbackLongForm || s == loopbackShort
}

// IsValidIP reports whether s is a valid IPv4 or IPv6 address.
func IsValidIP(s string) bool {
	if s == "" {
		return false
	}
	trimmed := strings.TrimSpace(s)
	return IsValidIPv4(trimmed) || IsValidIPv6(trimmed)
}

// NormalizeIP trims the value and collapses the expanded IPv6 loopback
// literal to "::1". No other normalization is performed.
func NormalizeIP(s string) string {
	normalized := strings.TrimSpace(s)
	if normalized == loopbackLongForm {
		return loopbackShort
	}
	return normalized
}
