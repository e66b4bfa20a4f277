package extractor

import "strings"

type parseStrategy int

const (
	// singleValue headers carry exactly one address, injected by an edge
	// CDN or WAF.
	singleValue parseStrategy = iota
	// forwardingList headers carry a comma-separated proxy chain, leftmost
	// entry first.
	forwardingList
	// rfc7239 is the standard Forwarded header syntax.
	rfc7239
)

type candidateHeader struct {
	name     string
	strategy parseStrategy
}

// candidateHeaders is checked in order of specificity and reliability.
// Provider-specific single-value headers come before the generic multi-hop
// headers; the RFC 7239 Forwarded header is checked last.
var candidateHeaders = []candidateHeader{
	{"CF-Connecting-IP", singleValue},
	{"True-Client-IP", singleValue},
	{"Fastly-Client-IP", singleValue},
	{"X-Azure-ClientIP", singleValue},
	{"X-Appengine-User-IP", singleValue},
	{"X-Real-IP", singleValue},
	{"X-Forwarded-For", forwardingList},
	{"X-Original-Forwarded-For", forwardingList},
	{"X-Client-IP", singleValue},
	{"X-Cluster-Client-IP", singleValue},
	{"Forwarded", rfc7239},
}

// usableHeaderValue rejects blank values and the literal "unknown" some
// proxies insert for absent clients.
func usableHeaderValue(value string) bool {
	trimmed := strings.TrimSpace(value)
	return trimmed != "" && !strings.EqualFold(trimmed, "unknown")
}

// stripPort removes a trailing ":port" from a candidate value. Bracketed
// IPv6 values are unwrapped to their bracket content; a value with more
// than one colon and no brackets is assumed to be a bare IPv6 address and
// left untouched.
func stripPort(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		if end := strings.Index(s, "]"); end > 0 {
			return s[1:end]
		}
		return s
	}
	if strings.Count(s, ":") == 1 {
		return s[:strings.Index(s, ":")]
	}
	return s
}

func parseSingleValue(value string) (string, bool) {
	candidate := stripPort(value)
	if IsValidIP(candidate) {
		return NormalizeIP(candidate), true
	}
	return "", false
}

// parseForwardingList resolves a comma-separated proxy chain. The first
// pass returns the leftmost public address; the second pass, taken only
// when the chain is trusted, returns the leftmost valid address of any
// kind, which covers fully private deployments.
func parseForwardingList(value string, trustChain bool) (string, bool) {
	entries := strings.Split(value, ",")

	for _, entry := range entries {
		candidate := stripPort(entry)
		if IsValidIP(candidate) {
			normalized := NormalizeIP(candidate)
			if !IsPrivateIP(normalized) {
				return normalized, true
			}
		}
	}

	if trustChain {
		for _, entry := range entries {
			candidate := stripPort(entry)
			if IsValidIP(candidate) {
				return NormalizeIP(candidate), true
			}
		}
	}

	return "", false
}

// parseForwarded resolves the RFC 7239 Forwarded header: semicolon-separated
// parameters, the client address in "for=". Quotes are stripped, bracketed
// IPv6 values are unwrapped, and a trailing ":port" is removed from
// bracket-less values.
func parseForwarded(value string) (string, bool) {
	for _, part := range strings.Split(value, ";") {
		part = strings.TrimSpace(part)
		if len(part) < 4 || !strings.EqualFold(part[:4], "for=") {
			continue
		}

		forValue := strings.TrimSpace(part[4:])
		if strings.HasPrefix(forValue, `"`) && strings.HasSuffix(forValue, `"`) && len(forValue) >= 2 {
			forValue = forValue[1 : len(forValue)-1]
		}

		if strings.HasPrefix(forValue, "[") {
			if end := strings.Index(forValue, "]"); end > 0 {
				forValue = forValue[1:end]
			}
		} else if idx := strings.Index(forValue, ":"); idx >= 0 && strings.Count(forValue, ":") == 1 {
			forValue = forValue[:idx]
		}

		if IsValidIP(forValue) {
			return NormalizeIP(forValue), true
		}
	}

	return "", false
}
