package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidIPv4(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{"public address", "203.0.113.50", true},
		{"private address", "192.168.1.1", true},
		{"zero address", "0.0.0.0", true},
		{"broadcast", "255.255.255.255", true},
		{"octet too large", "256.1.1.1", false},
		{"too few octets", "10.0.0", false},
		{"too many octets", "10.0.0.1.2", false},
		{"leading zero octet accepted as single digit", "1.2.3.4", true},
		{"empty", "", false},
		{"with port", "10.0.0.1:8080", false},
		{"hostname", "example.com", false},
		{"negative octet", "-1.0.0.1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidIPv4(tt.input))
		})
	}
}

func TestIsValidIPv6(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{"full form", "2001:0db8:85a3:0000:0000:8a2e:0370:7334", true},
		{"compressed", "2001:db8::1", true},
		{"loopback short", "::1", true},
		{"loopback long form", "0:0:0:0:0:0:0:1", true},
		{"all zeros compressed", "::", true},
		{"trailing compression", "2001:db8::", true},
		{"too many groups", "1:2:3:4:5:6:7:8:9", false},
		{"invalid hex", "2001:db8::zzzz", false},
		{"ipv4 address", "10.0.0.1", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidIPv6(tt.input))
		})
	}
}

func TestIsValidIP(t *testing.T) {
	assert.True(t, IsValidIP("203.0.113.50"))
	assert.True(t, IsValidIP("2001:db8::1"))
	assert.True(t, IsValidIP("  203.0.113.50  "), "surrounding whitespace is tolerated")
	assert.False(t, IsValidIP(""))
	assert.False(t, IsValidIP("unknown"))
	assert.False(t, IsValidIP("not-an-ip"))
}

func TestNormalizeIP(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"loopback long form collapses", "0:0:0:0:0:0:0:1", "::1"},
		{"loopback short passes through", "::1", "::1"},
		{"ipv4 untouched", "203.0.113.50", "203.0.113.50"},
		{"whitespace trimmed", " 10.0.0.1 ", "10.0.0.1"},
		{"regular ipv6 untouched", "2001:db8::1", "2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeIP(tt.input))
		})
	}
}
