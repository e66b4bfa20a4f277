package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCIDRBlock(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		prefixLen int
		wantErr   bool
	}{
		{"ipv4 network", "10.0.0.0/8", 8, false},
		{"ipv4 host route", "203.0.113.7", 32, false},
		{"partial byte prefix", "172.16.0.0/12", 12, false},
		{"ipv6 network", "2001:db8::/32", 32, false},
		{"ipv6 host route", "2001:db8::1", 128, false},
		{"empty", "", 0, true},
		{"bad address", "300.0.0.0/8", 0, true},
		{"bad prefix", "10.0.0.0/abc", 0, true},
		{"prefix out of range", "10.0.0.0/33", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			block, err := parseCIDRBlock(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.prefixLen, block.prefixLen)
		})
	}
}

func TestCIDRBlockContains(t *testing.T) {
	block, err := parseCIDRBlock("172.16.0.0/12")
	require.NoError(t, err)

	tests := []struct {
		name     string
		addr     []byte
		expected bool
	}{
		{"inside range start", []byte{172, 16, 0, 1}, true},
		{"inside range end", []byte{172, 31, 255, 255}, true},
		{"just below range", []byte{172, 15, 255, 255}, false},
		{"just above range", []byte{172, 32, 0, 0}, false},
		{"different length", []byte{172, 16}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, block.contains(tt.addr))
		})
	}
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		private bool
	}{
		{"rfc1918 ten", "10.1.2.3", true},
		{"rfc1918 one seventy two", "172.16.0.1", true},
		{"rfc1918 one ninety two", "192.168.1.1", true},
		{"loopback v4", "127.0.0.1", true},
		{"link local v4", "169.254.1.1", true},
		{"zero network", "0.1.2.3", true},
		{"loopback v6", "::1", true},
		{"unique local v6", "fd00::1", true},
		{"link local v6", "fe80::1", true},
		{"public v4", "203.0.113.50", false},
		{"public v6", "2001:db8::1", false},
		{"one seventy two outside range", "172.32.0.1", false},
		{"invalid", "not-an-ip", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.private, IsPrivateIP(tt.input))
		})
	}
}
