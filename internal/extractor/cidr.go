package extractor

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// cidrBlock is a network address plus prefix length. Containment is tested
// byte-wise up to the full-byte boundary of the prefix, then against a mask
// over the partial byte.
type cidrBlock struct {
	network   []byte
	prefixLen int
}

func (c cidrBlock) contains(addr []byte) bool {
	if len(addr) != len(c.network) {
		return false
	}

	fullBytes := c.prefixLen / 8
	remainingBits := c.prefixLen % 8

	for i := 0; i < fullBytes; i++ {
		if addr[i] != c.network[i] {
			return false
		}
	}

	if remainingBits > 0 && fullBytes < len(c.network) {
		mask := byte((0xFF << (8 - remainingBits)) & 0xFF)
		if addr[fullBytes]&mask != c.network[fullBytes]&mask {
			return false
		}
	}

	return true
}

// privateIPv4Blocks are the reserved IPv4 ranges treated as non-public.
var privateIPv4Blocks = []cidrBlock{
	{network: []byte{10, 0, 0, 0}, prefixLen: 8},
	{network: []byte{172, 16, 0, 0}, prefixLen: 12},
	{network: []byte{192, 168, 0, 0}, prefixLen: 16},
	{network: []byte{127, 0, 0, 0}, prefixLen: 8},
	{network: []byte{169, 254, 0, 0}, prefixLen: 16},
	{network: []byte{0, 0, 0, 0}, prefixLen: 8},
}

// parseCIDRBlock parses "network/prefix" notation. A bare address is
// treated as a host route (/32 or /128).
func parseCIDRBlock(s string) (cidrBlock, error) {
	value := strings.TrimSpace(s)
	if value == "" {
		return cidrBlock{}, fmt.Errorf("empty CIDR block")
	}

	addrPart := value
	prefixPart := ""
	if idx := strings.Index(value, "/"); idx >= 0 {
		addrPart = value[:idx]
		prefixPart = value[idx+1:]
	}

	ip := net.ParseIP(addrPart)
	if ip == nil {
		return cidrBlock{}, fmt.Errorf("invalid network address %q", addrPart)
	}

	network := []byte(ip.To4())
	if network == nil {
		network = []byte(ip.To16())
	}

	prefixLen := len(network) * 8
	if prefixPart != "" {
		parsed, err := strconv.Atoi(prefixPart)
		if err != nil {
			return cidrBlock{}, fmt.Errorf("invalid prefix length %q: %w", prefixPart, err)
		}
		if parsed < 0 || parsed > len(network)*8 {
			return cidrBlock{}, fmt.Errorf("prefix length %d out of range for %q", parsed, addrPart)
		}
		prefixLen = parsed
	}

	return cidrBlock{network: network, prefixLen: prefixLen}, nil
}

// IsPrivateIP reports whether the address is loopback, link-local,
// unspecified, or inside one of the reserved IPv4 ranges. Only 4-byte
// addresses are checked against the CIDR table; IPv6 privacy relies on the
// runtime classification alone.
func IsPrivateIP(s string) bool {
	if s == "" {
		return false
	}

	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return false
	}

	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified() || ip.IsPrivate() {
		return true
	}

	if ip4 := ip.To4(); ip4 != nil {
		for _, block := range privateIPv4Blocks {
			if block.contains(ip4) {
				return true
			}
		}
	}

	return false
}
