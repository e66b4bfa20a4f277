package extractor

import (
	"fmt"
	"net"
	"net/http"

	"iptrail/internal/metrics"
	"iptrail/internal/models"

	"github.com/sirupsen/logrus"
)

// SourcePeer is the Source reported when the address came from the
// transport peer rather than a header.
const SourcePeer = "peer"

// ResolvedIP is the outcome of a successful resolution: the normalized
// address, the header it came from (or "peer"), and its privacy class.
type ResolvedIP struct {
	Address string
	Source  string
	Private bool
}

// Extractor resolves the originating client address of an HTTP request that
// may have traversed reverse proxies, CDNs, and load balancers.
//
// The candidate header table and trust policy are fixed at construction;
// an Extractor is safe for concurrent use.
type Extractor struct {
	trustAllProxies bool
	trustedProxies  []cidrBlock
	logger          *logrus.Logger
}

// New creates an Extractor from the resolver configuration. Entries in
// TrustedProxies must be valid CIDR blocks or bare addresses.
func New(cfg models.ResolverConfig, logger *logrus.Logger) (*Extractor, error) {
	if logger == nil {
		logger = logrus.New()
	}

	trusted := make([]cidrBlock, 0, len(cfg.TrustedProxies))
	for _, raw := range cfg.TrustedProxies {
		block, err := parseCIDRBlock(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy range %q: %w", raw, err)
		}
		trusted = append(trusted, block)
	}

	return &Extractor{
		trustAllProxies: cfg.TrustAllProxies,
		trustedProxies:  trusted,
		logger:          logger,
	}, nil
}

// Resolve extracts the client address from the request headers, falling
// back to the transport peer address. The second return value is false
// when no header and no peer address yield a valid address; that is an
// expected outcome, not an error.
func (e *Extractor) Resolve(r *http.Request) (ResolvedIP, bool) {
	if r == nil {
		return ResolvedIP{}, false
	}
	return e.ResolveValues(r.Header, r.RemoteAddr)
}

// ResolveValues is Resolve for callers that do not hold an *http.Request.
// Header lookups are case-insensitive; remoteAddr may carry a port.
func (e *Extractor) ResolveValues(header http.Header, remoteAddr string) (ResolvedIP, bool) {
	peer := peerAddress(remoteAddr)
	trustChain := e.trustAllProxies || e.isTrustedProxy(peer)

	for _, candidate := range candidateHeaders {
		value := header.Get(candidate.name)
		if !usableHeaderValue(value) {
			continue
		}

		var address string
		var ok bool
		switch candidate.strategy {
		case forwardingList:
			address, ok = parseForwardingList(value, trustChain)
		case rfc7239:
			address, ok = parseForwarded(value)
		default:
			address, ok = parseSingleValue(value)
		}

		if ok {
			e.logger.WithFields(logrus.Fields{
				"source": candidate.name,
				"ip":     address,
			}).Debug("Resolved client IP from header")
			metrics.RecordResolution(candidate.name, true)
			return ResolvedIP{
				Address: address,
				Source:  candidate.name,
				Private: IsPrivateIP(address),
			}, true
		}
	}

	if IsValidIP(peer) {
		address := NormalizeIP(peer)
		e.logger.WithField("ip", address).Debug("Using peer address as client IP")
		metrics.RecordResolution(SourcePeer, true)
		return ResolvedIP{
			Address: address,
			Source:  SourcePeer,
			Private: IsPrivateIP(address),
		}, true
	}

	e.logger.Debug("Could not resolve a client IP from the request")
	metrics.RecordResolution(SourcePeer, false)
	return ResolvedIP{}, false
}

// TrustAllProxies reports whether the extractor trusts all proxy headers.
func (e *Extractor) TrustAllProxies() bool {
	return e.trustAllProxies
}

func (e *Extractor) isTrustedProxy(peer string) bool {
	if len(e.trustedProxies) == 0 || peer == "" {
		return false
	}

	ip := net.ParseIP(peer)
	if ip == nil {
		return false
	}

	addr := []byte(ip.To4())
	if addr == nil {
		addr = []byte(ip.To16())
	}

	for _, block := range e.trustedProxies {
		if block.contains(addr) {
			return true
		}
	}
	return false
}

// peerAddress strips the port from a transport address like
// "203.0.113.7:41234" or "[::1]:8080".
func peerAddress(remoteAddr string) string {
	if remoteAddr == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
