package identity

import (
	"crypto/md5"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
)

// Unknown stands in for an address or user agent that could not be determined
const Unknown = "unknown"

// NormalizeIP reduces a raw address to the form used for identity:
// the first entry of a proxy chain, IPv4-mapped IPv6 unwrapped and the
// IPv6 loopback collapsed to 127.0.0.1.
func NormalizeIP(raw string) string {
	ip := raw
	if i := strings.IndexByte(ip, ','); i >= 0 {
		ip = ip[:i]
	}
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return Unknown
	}
	parsed := net.ParseIP(ip)
	switch {
	case parsed == nil:
		return ip
	case parsed.To4() != nil:
		return parsed.To4().String()
	case parsed.IsLoopback():
		return "127.0.0.1"
	}
	return ip
}

// ClientIP extracts the visitor address from proxy headers, falling back
// to the socket peer. A header that yields no address is skipped.
func ClientIP(r *http.Request) string {
	for _, header := range []string{"CF-Connecting-IP", "X-Real-IP", "X-Forwarded-For"} {
		if ip := NormalizeIP(r.Header.Get(header)); ip != Unknown {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return NormalizeIP(host)
}

// PseudoID derives the stable anonymous id for an address/user-agent pair
func PseudoID(ip, userAgent string) string {
	ua := strings.TrimSpace(userAgent)
	if ua == "" {
		ua = Unknown
	}
	if ip == "" {
		ip = Unknown
	}
	sum := md5.Sum([]byte(ip + "-" + ua))
	return hex.EncodeToString(sum[:])
}
