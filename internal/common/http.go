package common

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP returns the client address of r without its port. Forwarding
// headers are not read here; the router's RealIP middleware has already
// folded them into RemoteAddr. IPv4-mapped IPv6 addresses are unmapped so a
// client keys the same limiter bucket on either stack.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	if ip, err := netip.ParseAddr(addr); err == nil {
		return ip.Unmap().String()
	}
	return addr
}
