package common

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the client address from RemoteAddr without the port. Proxy
// headers are resolved upstream by chi's RealIP middleware.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	addr = strings.Trim(addr, "[]")
	if ip := net.ParseIP(addr); ip != nil {
		return ip.String()
	}
	return addr
}
