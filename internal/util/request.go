// Package util holds small HTTP helpers shared by the ops server.
package util

import (
	"net"
	"net/http"
	"strings"
)

// GetClientIP extracts the client IP address from a request,
// respecting proxy headers (X-Forwarded-For, X-Real-IP).
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
