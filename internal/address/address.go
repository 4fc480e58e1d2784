package address

import (
	"net"
	"strings"
)

const DefaultHost = "0.0.0.0"

// Normalize prepends the default host to port-only addresses, so ":8080"
// becomes "0.0.0.0:8080".
func Normalize(addr string) string {
	if len(stripPort(addr)) == 0 {
		return DefaultHost + addr
	}

	return addr
}

func IsLocalhost(addr string) bool {
	host := stripPort(addr)

	return strings.EqualFold(host, "localhost") || net.ParseIP(host).IsLoopback()
}

func stripPort(addr string) string {
	colon := strings.LastIndexByte(addr, ':')
	if colon != -1 {
		return addr[:colon]
	}

	return addr
}
