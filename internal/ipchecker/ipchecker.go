// Package ipchecker restricts operational endpoints to clients inside a
// trusted subnet.
package ipchecker

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/patric-chuzhbe/thesiscomments/internal/logger"
)

// IPChecker matches client addresses against one CIDR block.
// The zero subnet admits nobody.
type IPChecker struct {
	trustedSubnet *net.IPNet
}

// New parses trustedSubnet in CIDR notation (e.g. "10.0.0.0/8").
// An empty string yields a checker that rejects every client.
func New(trustedSubnet string) (*IPChecker, error) {
	if trustedSubnet == "" {
		return &IPChecker{}, nil
	}
	_, allowedNet, err := net.ParseCIDR(trustedSubnet)
	if err != nil {
		return nil, fmt.Errorf("in internal/ipchecker/ipchecker.go/New(): error while `net.ParseCIDR()` calling: %w", err)
	}
	return &IPChecker{
		trustedSubnet: allowedNet,
	}, nil
}

// Check reports whether clientIP lies inside the trusted subnet.
func (checker *IPChecker) Check(clientIP net.IP) bool {
	return checker.trustedSubnet != nil && clientIP != nil && checker.trustedSubnet.Contains(clientIP)
}

// ClientIP extracts the caller address: X-Real-IP, then the first
// X-Forwarded-For entry, then RemoteAddr.
func ClientIP(request *http.Request) (net.IP, error) {
	if ip := net.ParseIP(strings.TrimSpace(request.Header.Get("X-Real-IP"))); ip != nil {
		return ip, nil
	}
	if xff := request.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip, nil
		}
	}
	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		host = request.RemoteAddr
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return nil, fmt.Errorf("in internal/ipchecker/ipchecker.go/ClientIP(): cannot parse client address %q", request.RemoteAddr)
	}
	return ip, nil
}

// Enabled reports whether a trusted subnet is configured.
func (checker *IPChecker) Enabled() bool {
	return checker.trustedSubnet != nil
}

// TrustedOnly lets requests from the trusted subnet through and hands every
// other request to deny.
func (checker *IPChecker) TrustedOnly(deny http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP, err := ClientIP(r)
			if err != nil || !checker.Check(clientIP) {
				logger.Log.Debugw("untrusted client rejected", "remote_addr", r.RemoteAddr, "uri", r.RequestURI)
				deny.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
