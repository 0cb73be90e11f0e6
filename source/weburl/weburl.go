package weburl

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validation errors.
var (
	ErrInsecureScheme = errors.New("only HTTPS URLs are allowed")
	ErrLocalHost      = errors.New("local hosts are not allowed")
	ErrPrivateAddress = errors.New("private IP addresses are not allowed")
)

// Pre-compiled CIDR networks for reserved ranges not covered by net.IP
// helpers.
var (
	cgnat    = mustCIDR("100.64.0.0/10")
	v6unique = mustCIDR("fc00::/7")
	v6link   = mustCIDR("fe80::/10")
)

func mustCIDR(s string) *net.IPNet {
	_, n, err := net.ParseCIDR(s)
	if err != nil {
		panic("invalid CIDR " + s + ": " + err.Error())
	}
	return n
}

// IsURL reports whether s looks like a URL rather than a file path.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://")
}

// ValidateURL checks that rawURL is an HTTPS URL whose host is neither
// localhost, a .local/.internal name nor a private IP literal.
func ValidateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "https" {
		return ErrInsecureScheme
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return fmt.Errorf("invalid URL %q: missing host", rawURL)
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") ||
		strings.HasSuffix(host, ".local") || strings.HasSuffix(host, ".internal") {
		return fmt.Errorf("%w: %s", ErrLocalHost, host)
	}
	if ip := net.ParseIP(host); ip != nil && IsPrivateIP(ip) {
		return fmt.Errorf("%w: %s", ErrPrivateAddress, ip)
	}
	return nil
}

// IsPrivateIP checks if an IP is loopback, private, link-local, CGNAT or
// IPv6 unique local. IPv4-mapped IPv6 addresses are checked as IPv4.
func IsPrivateIP(ip net.IP) bool {
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return true
	}
	return cgnat.Contains(ip) || v6unique.Contains(ip) || v6link.Contains(ip)
}
