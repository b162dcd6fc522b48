package urlutil

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrUnresolvableHost is returned when a hostname has no addresses to check
var ErrUnresolvableHost = errors.New("host cannot be resolved")

// Resolver looks up the addresses of a hostname. *net.Resolver satisfies it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// privateRanges holds the private and reserved networks a snapshot must never reach
var privateRanges []*net.IPNet

func init() {
	cidrs := []string{
		// IPv4
		"127.0.0.0/8",    // loopback
		"10.0.0.0/8",     // RFC 1918
		"172.16.0.0/12",  // RFC 1918
		"192.168.0.0/16", // RFC 1918
		"169.254.0.0/16", // link-local, cloud metadata
		"100.64.0.0/10",  // CGNAT
		"0.0.0.0/8",
		"224.0.0.0/4", // multicast

		// IPv6
		"::1/128",
		"fe80::/10",
		"fc00::/7",
		"ff00::/8",
	}

	for _, cidr := range cidrs {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in SSRF private ranges: %s", cidr))
		}
		privateRanges = append(privateRanges, ipNet)
	}
}

// IsPrivateIP reports whether ip is in a private or reserved range
func IsPrivateIP(ip net.IP) bool {
	if ip == nil {
		return false
	}

	for _, ipNet := range privateRanges {
		if ipNet.Contains(ip) {
			return true
		}
	}
	return false
}

// ValidateHostNotPrivateIP rejects hostnames that are private IP literals.
// Domain names are not resolved and always pass.
func ValidateHostNotPrivateIP(hostname string) error {
	ip := net.ParseIP(hostname)
	if ip == nil {
		return nil
	}

	if IsPrivateIP(ip) {
		return fmt.Errorf("%w: %s", ErrPrivateHost, hostname)
	}
	return nil
}

// ValidateResolvedHost resolves hostname and rejects it when any address is private or reserved.
// IP literals are checked without a lookup. Redirects followed by the browser and DNS answers
// that change after this check are not covered.
func ValidateResolvedHost(ctx context.Context, resolver Resolver, hostname string) error {
	if net.ParseIP(hostname) != nil {
		return ValidateHostNotPrivateIP(hostname)
	}

	addrs, err := resolver.LookupIPAddr(ctx, hostname)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnresolvableHost, hostname, err)
	}
	if len(addrs) == 0 {
		return fmt.Errorf("%w: %s", ErrUnresolvableHost, hostname)
	}

	for _, addr := range addrs {
		if IsPrivateIP(addr.IP) {
			return fmt.Errorf("%w: %s resolves to %s", ErrPrivateHost, hostname, addr.IP)
		}
	}
	return nil
}
