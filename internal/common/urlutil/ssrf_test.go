package urlutil

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

type staticResolver map[string][]string

func (r staticResolver) LookupIPAddr(_ context.Context, host string) ([]net.IPAddr, error) {
	ips, ok := r[host]
	if !ok {
		return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
	}
	addrs := make([]net.IPAddr, 0, len(ips))
	for _, ip := range ips {
		addrs = append(addrs, net.IPAddr{IP: net.ParseIP(ip)})
	}
	return addrs, nil
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		ip      string
		private bool
	}{
		{"127.0.0.1", true},
		{"::1", true},
		{"10.1.2.3", true},
		{"172.16.0.1", true},
		{"172.32.0.1", false},
		{"192.168.10.10", true},
		{"169.254.169.254", true},
		{"100.64.0.1", true},
		{"0.0.0.0", true},
		{"224.0.0.1", true},
		{"fe80::1", true},
		{"fd00::1", true},
		{"8.8.8.8", false},
		{"93.184.216.34", false},
		{"2606:4700::1111", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			assert.Equal(t, tt.private, IsPrivateIP(net.ParseIP(tt.ip)))
		})
	}

	assert.False(t, IsPrivateIP(nil))
}

func TestValidateHostNotPrivateIP(t *testing.T) {
	assert.NoError(t, ValidateHostNotPrivateIP("example.com"))
	assert.NoError(t, ValidateHostNotPrivateIP("8.8.4.4"))

	err := ValidateHostNotPrivateIP("10.0.0.5")
	assert.True(t, errors.Is(err, ErrPrivateHost))
}

func TestValidateResolvedHost(t *testing.T) {
	resolver := staticResolver{
		"example.com":            {"93.184.216.34"},
		"169.254.169.254.nip.io": {"169.254.169.254"},
		"split.example":          {"8.8.8.8", "10.0.0.7"},
		"v6-loopback.example":    {"::1"},
		"empty.example":          {},
	}

	tests := []struct {
		host string
		err  error
	}{
		{host: "example.com"},
		{host: "8.8.8.8"},
		{host: "10.0.0.5", err: ErrPrivateHost},
		{host: "169.254.169.254.nip.io", err: ErrPrivateHost},
		{host: "split.example", err: ErrPrivateHost},
		{host: "v6-loopback.example", err: ErrPrivateHost},
		{host: "empty.example", err: ErrUnresolvableHost},
		{host: "missing.example", err: ErrUnresolvableHost},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			err := ValidateResolvedHost(context.Background(), resolver, tt.host)
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
