package urlutil

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	ErrEmptyURL          = errors.New("url is empty")
	ErrUnsupportedScheme = errors.New("only http and https urls can be captured")
	ErrMissingHost       = errors.New("url has no host")
	ErrPrivateHost       = errors.New("host is a private or reserved address")
)

// ValidateTargetURL parses a user supplied URL and checks that a browser may be sent to it.
// With blockPrivate set, private and reserved IP literals are refused.
func ValidateTargetURL(raw string, blockPrivate bool) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, ErrUnsupportedScheme
	}

	if u.Hostname() == "" {
		return nil, ErrMissingHost
	}

	if blockPrivate {
		if strings.EqualFold(u.Hostname(), "localhost") {
			return nil, fmt.Errorf("%w: %s", ErrPrivateHost, u.Hostname())
		}
		if err := ValidateHostNotPrivateIP(u.Hostname()); err != nil {
			return nil, err
		}
	}

	return u, nil
}

// DisplayDomain returns the lowercased hostname of rawURL without a leading "www.".
// Unparseable input yields "".
func DisplayDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
