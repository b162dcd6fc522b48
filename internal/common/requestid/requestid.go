package requestid

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

// HeaderName carries the request id in both directions
const HeaderName = "X-Request-ID"

const (
	// MaxRequestIDLength matches the length of a UUID string
	MaxRequestIDLength = 36
	PrefixLength       = 5
	// MaxCustomIDLength leaves room for the random prefix and its hyphen
	MaxCustomIDLength = MaxRequestIDLength - PrefixLength - 1
)

var (
	sanitizeRegex           = regexp.MustCompile(`[^a-zA-Z0-9-]+`)
	consecutiveHyphensRegex = regexp.MustCompile(`-+`)
)

// GenerateRequestID turns a caller supplied id into "{5 random hex}-{sanitized id}".
// Only [a-zA-Z0-9-] survive sanitizing. An empty result falls back to a UUID.
func GenerateRequestID(customID string) string {
	sanitized := strings.ReplaceAll(customID, " ", "-")
	sanitized = sanitizeRegex.ReplaceAllString(sanitized, "")
	sanitized = consecutiveHyphensRegex.ReplaceAllString(sanitized, "-")
	sanitized = strings.Trim(sanitized, "-")

	if sanitized == "" {
		return uuid.New().String()
	}

	if len(sanitized) > MaxCustomIDLength {
		sanitized = strings.TrimRight(sanitized[:MaxCustomIDLength], "-")
	}

	return generateRandomPrefix() + "-" + sanitized
}

// FromRequest derives the id for an incoming request and echoes it on the response
func FromRequest(ctx *fasthttp.RequestCtx) string {
	id := GenerateRequestID(string(ctx.Request.Header.Peek(HeaderName)))
	ctx.Response.Header.Set(HeaderName, id)
	return id
}

func generateRandomPrefix() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return uuid.New().String()[:PrefixLength]
	}
	return hex.EncodeToString(buf)[:PrefixLength]
}
