package requestid

import (
	"regexp"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"
)

func TestGenerateRequestID(t *testing.T) {
	tests := []struct {
		name       string
		customID   string
		expectUUID bool
		pattern    string
	}{
		{name: "empty returns UUID", customID: "", expectUUID: true},
		{name: "only special characters returns UUID", customID: "!@#$%", expectUUID: true},
		{name: "simple id", customID: "chat-42", pattern: `^[a-f0-9]{5}-chat-42$`},
		{name: "spaces become hyphens", customID: "user 42  msg", pattern: `^[a-f0-9]{5}-user-42-msg$`},
		{name: "special characters dropped", customID: "a/b?c=d", pattern: `^[a-f0-9]{5}-abcd$`},
		{name: "edge hyphens trimmed", customID: "--x--", pattern: `^[a-f0-9]{5}-x$`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := GenerateRequestID(tt.customID)
			if tt.expectUUID {
				_, err := uuid.Parse(id)
				assert.NoError(t, err)
				return
			}
			assert.Regexp(t, regexp.MustCompile(tt.pattern), id)
		})
	}
}

func TestGenerateRequestID_Truncated(t *testing.T) {
	id := GenerateRequestID(strings.Repeat("a", 100))
	assert.LessOrEqual(t, len(id), MaxRequestIDLength)
}

func TestGenerateRequestID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		id := GenerateRequestID("same")
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestFromRequest(t *testing.T) {
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.Set(HeaderName, "client-7")

	id := FromRequest(&ctx)
	assert.Regexp(t, `^[a-f0-9]{5}-client-7$`, id)
	assert.Equal(t, id, string(ctx.Response.Header.Peek(HeaderName)))

	var bare fasthttp.RequestCtx
	id = FromRequest(&bare)
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
}
