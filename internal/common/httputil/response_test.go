package httputil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func TestJSONError(t *testing.T) {
	var ctx fasthttp.RequestCtx
	JSONError(&ctx, "req-1", "could not capture this page", "navigation_failed", fasthttp.StatusBadGateway)

	assert.Equal(t, fasthttp.StatusBadGateway, ctx.Response.StatusCode())
	assert.Equal(t, "application/json", string(ctx.Response.Header.ContentType()))

	var resp APIResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "req-1", resp.RequestID)
	assert.Equal(t, "navigation_failed", resp.ErrorType)
	assert.Nil(t, resp.Data)
}

func TestJSONData(t *testing.T) {
	var ctx fasthttp.RequestCtx
	JSONData(&ctx, "req-2", map[string]int{"available": 3}, fasthttp.StatusOK)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.JSONEq(t, `{"success":true,"request_id":"req-2","data":{"available":3}}`, string(ctx.Response.Body()))
}

func TestJSONResponse_UnencodableData(t *testing.T) {
	var ctx fasthttp.RequestCtx
	JSONData(&ctx, "req-3", make(chan int), fasthttp.StatusOK)

	assert.Equal(t, fasthttp.StatusInternalServerError, ctx.Response.StatusCode())
}
