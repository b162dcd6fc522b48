package httputil

import (
	"encoding/json"

	"github.com/valyala/fasthttp"
)

// APIResponse is the JSON envelope for every non-PDF response
type APIResponse struct {
	Success   bool        `json:"success"`
	RequestID string      `json:"request_id,omitempty"`
	Message   string      `json:"message,omitempty"`
	ErrorType string      `json:"error_type,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// JSON writes v as the JSON body with the given status code
func JSON(ctx *fasthttp.RequestCtx, v interface{}, statusCode int) {
	body, err := json.Marshal(v)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"success":false,"message":"failed to encode response"}`)
		return
	}
	ctx.SetStatusCode(statusCode)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

// JSONResponse writes resp with the given status code
func JSONResponse(ctx *fasthttp.RequestCtx, resp APIResponse, statusCode int) {
	JSON(ctx, resp, statusCode)
}

// JSONError writes a failed response carrying a machine readable error type
func JSONError(ctx *fasthttp.RequestCtx, requestID, message, errorType string, statusCode int) {
	JSONResponse(ctx, APIResponse{
		Success:   false,
		RequestID: requestID,
		Message:   message,
		ErrorType: errorType,
	}, statusCode)
}

// JSONData writes a successful response with a payload
func JSONData(ctx *fasthttp.RequestCtx, requestID string, data interface{}, statusCode int) {
	JSONResponse(ctx, APIResponse{
		Success:   true,
		RequestID: requestID,
		Data:      data,
	}, statusCode)
}
