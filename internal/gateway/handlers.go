package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/telewebsaver/engine/internal/common/httputil"
	"github.com/telewebsaver/engine/internal/common/requestid"
	"github.com/telewebsaver/engine/internal/common/urlutil"
	"github.com/telewebsaver/engine/internal/render/chrome"
	"github.com/telewebsaver/engine/internal/render/metrics"
	"github.com/telewebsaver/engine/internal/render/snapshot"
	"github.com/telewebsaver/engine/internal/search"
	"github.com/telewebsaver/engine/pkg/types"
)

const (
	captureFailedMessage = "could not capture this page"
	searchTimeout        = 30 * time.Second
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string           `json:"status"`
	Pool   chrome.PoolStats `json:"pool"`
}

// writeError writes the error envelope and counts it
func (s *Server) writeError(ctx *fasthttp.RequestCtx, path string, statusCode int, requestID, message, errorType string) {
	httputil.JSONError(ctx, requestID, message, errorType, statusCode)
	s.metricsCollector.RecordHTTPRequest(path, strconv.Itoa(statusCode))
	s.metricsCollector.RecordError(errorType)
}

// handleSearch processes GET /search?q=<text>[&limit=n]
func (s *Server) handleSearch(ctx *fasthttp.RequestCtx) {
	const path = "/search"
	requestID := requestid.FromRequest(ctx)

	query := string(ctx.QueryArgs().Peek("q"))
	limit := 0
	if raw := ctx.QueryArgs().Peek("limit"); len(raw) > 0 {
		n, err := strconv.Atoi(string(raw))
		if err != nil || n <= 0 {
			s.writeError(ctx, path, fasthttp.StatusBadRequest, requestID, "limit must be a positive integer", types.ErrorTypeInvalidRequest)
			return
		}
		limit = n
	}

	searchCtx, cancel := context.WithTimeout(context.Background(), searchTimeout)
	defer cancel()

	resp, err := s.searcher.Search(searchCtx, requestID, query, limit)
	if err != nil {
		if errors.Is(err, search.ErrEmptyQuery) {
			s.writeError(ctx, path, fasthttp.StatusBadRequest, requestID, "query parameter q is required", types.ErrorTypeEmptyQuery)
			return
		}

		s.metricsCollector.RecordSearch("error")
		s.writeError(ctx, path, fasthttp.StatusBadGateway, requestID, "search is unavailable, try again later", types.ErrorTypeSearchFailed)
		s.logger.Error("Search failed",
			zap.String("request_id", requestID),
			zap.String("query", query),
			zap.Error(err))
		return
	}

	s.metricsCollector.RecordSearch("success")
	httputil.JSON(ctx, resp, fasthttp.StatusOK)
	s.metricsCollector.RecordHTTPRequest(path, "200")

	s.logger.Info("Search served",
		zap.String("request_id", requestID),
		zap.String("query", resp.Query),
		zap.Int("results", len(resp.Results)))
}

// resolveTarget turns a snapshot request body into a validated URL.
// On failure it returns the status code, error type and message to send.
func (s *Server) resolveTarget(ctx context.Context, body []byte) (string, int, string, string) {
	var req types.SnapshotRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return "", fasthttp.StatusBadRequest, types.ErrorTypeInvalidRequest, "Invalid JSON body"
	}

	switch {
	case req.URL == "" && req.ResultID == "":
		return "", fasthttp.StatusBadRequest, types.ErrorTypeInvalidRequest, "one of url or result_id is required"
	case req.URL != "" && req.ResultID != "":
		return "", fasthttp.StatusBadRequest, types.ErrorTypeInvalidRequest, "url and result_id are mutually exclusive"
	}

	target := req.URL
	if req.ResultID != "" {
		resolved, err := s.searcher.Resolve(ctx, req.ResultID)
		if errors.Is(err, search.ErrResultNotFound) {
			return "", fasthttp.StatusGone, types.ErrorTypeResultExpired, "this search result has expired, search again"
		}
		if err != nil {
			return "", fasthttp.StatusInternalServerError, types.ErrorTypeInternal, "could not look up search result"
		}
		target = resolved
	}

	u, err := urlutil.ValidateTargetURL(target, s.opts.SSRFProtection)
	if err != nil {
		return "", fasthttp.StatusBadRequest, types.ErrorTypeInvalidURL, fmt.Sprintf("Invalid url: %v", err)
	}
	if s.opts.SSRFProtection {
		if err := urlutil.ValidateResolvedHost(ctx, s.opts.Resolver, u.Hostname()); err != nil {
			return "", fasthttp.StatusBadRequest, types.ErrorTypeInvalidURL, fmt.Sprintf("Invalid url: %v", err)
		}
	}
	return u.String(), 0, "", ""
}

// handleSnapshot processes POST /snapshot and streams the PDF
func (s *Server) handleSnapshot(ctx *fasthttp.RequestCtx) {
	const path = "/snapshot"
	startTime := time.Now().UTC()
	requestID := requestid.FromRequest(ctx)
	logger := s.logger.With(zap.String("request_id", requestID))

	lookupCtx, lookupCancel := context.WithTimeout(context.Background(), 5*time.Second)
	target, status, errorType, message := s.resolveTarget(lookupCtx, ctx.PostBody())
	lookupCancel()
	if status != 0 {
		s.writeError(ctx, path, status, requestID, message, errorType)
		logger.Warn("Rejected snapshot request",
			zap.Int("status_code", status),
			zap.String("error_type", errorType),
			zap.String("reason", message))
		return
	}

	logger.Info("Starting snapshot", zap.String("url", target), zap.Duration("timeout", s.opts.MaxTimeout))

	renderCtx, renderCancel := context.WithTimeout(context.Background(), s.opts.MaxTimeout)
	defer renderCancel()

	artifact, err := s.renderer.Render(renderCtx, snapshot.SnapshotRequest{URL: target, RequestID: requestID})

	duration := time.Since(startTime).Seconds()
	s.metricsCollector.RecordRenderDuration(duration)

	if err != nil {
		status, errorType, outcome := classifyRenderError(err, renderCtx)
		message := captureFailedMessage
		switch errorType {
		case types.ErrorTypePoolUnavailable:
			message = "all render slots are busy, try again later"
		case types.ErrorTypeHardTimeout:
			message = fmt.Sprintf("Hard timeout exceeded (%v)", s.opts.MaxTimeout)
		}

		s.metricsCollector.RecordRender(outcome)
		s.writeError(ctx, path, status, requestID, message, errorType)
		logger.Error("Snapshot failed",
			zap.String("url", target),
			zap.String("error_type", errorType),
			zap.Float64("duration", duration),
			zap.Error(err))
		return
	}

	body, err := openArtifact(artifact, logger)
	if err != nil {
		_ = os.RemoveAll(artifact.Dir)
		s.metricsCollector.RecordRender(metrics.RenderRenderError)
		s.writeError(ctx, path, fasthttp.StatusInternalServerError, requestID, captureFailedMessage, types.ErrorTypeInternal)
		logger.Error("Failed to open PDF artifact", zap.String("path", artifact.Path), zap.Error(err))
		return
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/pdf")
	ctx.Response.Header.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, artifact.Filename))
	ctx.SetBodyStream(body, int(artifact.Size))

	s.metricsCollector.RecordRender(metrics.RenderSuccess)
	s.metricsCollector.RecordHTTPRequest(path, "200")

	logger.Info("Snapshot successful",
		zap.String("url", target),
		zap.String("filename", artifact.Filename),
		zap.String("title", artifact.Title),
		zap.String("geometry", fmt.Sprintf("%dx%d", artifact.Geometry.WidthPx, artifact.Geometry.HeightPx)),
		zap.String("navigation", artifact.Navigation),
		zap.String("format", artifact.Format),
		zap.Int64("pdf_bytes", artifact.Size),
		zap.Float64("duration", duration))
}

// classifyRenderError maps a render failure to status code, API error type and render outcome.
// Pool errors are checked first: a request that timed out while queued never rendered.
func classifyRenderError(err error, renderCtx context.Context) (int, string, string) {
	switch {
	case chrome.IsPoolUnavailable(err):
		return fasthttp.StatusServiceUnavailable, types.ErrorTypePoolUnavailable, metrics.RenderPoolUnavailable
	case errors.Is(renderCtx.Err(), context.DeadlineExceeded):
		return fasthttp.StatusGatewayTimeout, types.ErrorTypeHardTimeout, metrics.RenderHardTimeout
	case errors.Is(err, snapshot.ErrNavigation):
		return fasthttp.StatusBadGateway, types.ErrorTypeNavigationFailed, metrics.RenderNavigationError
	case errors.Is(err, snapshot.ErrRender):
		return fasthttp.StatusBadGateway, types.ErrorTypeRenderFailed, metrics.RenderRenderError
	default:
		return fasthttp.StatusInternalServerError, types.ErrorTypeInternal, metrics.RenderRenderError
	}
}

// handleHealth returns the current health status and pool statistics
func (s *Server) handleHealth(ctx *fasthttp.RequestCtx) {
	stats := s.pool.GetStats()

	resp := HealthResponse{
		Status: "ok",
		Pool:   stats,
	}
	status := fasthttp.StatusOK
	if stats.ShuttingDown {
		resp.Status = "shutting_down"
		status = fasthttp.StatusServiceUnavailable
	}

	httputil.JSON(ctx, resp, status)
	s.metricsCollector.RecordHTTPRequest("/health", strconv.Itoa(status))
}
