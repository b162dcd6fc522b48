package gateway

import (
	"context"
	"net"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/telewebsaver/engine/internal/common/urlutil"
	"github.com/telewebsaver/engine/internal/render/chrome"
	"github.com/telewebsaver/engine/internal/render/metrics"
	"github.com/telewebsaver/engine/internal/render/snapshot"
	"github.com/telewebsaver/engine/pkg/types"
)

// Renderer captures a page as a PDF artifact
type Renderer interface {
	Render(ctx context.Context, req snapshot.SnapshotRequest) (*snapshot.PdfArtifact, error)
}

// Searcher runs searches and resolves the result ids it issued
type Searcher interface {
	Search(ctx context.Context, searchID, query string, limit int) (*types.SearchResponse, error)
	Resolve(ctx context.Context, resultID string) (string, error)
}

// PoolStatsProvider reports render pool occupancy for /health
type PoolStatsProvider interface {
	GetStats() chrome.PoolStats
}

// Options are the request-level limits of the gateway
type Options struct {
	MaxTimeout time.Duration // hard limit for one snapshot, waiting for a slot included

	// SSRFProtection refuses private and reserved targets, resolving hostnames through Resolver.
	// Redirects followed by the browser are not checked.
	SSRFProtection bool
	Resolver       urlutil.Resolver // nil means net.DefaultResolver
}

// Server is the HTTP front of the snapshot service
type Server struct {
	renderer         Renderer
	searcher         Searcher
	pool             PoolStatsProvider
	metricsCollector *metrics.MetricsCollector
	opts             Options
	logger           *zap.Logger
}

// NewServer wires the gateway handlers
func NewServer(renderer Renderer, searcher Searcher, pool PoolStatsProvider,
	metricsCollector *metrics.MetricsCollector, opts Options, logger *zap.Logger,
) *Server {
	if opts.Resolver == nil {
		opts.Resolver = net.DefaultResolver
	}
	return &Server{
		renderer:         renderer,
		searcher:         searcher,
		pool:             pool,
		metricsCollector: metricsCollector,
		opts:             opts,
		logger:           logger,
	}
}

// Handler creates the main HTTP request handler with routing
func (s *Server) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		path := string(ctx.Path())
		method := string(ctx.Method())

		switch {
		case method == fasthttp.MethodGet && path == "/search":
			s.handleSearch(ctx)
		case method == fasthttp.MethodPost && path == "/snapshot":
			s.handleSnapshot(ctx)
		case method == fasthttp.MethodGet && path == "/health":
			s.handleHealth(ctx)
		default:
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			ctx.SetBodyString("Not Found")
			s.metricsCollector.RecordHTTPRequest(path, "404")
		}
	}
}
