package gateway

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
	"go.uber.org/zap"

	"github.com/telewebsaver/engine/internal/render/chrome"
	"github.com/telewebsaver/engine/internal/render/metrics"
	"github.com/telewebsaver/engine/internal/render/snapshot"
	"github.com/telewebsaver/engine/internal/search"
	"github.com/telewebsaver/engine/pkg/types"
)

const fakePDF = "%PDF-1.4\nfake pdf body\n%%EOF"

type fakeRenderer struct {
	mu      sync.Mutex
	root    string
	err     error
	block   bool // wait for ctx to end, then return its error
	lastReq snapshot.SnapshotRequest
	dirs    []string
}

func (f *fakeRenderer) Render(ctx context.Context, req snapshot.SnapshotRequest) (*snapshot.PdfArtifact, error) {
	f.mu.Lock()
	f.lastReq = req
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return nil, &snapshot.NavigationError{URL: req.URL, Cause: ctx.Err()}
	}
	if f.err != nil {
		return nil, f.err
	}

	dir, err := os.MkdirTemp(f.root, "snapshot-*")
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, "Example_Page.pdf")
	if err := os.WriteFile(path, []byte(fakePDF), 0o644); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.dirs = append(f.dirs, dir)
	f.mu.Unlock()

	return &snapshot.PdfArtifact{
		Path:       path,
		Filename:   "Example_Page.pdf",
		Dir:        dir,
		Title:      "Example Page",
		Geometry:   snapshot.PageGeometry{WidthPx: 2560, HeightPx: 1440},
		Navigation: "load",
		Format:     "adaptive",
		Size:       int64(len(fakePDF)),
	}, nil
}

func (f *fakeRenderer) lastURL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastReq.URL
}

func (f *fakeRenderer) createdDirs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.dirs...)
}

type fakeBackend struct {
	results []types.SearchResult
	err     error
}

func (f *fakeBackend) Search(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := append([]types.SearchResult(nil), f.results...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// fakeResolver answers from a fixed table; other hosts get a public address
type fakeResolver map[string]string

func (r fakeResolver) LookupIPAddr(_ context.Context, host string) ([]net.IPAddr, error) {
	ip, ok := r[host]
	if !ok {
		ip = "93.184.216.34"
	}
	return []net.IPAddr{{IP: net.ParseIP(ip)}}, nil
}

var testResolver = fakeResolver{
	"metadata.example":       "169.254.169.254",
	"169.254.169.254.nip.io": "169.254.169.254",
	"intranet.example":       "10.20.30.40",
}

type fakePool struct {
	stats chrome.PoolStats
}

func (f *fakePool) GetStats() chrome.PoolStats {
	return f.stats
}

type testEnv struct {
	renderer *fakeRenderer
	backend  *fakeBackend
	store    *search.MemoryStore
	pool     *fakePool
	registry *prometheus.Registry
	server   *Server
}

func newTestEnv(t testing.TB) *testEnv {
	env := &testEnv{
		renderer: &fakeRenderer{root: t.TempDir()},
		backend: &fakeBackend{results: []types.SearchResult{
			{Title: "Example", URL: "https://example.com/", Domain: "example.com", Label: "Example – example.com"},
			{Title: "Other", URL: "https://other.example/", Domain: "other.example", Label: "Other – other.example"},
		}},
		store:    search.NewMemoryStore(time.Hour),
		pool:     &fakePool{stats: chrome.PoolStats{TotalSlots: 2, AvailableSlots: 2}},
		registry: prometheus.NewRegistry(),
	}

	mc := metrics.NewMetricsCollectorWithRegistry("test", env.registry, zap.NewNop())
	searcher := search.NewService(env.backend, env.store, 5, zap.NewNop())

	env.server = NewServer(env.renderer, searcher, env.pool, mc, Options{
		MaxTimeout:     2 * time.Second,
		SSRFProtection: true,
		Resolver:       testResolver,
	}, zap.NewNop())
	return env
}

// serve runs the gateway on an in-memory listener and returns a client bound to it
func (env *testEnv) serve(t testing.TB) *fasthttp.Client {
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: env.server.Handler()}

	go func() {
		_ = srv.Serve(ln)
	}()
	t.Cleanup(func() {
		_ = srv.Shutdown()
		_ = ln.Close()
	})

	return &fasthttp.Client{
		Dial: func(addr string) (net.Conn, error) {
			return ln.Dial()
		},
	}
}

func doRequest(t testing.TB, client *fasthttp.Client, method, uri, body string) *fasthttp.Response {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)

	req.SetRequestURI("http://gateway" + uri)
	req.Header.SetMethod(method)
	if body != "" {
		req.Header.SetContentType("application/json")
		req.SetBodyString(body)
	}

	resp := &fasthttp.Response{}
	require.NoError(t, client.DoTimeout(req, resp, 10*time.Second))
	return resp
}
