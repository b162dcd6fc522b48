package gateway

import (
	"encoding/json"
	"net"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
	"go.uber.org/zap"

	"github.com/telewebsaver/engine/internal/common/configtypes"
	"github.com/telewebsaver/engine/internal/common/httputil"
	"github.com/telewebsaver/engine/internal/common/redis"
	"github.com/telewebsaver/engine/internal/render/chrome"
	"github.com/telewebsaver/engine/internal/render/metrics"
	"github.com/telewebsaver/engine/internal/search"
	"github.com/telewebsaver/engine/pkg/types"
)

func TestGatewaySuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Gateway Suite")
}

var _ = Describe("Search to snapshot flow", func() {
	var (
		mr       *miniredis.Miniredis
		renderer *fakeRenderer
		client   *fasthttp.Client
	)

	send := func(method, uri, body string) *fasthttp.Response {
		req := fasthttp.AcquireRequest()
		defer fasthttp.ReleaseRequest(req)
		req.SetRequestURI("http://gateway" + uri)
		req.Header.SetMethod(method)
		if body != "" {
			req.Header.SetContentType("application/json")
			req.SetBodyString(body)
		}
		resp := &fasthttp.Response{}
		Expect(client.DoTimeout(req, resp, 10*time.Second)).To(Succeed())
		return resp
	}

	searchFor := func(query string) types.SearchResponse {
		resp := send(fasthttp.MethodGet, "/search?q="+query, "")
		Expect(resp.StatusCode()).To(Equal(fasthttp.StatusOK))

		var out types.SearchResponse
		Expect(json.Unmarshal(resp.Body(), &out)).To(Succeed())
		return out
	}

	BeforeEach(func() {
		var err error
		mr, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(mr.Close)

		redisClient, err := redis.NewClient(&configtypes.RedisConfig{Addr: mr.Addr()}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(redisClient.Close)

		root, err := os.MkdirTemp("", "gateway-suite-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, root)

		renderer = &fakeRenderer{root: root}
		backend := &fakeBackend{results: []types.SearchResult{
			{Title: "Go", URL: "https://go.dev/", Domain: "go.dev", Label: "Go – go.dev"},
			{Title: "Internal", URL: "http://10.0.0.5/", Domain: "10.0.0.5", Label: "Internal – 10.0.0.5"},
			{Title: "Intranet", URL: "http://intranet.example/", Domain: "intranet.example", Label: "Intranet – intranet.example"},
		}}

		store := search.NewRedisStore(redisClient, time.Hour)
		mc := metrics.NewMetricsCollectorWithRegistry("suite", prometheus.NewRegistry(), zap.NewNop())

		srv := NewServer(renderer, search.NewService(backend, store, 5, zap.NewNop()),
			&fakePool{stats: chrome.PoolStats{TotalSlots: 1, AvailableSlots: 1}},
			mc, Options{MaxTimeout: 5 * time.Second, SSRFProtection: true, Resolver: testResolver}, zap.NewNop())

		ln := fasthttputil.NewInmemoryListener()
		httpServer := &fasthttp.Server{Handler: srv.Handler()}
		go func() {
			_ = httpServer.Serve(ln)
		}()
		DeferCleanup(httpServer.Shutdown)

		client = &fasthttp.Client{
			Dial: func(addr string) (net.Conn, error) { return ln.Dial() },
		}
	})

	It("captures a page chosen from search results", func() {
		results := searchFor("golang")
		Expect(results.Results).To(HaveLen(3))
		Expect(results.Results[0].Label).To(Equal("Go – go.dev"))

		resp := send(fasthttp.MethodPost, "/snapshot", `{"result_id":"`+results.Results[0].ID+`"}`)

		Expect(resp.StatusCode()).To(Equal(fasthttp.StatusOK))
		Expect(string(resp.Header.ContentType())).To(Equal("application/pdf"))
		Expect(string(resp.Body())).To(HavePrefix("%PDF"))
		Expect(renderer.lastURL()).To(Equal("https://go.dev/"))

		Eventually(func() bool {
			for _, dir := range renderer.createdDirs() {
				if _, err := os.Stat(dir); !os.IsNotExist(err) {
					return false
				}
			}
			return true
		}).Should(BeTrue())
	})

	It("stores result ids in redis with the configured ttl", func() {
		results := searchFor("golang")

		key := redis.ResultKey(results.Results[0].ID)
		Expect(mr.Exists(key)).To(BeTrue())
		Expect(mr.TTL(key)).To(Equal(time.Hour))
	})

	It("answers 410 once a result id has expired", func() {
		results := searchFor("golang")
		mr.FastForward(2 * time.Hour)

		resp := send(fasthttp.MethodPost, "/snapshot", `{"result_id":"`+results.Results[0].ID+`"}`)

		Expect(resp.StatusCode()).To(Equal(fasthttp.StatusGone))
		var out httputil.APIResponse
		Expect(json.Unmarshal(resp.Body(), &out)).To(Succeed())
		Expect(out.ErrorType).To(Equal(types.ErrorTypeResultExpired))
	})

	It("refuses search results that point at private addresses", func() {
		results := searchFor("internal")

		resp := send(fasthttp.MethodPost, "/snapshot", `{"result_id":"`+results.Results[1].ID+`"}`)

		Expect(resp.StatusCode()).To(Equal(fasthttp.StatusBadRequest))
		Expect(renderer.lastURL()).To(BeEmpty())
	})

	It("refuses search results whose hostname resolves to a private address", func() {
		results := searchFor("intranet")
		Expect(results.Results).To(HaveLen(3))

		resp := send(fasthttp.MethodPost, "/snapshot", `{"result_id":"`+results.Results[2].ID+`"}`)

		Expect(resp.StatusCode()).To(Equal(fasthttp.StatusBadRequest))
		Expect(renderer.lastURL()).To(BeEmpty())
	})
})
