package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/telewebsaver/engine/internal/common/config"
	"github.com/telewebsaver/engine/internal/common/urlutil"
	"github.com/telewebsaver/engine/pkg/types"
)

const (
	defaultTitle  = "No title"
	maxLabelRunes = 64
)

var ErrSearchFailed = errors.New("search backend request failed")

// Client queries a SearxNG instance through its JSON API
type Client struct {
	baseURL    string
	categories string
	timeout    time.Duration
	client     *fasthttp.Client
	logger     *zap.Logger
}

// NewClient creates a SearxNG client. cfg must have defaults applied.
func NewClient(cfg *config.SearchConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout.ToDuration()

	return &Client{
		baseURL:    cfg.SearxNGURL,
		categories: cfg.Categories,
		timeout:    timeout,
		client: &fasthttp.Client{
			Name:         "telewebsaver",
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
		logger: logger,
	}
}

type searxngResponse struct {
	Results []searxngResult `json:"results"`
}

type searxngResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Content     string `json:"content"`
	Snippet     string `json:"snippet"`
	Description string `json:"description"`
}

// Search returns up to limit results for query. IDs are left empty for the caller to assign.
// Results without a URL are dropped after the limit is applied.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("categories", c.categories)

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + "/search?" + params.Encode())
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		c.logger.Error("SearxNG request failed",
			zap.String("query", query),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}

	if status := resp.StatusCode(); status < 200 || status > 299 {
		c.logger.Error("SearxNG returned non-success status",
			zap.String("query", query),
			zap.Int("status_code", status))
		return nil, fmt.Errorf("%w: status %d", ErrSearchFailed, status)
	}

	var decoded searxngResponse
	if err := json.Unmarshal(resp.Body(), &decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSearchFailed, err)
	}

	items := decoded.Results
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	results := make([]types.SearchResult, 0, len(items))
	for _, item := range items {
		if item.URL == "" {
			continue
		}
		results = append(results, toResult(item))
	}

	c.logger.Debug("SearxNG search completed",
		zap.String("query", query),
		zap.Int("received", len(decoded.Results)),
		zap.Int("returned", len(results)))

	return results, nil
}

func toResult(item searxngResult) types.SearchResult {
	title := item.Title
	if title == "" {
		title = defaultTitle
	}

	snippet := item.Content
	if snippet == "" {
		snippet = item.Snippet
	}
	if snippet == "" {
		snippet = item.Description
	}

	domain := urlutil.DisplayDomain(item.URL)

	return types.SearchResult{
		Title:   title,
		URL:     item.URL,
		Domain:  domain,
		Label:   ResultLabel(title, domain),
		Snippet: snippet,
	}
}

// ResultLabel is "title – domain" (or just title), cut to 64 characters with a "..." tail
func ResultLabel(title, domain string) string {
	label := title
	if domain != "" {
		label = title + " – " + domain
	}

	if utf8.RuneCountInString(label) <= maxLabelRunes {
		return label
	}
	runes := []rune(label)
	return string(runes[:maxLabelRunes-3]) + "..."
}
