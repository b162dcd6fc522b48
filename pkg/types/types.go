package types

// Error type constants - infrastructure errors
const (
	ErrorTypeHardTimeout     = "hard_timeout"
	ErrorTypePoolUnavailable = "pool_unavailable"
	ErrorTypeInternal        = "internal"
)

// Error type constants - snapshot errors
const (
	ErrorTypeNavigationFailed = "navigation_failed"
	ErrorTypeRenderFailed     = "render_failed"
	ErrorTypeInvalidURL       = "invalid_url"
	ErrorTypeInvalidRequest   = "invalid_request"
	ErrorTypeResultExpired    = "result_expired"
)

// Error type constants - search errors
const (
	ErrorTypeSearchFailed = "search_failed"
	ErrorTypeEmptyQuery   = "empty_query"
)

// SnapshotRequest is the body of POST /snapshot. Exactly one of URL or ResultID is set.
type SnapshotRequest struct {
	URL      string `json:"url,omitempty"`
	ResultID string `json:"result_id,omitempty"`
}

// SearchResult is a single search hit offered to the user for capture
type SearchResult struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Domain  string `json:"domain,omitempty"`
	Label   string `json:"label"`
	Snippet string `json:"snippet,omitempty"`
}

// SearchResponse is the body of GET /search
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
}
