package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/telewebsaver/engine/pkg/types"
)

var ErrEmptyQuery = errors.New("search query is empty")

// Backend runs a query against a search engine
type Backend interface {
	Search(ctx context.Context, query string, limit int) ([]types.SearchResult, error)
}

// batchPutter is implemented by stores that can write a whole result page at once
type batchPutter interface {
	PutAll(ctx context.Context, urls map[string]string) error
}

// Service runs searches and issues result ids that can later be captured
type Service struct {
	backend    Backend
	store      ResultStore
	maxResults int
	logger     *zap.Logger
}

func NewService(backend Backend, store ResultStore, maxResults int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		backend:    backend,
		store:      store,
		maxResults: maxResults,
		logger:     logger,
	}
}

// Search queries the backend and stores every result under ResultID(searchID, index).
// limit outside 1..maxResults falls back to maxResults.
func (s *Service) Search(ctx context.Context, searchID, query string, limit int) (*types.SearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 || limit > s.maxResults {
		limit = s.maxResults
	}

	results, err := s.backend.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	urls := make(map[string]string, len(results))
	for i := range results {
		results[i].ID = ResultID(searchID, i)
		urls[results[i].ID] = results[i].URL
	}

	if err := s.storeAll(ctx, urls); err != nil {
		return nil, fmt.Errorf("store search results: %w", err)
	}

	s.logger.Debug("Search results issued",
		zap.String("search_id", searchID),
		zap.Int("results", len(results)))

	return &types.SearchResponse{Query: query, Results: results}, nil
}

func (s *Service) storeAll(ctx context.Context, urls map[string]string) error {
	if len(urls) == 0 {
		return nil
	}
	if bp, ok := s.store.(batchPutter); ok {
		return bp.PutAll(ctx, urls)
	}
	for id, url := range urls {
		if err := s.store.Put(ctx, id, url); err != nil {
			return err
		}
	}
	return nil
}

// Resolve returns the URL behind a result id, or ErrResultNotFound
func (s *Service) Resolve(ctx context.Context, resultID string) (string, error) {
	return s.store.Resolve(ctx, resultID)
}
