package search

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/telewebsaver/engine/internal/common/redis"
)

var ErrResultNotFound = errors.New("search result not found or expired")

// ResultStore maps short result ids to the URLs they were issued for
type ResultStore interface {
	Put(ctx context.Context, id, url string) error
	Resolve(ctx context.Context, id string) (string, error)
}

// ResultID derives a stable short id for the index-th result of a search.
// The id is short enough for chat callback payloads.
func ResultID(searchID string, index int) string {
	sum := xxhash.Sum64String(searchID + ":" + strconv.Itoa(index))
	return fmt.Sprintf("r%016x", sum)
}

// RedisStore keeps result ids in Redis with a TTL
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Put(ctx context.Context, id, url string) error {
	return s.client.Set(ctx, redis.ResultKey(id), url, s.ttl)
}

// PutAll stores a whole result page in one round trip
func (s *RedisStore) PutAll(ctx context.Context, urls map[string]string) error {
	pairs := make(map[string]string, len(urls))
	for id, url := range urls {
		pairs[redis.ResultKey(id)] = url
	}
	return s.client.MSetWithExpire(ctx, pairs, s.ttl)
}

func (s *RedisStore) Resolve(ctx context.Context, id string) (string, error) {
	url, err := s.client.Get(ctx, redis.ResultKey(id))
	if err != nil {
		return "", err
	}
	if url == "" {
		return "", ErrResultNotFound
	}
	return url, nil
}

type memoryEntry struct {
	url       string
	expiresAt time.Time
}

// MemoryStore is the single-process fallback when Redis is not configured
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Put(ctx context.Context, id, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evictExpired(now)
	s.entries[id] = memoryEntry{url: url, expiresAt: now.Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Resolve(ctx context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return "", ErrResultNotFound
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, id)
		return "", ErrResultNotFound
	}
	return entry.url, nil
}

// Len returns the number of stored ids, expired ones included until the next Put
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// evictExpired must be called with mu held
func (s *MemoryStore) evictExpired(now time.Time) {
	for id, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, id)
		}
	}
}
