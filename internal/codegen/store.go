package codegen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps generated snippets for later viewing and download.
type Store interface {
	Save(ctx context.Context, g *Generation) error
	Get(ctx context.Context, id string) (*Generation, error)
}

// MemoryStore is an in-process Store. Entries older than ttl are dropped
// lazily on read and by Sweep.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*Generation
	ttl   time.Duration
	now   func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{items: make(map[string]*Generation), ttl: ttl, now: time.Now}
}

func (s *MemoryStore) Save(_ context.Context, g *Generation) error {
	cp := *g
	s.mu.Lock()
	s.items[g.ID] = &cp
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Generation, error) {
	s.mu.RLock()
	g, ok := s.items[id]
	s.mu.RUnlock()
	if !ok || s.expired(g) {
		return nil, ErrGenerationNotFound
	}
	cp := *g
	return &cp, nil
}

func (s *MemoryStore) expired(g *Generation) bool {
	return s.ttl > 0 && s.now().Sub(g.CreatedAt) > s.ttl
}

// Sweep removes expired entries and returns how many were dropped.
func (s *MemoryStore) Sweep(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, g := range s.items {
		if s.expired(g) {
			delete(s.items, id)
			n++
		}
	}
	return n, nil
}

const generationKeyPrefix = "apk:gen:" // apk:gen:{id}

// RedisStore keeps generations in Redis with a TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Save(ctx context.Context, g *Generation) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to marshal generation: %w", err)
	}
	if err := s.client.Set(ctx, generationKeyPrefix+g.ID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save generation: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Generation, error) {
	data, err := s.client.Get(ctx, generationKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrGenerationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get generation: %w", err)
	}
	var g Generation
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to unmarshal generation: %w", err)
	}
	return &g, nil
}
