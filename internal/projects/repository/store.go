package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/projects/domain"
)

// Store persists project records. Every method returns copies; callers never
// share maps with the store.
type Store interface {
	// Create fails with domain.ErrAlreadyExists when the id is taken.
	Create(ctx context.Context, p *domain.Project) error
	Get(ctx context.Context, id string) (*domain.Project, error)
	// List returns projects newest first. An empty owner lists everything.
	List(ctx context.Context, owner string) ([]*domain.Project, error)
	// UpdateMetadata merges patch into the metadata, last writer wins per key.
	UpdateMetadata(ctx context.Context, id string, patch map[string]string) error
	// Update runs fn on the current record and saves the result when fn
	// returns nil.
	Update(ctx context.Context, id string, fn func(p *domain.Project) error) (*domain.Project, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore is the in-process Store.
type MemoryStore struct {
	mu       sync.RWMutex
	projects map[string]*domain.Project
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{projects: make(map[string]*domain.Project)}
}

func (s *MemoryStore) Create(_ context.Context, p *domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[p.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.projects[p.ID] = p.Clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context, owner string) ([]*domain.Project, error) {
	s.mu.RLock()
	out := make([]*domain.Project, 0, len(s.projects))
	for _, p := range s.projects {
		if owner != "" && p.Metadata[domain.MetaOwner] != owner {
			continue
		}
		out = append(out, p.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) UpdateMetadata(_ context.Context, id string, patch map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.MergeMetadata(patch)
	return nil
}

func (s *MemoryStore) Update(_ context.Context, id string, fn func(p *domain.Project) error) (*domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID = id
	s.projects[id] = next
	return next.Clone(), nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.projects, id)
	return nil
}
