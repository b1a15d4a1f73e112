package repo

import (
	"context"
	"sort"
	"sync"

	"github.com/sir_venger/audiostore/internal/models"
)

// MemoryStore хранит документы только в оперативной памяти; удобно для тестов.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[models.BlobID]models.Document
}

// NewMemory создаёт пустое in-memory хранилище.
func NewMemory() *MemoryStore {
	return &MemoryStore{docs: map[models.BlobID]models.Document{}}
}

var _ Documents = (*MemoryStore)(nil)

func (s *MemoryStore) Create(_ context.Context, d models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[d.ID]; ok {
		return models.ErrConflict
	}
	s.docs[d.ID] = d
	return nil
}

// Get возвращает документ по id или ошибку, если его нет.
func (s *MemoryStore) Get(_ context.Context, id models.BlobID) (models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[id]
	if !ok {
		return models.Document{}, models.ErrNotFound
	}
	return d, nil
}

func (s *MemoryStore) List(_ context.Context, q models.ListQuery) ([]models.Document, error) {
	q = q.Normalize()

	s.mu.RLock()
	out := make([]models.Document, 0, len(s.docs))
	for _, d := range s.docs {
		if q.Matches(d) {
			out = append(out, d)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].UploadedAt.After(out[j].UploadedAt)
	})
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}

	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, id models.BlobID, patch models.DocumentPatch) (models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return models.Document{}, models.ErrNotFound
	}
	d = patch.Apply(d)
	s.docs[id] = d
	return d, nil
}

func (s *MemoryStore) Delete(_ context.Context, id models.BlobID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.docs, id)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
