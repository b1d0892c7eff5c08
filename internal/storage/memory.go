package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xaenox/band-bot/internal/models"
)

type MemoryStorage struct {
	mu     sync.RWMutex
	users  map[int64]*models.User
	essays []models.Essay
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users: make(map[int64]*models.User),
	}
}

func (s *MemoryStorage) UpsertUser(ctx context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.ID]; exists {
		return nil
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.users[user.ID] = &user
	return nil
}

// GetUser returns a copy of the stored user.
func (s *MemoryStorage) GetUser(ctx context.Context, id int64) (*models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[id]
	if !exists {
		return nil, false
	}
	u := *user
	return &u, true
}

func (s *MemoryStorage) RecordEssay(ctx context.Context, essay *models.Essay) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[essay.UserID]; !exists {
		return ErrNoUser
	}
	if essay.ID == "" {
		essay.ID = uuid.New().String()
	}
	if essay.CreatedAt.IsZero() {
		essay.CreatedAt = time.Now().UTC()
	}
	s.essays = append(s.essays, *essay)
	return nil
}

func (s *MemoryStorage) RecentEssays(ctx context.Context, userID int64, limit int) ([]models.Essay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Essay
	for i := len(s.essays) - 1; i >= 0; i-- {
		if s.essays[i].UserID == userID {
			out = append(out, s.essays[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
