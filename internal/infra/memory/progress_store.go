package memory

import (
	"context"
	"sort"
	"sync"

	"quest-progression-service/internal/domain"
)

// ProgressStore is an in-memory implementation of app.ProgressStore.
type ProgressStore struct {
	mu    sync.RWMutex
	users map[string]domain.UserProgress
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{users: make(map[string]domain.UserProgress)}
}

func (s *ProgressStore) Get(_ context.Context, userID string) (domain.UserProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	progress, ok := s.users[userID]
	if !ok {
		return domain.UserProgress{}, domain.ErrUserNotFound
	}
	return progress, nil
}

func (s *ProgressStore) Save(_ context.Context, progress domain.UserProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[progress.UserID] = progress
	return nil
}

// List returns every user's progress in a stable order so leaderboard ties
// resolve the same way on every call.
func (s *ProgressStore) List(_ context.Context) ([]domain.UserProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.UserProgress, 0, len(s.users))
	for _, progress := range s.users {
		out = append(out, progress)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}
