package memory

import (
	"context"
	"sync"

	"character-quiz-service/internal/domain"
)

// LeaderboardStore is an in-memory implementation of app.LeaderboardStore,
// used when no Postgres is configured and in tests.
type LeaderboardStore struct {
	mu       sync.RWMutex
	entries  map[string]map[string]domain.LeaderboardEntry
	profiles map[string]domain.ProfileRecord
}

func NewLeaderboardStore() *LeaderboardStore {
	return &LeaderboardStore{
		entries:  make(map[string]map[string]domain.LeaderboardEntry),
		profiles: make(map[string]domain.ProfileRecord),
	}
}

func (s *LeaderboardStore) GetEntry(_ context.Context, slug, userID string) (domain.LeaderboardEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[slug][userID]
	return entry, ok, nil
}

func (s *LeaderboardStore) UpsertEntry(_ context.Context, slug string, entry domain.LeaderboardEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries[slug] == nil {
		s.entries[slug] = make(map[string]domain.LeaderboardEntry)
	}
	s.entries[slug][entry.UserID] = entry
	return nil
}

func (s *LeaderboardStore) GetProfile(_ context.Context, userID string) (domain.ProfileRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[userID]
	return copyProfile(profile), ok, nil
}

func (s *LeaderboardStore) UpdateProfile(_ context.Context, profile domain.ProfileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.UserID] = copyProfile(profile)
	return nil
}

// EntryCount reports the number of stored rows across all slugs.
func (s *LeaderboardStore) EntryCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, rows := range s.entries {
		n += len(rows)
	}
	return n
}

// SeedProfile inserts a profile row; tests use it to model existing users.
func (s *LeaderboardStore) SeedProfile(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[userID] = domain.ProfileRecord{
		UserID:  userID,
		Quizzes: make(map[string]domain.ProfileQuizResult),
	}
}

func copyProfile(p domain.ProfileRecord) domain.ProfileRecord {
	quizzes := make(map[string]domain.ProfileQuizResult, len(p.Quizzes))
	for slug, result := range p.Quizzes {
		quizzes[slug] = result
	}
	return domain.ProfileRecord{UserID: p.UserID, Quizzes: quizzes}
}
