package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"

	"character-quiz-service/internal/domain"
)

// LeaderboardStore persists best runs and profile aggregates in Postgres.
type LeaderboardStore struct {
	pool *pgxpool.Pool
}

func NewLeaderboardStore(pool *pgxpool.Pool) *LeaderboardStore {
	return &LeaderboardStore{pool: pool}
}

func (s *LeaderboardStore) GetEntry(ctx context.Context, slug, userID string) (domain.LeaderboardEntry, bool, error) {
	var (
		displayName string
		score       int
		elapsed     string
		season      int
	)
	err := s.pool.QueryRow(ctx,
		`SELECT display_name, score, elapsed::text, season
		 FROM leaderboard_entries WHERE slug=$1 AND user_id=$2`,
		slug, userID,
	).Scan(&displayName, &score, &elapsed, &season)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.LeaderboardEntry{}, false, nil
	}
	if err != nil {
		return domain.LeaderboardEntry{}, false, fmt.Errorf("get entry: %w", err)
	}

	elapsedTime, err := decimal.NewFromString(elapsed)
	if err != nil {
		return domain.LeaderboardEntry{}, false, fmt.Errorf("parse elapsed: %w", err)
	}
	return domain.LeaderboardEntry{
		UserID:      userID,
		DisplayName: displayName,
		Score:       score,
		Time:        elapsedTime,
		Season:      season,
	}, true, nil
}

func (s *LeaderboardStore) UpsertEntry(ctx context.Context, slug string, entry domain.LeaderboardEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO leaderboard_entries (slug, user_id, display_name, score, elapsed, season)
		 VALUES ($1, $2, $3, $4, $5::numeric, $6)
		 ON CONFLICT (slug, user_id) DO UPDATE
		 SET display_name=EXCLUDED.display_name, score=EXCLUDED.score,
		     elapsed=EXCLUDED.elapsed, season=EXCLUDED.season`,
		slug, entry.UserID, entry.DisplayName, entry.Score, entry.Time.String(), entry.Season,
	)
	if err != nil {
		return fmt.Errorf("upsert entry: %w", err)
	}
	return nil
}

func (s *LeaderboardStore) GetProfile(ctx context.Context, userID string) (domain.ProfileRecord, bool, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT quizzes FROM profiles WHERE user_id=$1`, userID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ProfileRecord{}, false, nil
	}
	if err != nil {
		return domain.ProfileRecord{}, false, fmt.Errorf("get profile: %w", err)
	}

	quizzes := make(map[string]domain.ProfileQuizResult)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &quizzes); err != nil {
			return domain.ProfileRecord{}, false, fmt.Errorf("unmarshal profile: %w", err)
		}
	}
	return domain.ProfileRecord{UserID: userID, Quizzes: quizzes}, true, nil
}

func (s *LeaderboardStore) UpdateProfile(ctx context.Context, profile domain.ProfileRecord) error {
	raw, err := json.Marshal(profile.Quizzes)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE profiles SET quizzes=$2::jsonb WHERE user_id=$1`,
		profile.UserID, raw,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// SeedProfile inserts an empty profile row if absent; integration tests and
// account provisioning use it.
func (s *LeaderboardStore) SeedProfile(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO profiles (user_id, quizzes) VALUES ($1, '{}'::jsonb)
		 ON CONFLICT (user_id) DO NOTHING`, userID,
	)
	if err != nil {
		return fmt.Errorf("seed profile: %w", err)
	}
	return nil
}
