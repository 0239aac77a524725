package app

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"character-quiz-service/internal/domain"
)

// LeaderboardStore is the persistent best-run table plus the profile
// aggregate, keyed by normalized slug and user identifier.
type LeaderboardStore interface {
	GetEntry(ctx context.Context, slug, userID string) (domain.LeaderboardEntry, bool, error)
	UpsertEntry(ctx context.Context, slug string, entry domain.LeaderboardEntry) error
	GetProfile(ctx context.Context, userID string) (domain.ProfileRecord, bool, error)
	UpdateProfile(ctx context.Context, profile domain.ProfileRecord) error
}

// LeaderboardSubmitter implements the best-run commit protocol. The write
// is a best-effort side effect: the client already has its result, so store
// failures are logged and never surfaced to the session.
type LeaderboardSubmitter struct {
	store LeaderboardStore
	log   zerolog.Logger
}

func NewLeaderboardSubmitter(store LeaderboardStore, log zerolog.Logger) *LeaderboardSubmitter {
	return &LeaderboardSubmitter{
		store: store,
		log:   log.With().Str("component", "leaderboard_submitter").Logger(),
	}
}

// Submit records a completed run iff it beats the user's existing entry for
// the slug. When the row is written the profile aggregate is merged too,
// provided a profile row exists. No transaction spans the two writes.
func (s *LeaderboardSubmitter) Submit(ctx context.Context, run domain.CompletedRun) {
	if domain.IsAnonymous(run.UserID) {
		return
	}
	slug := normalizeSlug(run.Slug)

	existing, found, err := s.store.GetEntry(ctx, slug, run.UserID)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", run.UserID).Str("slug", slug).Msg("leaderboard read failed")
		return
	}
	if found && !existing.Superseded(run.Score, run.Time) {
		return
	}

	entry := domain.LeaderboardEntry{
		UserID:      run.UserID,
		DisplayName: run.DisplayName,
		Score:       run.Score,
		Time:        run.Time,
		Season:      run.Season,
	}
	if err := s.store.UpsertEntry(ctx, slug, entry); err != nil {
		s.log.Error().Err(err).Str("user_id", run.UserID).Str("slug", slug).Msg("leaderboard write failed")
	} else {
		s.log.Info().Str("user_id", run.UserID).Str("slug", slug).Int("score", run.Score).Msg("submitted run")
	}

	profile, found, err := s.store.GetProfile(ctx, run.UserID)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", run.UserID).Msg("profile read failed")
		return
	}
	if !found {
		return
	}
	if profile.Quizzes == nil {
		profile.Quizzes = make(map[string]domain.ProfileQuizResult)
	}
	profile.Quizzes[slug] = domain.ProfileQuizResult{
		Score:  run.Score,
		Time:   run.Time,
		Season: run.Season,
	}
	if err := s.store.UpdateProfile(ctx, profile); err != nil {
		s.log.Error().Err(err).Str("user_id", run.UserID).Msg("profile update failed")
		return
	}
	s.log.Info().Str("user_id", run.UserID).Str("slug", slug).Msg("updated profile")
}

// normalizeSlug maps slugs onto the store's key format.
func normalizeSlug(slug string) string {
	return strings.ReplaceAll(slug, "-", "_")
}
