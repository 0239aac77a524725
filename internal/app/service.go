package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"character-quiz-service/internal/domain"
	"character-quiz-service/internal/quiz"
)

// SessionStore abstracts how live sessions are tracked, keyed by user
// identifier. Remove is idempotent: disconnect and terminal completion may
// both call it for the same key.
type SessionStore interface {
	Create(userID string, session *Session)
	Get(userID string) (*Session, bool)
	Remove(userID string)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.QuizContent, error)
}

// Submitter commits a completed run to the leaderboard.
type Submitter interface {
	Submit(ctx context.Context, run domain.CompletedRun)
}

// Outcome is what a question event yields: either the next question or the
// terminal result.
type Outcome struct {
	Done   bool
	Next   domain.QuestionView
	Result domain.Result
}

// SessionService contains the per-connection quiz run use cases.
type SessionService struct {
	sessions  SessionStore
	quizzes   QuizRepository
	builder   *quiz.Builder
	submitter Submitter
	tick      time.Duration
	log       zerolog.Logger
}

func NewSessionService(sessions SessionStore, quizzes QuizRepository, builder *quiz.Builder, submitter Submitter, tick time.Duration, log zerolog.Logger) *SessionService {
	return &SessionService{
		sessions:  sessions,
		quizzes:   quizzes,
		builder:   builder,
		submitter: submitter,
		tick:      tick,
		log:       log.With().Str("component", "session_service").Logger(),
	}
}

// Connect registers a session for userID and loads its question set. Until
// this returns the session stays in Loading and start/question events are
// rejected. Loading failures tear the session down and surface to the
// caller as a connection rejection.
func (s *SessionService) Connect(ctx context.Context, userID, displayName, quizID string, season int) error {
	session := newSession(userID, displayName, quizID, season)
	s.sessions.Create(userID, session)

	content, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		s.sessions.Remove(userID)
		return err
	}
	roster, ok := content.RosterFor(season)
	if !ok {
		s.sessions.Remove(userID)
		return domain.ErrSeasonNotFound
	}
	questions, err := s.builder.Build(roster, content.Media)
	if err != nil {
		s.sessions.Remove(userID)
		return err
	}

	session.assignQuestions(questions)
	return nil
}

// Start begins the run and starts the session clock. push receives each
// tick's display value and must not block.
func (s *SessionService) Start(_ context.Context, userID, slug string, season int, push func(elapsed string)) (domain.QuestionView, error) {
	session, ok := s.sessions.Get(userID)
	if !ok {
		return domain.QuestionView{}, domain.ErrSessionNotFound
	}

	timer := newRunTimer(s.tick, push)
	view, err := session.begin(slug, season, timer)
	if err != nil {
		return domain.QuestionView{}, err
	}
	timer.start(session)
	return view, nil
}

// Answer scores a submission. On the final question the session is torn
// down immediately and the leaderboard submission runs detached on values
// copied out of it, so a disconnect racing the write cannot corrupt it.
func (s *SessionService) Answer(_ context.Context, userID, answer string) (Outcome, error) {
	session, ok := s.sessions.Get(userID)
	if !ok {
		return Outcome{}, domain.ErrSessionNotFound
	}

	outcome, run, err := session.submit(answer)
	if err != nil {
		return Outcome{}, err
	}
	if outcome.Done {
		s.sessions.Remove(userID)
		session.shutdown()
		go s.submitter.Submit(context.Background(), run)
	}
	return outcome, nil
}

// Disconnect tears the session down without submitting: leaving before the
// final question forfeits the leaderboard. Safe to call after completion
// has already removed the session.
func (s *SessionService) Disconnect(userID string) {
	session, ok := s.sessions.Get(userID)
	if !ok {
		return
	}
	s.sessions.Remove(userID)
	session.shutdown()
	s.log.Debug().Str("user_id", userID).Msg("session removed")
}
