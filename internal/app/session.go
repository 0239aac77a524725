package app

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"character-quiz-service/internal/domain"
)

// SessionState tracks where a run is in its lifecycle.
type SessionState int

const (
	StateLoading SessionState = iota
	StateReady
	StateInProgress
	StateCompleting
	StateClosed
)

// Session holds one connected player's quiz run. Protocol events and timer
// ticks race on the same record, so every access goes through mu.
type Session struct {
	mu          sync.Mutex
	userID      string
	displayName string
	quizID      string
	slug        string
	season      int
	state       SessionState
	questions   []domain.Question
	index       int
	score       int
	elapsed     decimal.Decimal
	timer       *runTimer
}

func newSession(userID, displayName, quizID string, season int) *Session {
	return &Session{
		userID:      userID,
		displayName: displayName,
		quizID:      quizID,
		season:      season,
		state:       StateLoading,
	}
}

// assignQuestions completes loading: the question set is immutable from
// here on and the session accepts a start event.
func (s *Session) assignQuestions(questions []domain.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions = questions
	s.state = StateReady
}

// begin records the run's slug and season, takes ownership of the timer and
// returns the first question. A start while already in progress is rejected
// so a running timer is never replaced and leaked.
func (s *Session) begin(slug string, season int, timer *runTimer) (domain.QuestionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return domain.QuestionView{}, domain.ErrInvalidProtocolState
	}
	s.slug = slug
	s.season = season
	s.timer = timer
	s.state = StateInProgress
	return s.questions[s.index].View(), nil
}

// submit scores one answer. On the final question it stops the timer,
// moves to Completing and returns the result plus a detached copy of the
// values the leaderboard needs; otherwise it advances the cursor and
// returns the next question. A re-sent terminal event lands in Completing
// and is rejected, so at most one submission leaves the session.
func (s *Session) submit(answer string) (Outcome, domain.CompletedRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return Outcome{}, domain.CompletedRun{}, domain.ErrInvalidProtocolState
	}

	if answer == s.questions[s.index].Answer {
		s.score++
	}

	if s.index >= len(s.questions)-1 {
		s.state = StateCompleting
		s.timer.stop()
		run := domain.CompletedRun{
			UserID:      s.userID,
			DisplayName: s.displayName,
			Slug:        s.slug,
			Score:       s.score,
			Time:        s.elapsed,
			Season:      s.season,
		}
		result := domain.Result{Score: s.score, Time: s.elapsed.StringFixed(2)}
		return Outcome{Done: true, Result: result}, run, nil
	}

	s.index++
	return Outcome{Next: s.questions[s.index].View()}, domain.CompletedRun{}, nil
}

// advanceElapsed returns the elapsed time the client should display and
// then moves the clock forward one step. The submitted time is whatever
// the clock reads at completion, not a recomputed wall duration.
func (s *Session) advanceElapsed(step decimal.Decimal) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	shown := s.elapsed.StringFixed(2)
	s.elapsed = s.elapsed.Add(step)
	return shown
}

// shutdown closes the session unconditionally: disconnect and terminal
// completion both land here and may race, so stopping the timer must be
// idempotent.
func (s *Session) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.stop()
	}
	s.state = StateClosed
}

// runTimer is the owned periodic clock for one session. Exactly one exists
// per running session and it is cancelled exactly once.
type runTimer struct {
	interval time.Duration
	step     decimal.Decimal
	push     func(elapsed string)
	stopOnce sync.Once
	done     chan struct{}
}

func newRunTimer(interval time.Duration, push func(string)) *runTimer {
	return &runTimer{
		interval: interval,
		step:     decimal.NewFromFloat(interval.Seconds()),
		push:     push,
		done:     make(chan struct{}),
	}
}

// start begins ticking. Each tick pushes the current elapsed time to the
// client, then advances the session clock by one interval.
func (t *runTimer) start(s *Session) {
	go func() {
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.push(s.advanceElapsed(t.step))
			case <-t.done:
				return
			}
		}
	}()
}

// stop cancels the timer; safe to call from both cleanup paths.
func (t *runTimer) stop() {
	t.stopOnce.Do(func() { close(t.done) })
}
