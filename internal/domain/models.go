package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AnonymousPrefix marks user identifiers that are exempt from leaderboard
// and profile persistence.
const AnonymousPrefix = "anon-"

// IsAnonymous reports whether id carries the reserved anonymous prefix.
func IsAnonymous(id string) bool {
	return strings.HasPrefix(id, AnonymousPrefix)
}

// Question is one generated guess: the correct character, its resolved
// image, and four options in display order. Questions are never persisted.
type Question struct {
	Answer  string   `json:"answer"`
	Image   string   `json:"image"`
	Options []string `json:"options"`
}

// QuestionView is the client-facing projection of a Question. The answer
// stays server-side; scoring happens on submission.
type QuestionView struct {
	Image   string   `json:"image"`
	Options []string `json:"options"`
}

// View strips the answer from a question for delivery to the client.
func (q Question) View() QuestionView {
	return QuestionView{Image: q.Image, Options: q.Options}
}

// Result is the terminal payload for a completed run.
type Result struct {
	Score int    `json:"score"`
	Time  string `json:"time"`
}

// Roster is the set of characters eligible as answers and distractors for
// one season of a quiz, either flat or partitioned into named groups.
// Distractors are always drawn from the same group as their answer.
type Roster struct {
	Characters []string            `json:"characters,omitempty"`
	Groups     map[string][]string `json:"groups,omitempty"`
}

// GroupLists returns the effective character groups: the named groups when
// present, otherwise the flat list as a single group.
func (r Roster) GroupLists() [][]string {
	if len(r.Groups) > 0 {
		groups := make([][]string, 0, len(r.Groups))
		for _, names := range r.Groups {
			groups = append(groups, names)
		}
		return groups
	}
	if len(r.Characters) > 0 {
		return [][]string{r.Characters}
	}
	return nil
}

// MediaImage associates a character name with an image URL.
type MediaImage struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// QuizContent is the raw quiz definition served by the content API:
// per-season rosters plus the media list used to resolve images.
type QuizContent struct {
	ID      string         `json:"id"`
	Rosters map[int]Roster `json:"rosters"`
	Media   []MediaImage   `json:"media"`
}

// RosterFor selects the roster for a season.
func (c QuizContent) RosterFor(season int) (Roster, bool) {
	roster, ok := c.Rosters[season]
	return roster, ok
}

// CompletedRun carries everything the leaderboard needs from a finished
// session, copied out before the session is torn down.
type CompletedRun struct {
	UserID      string
	DisplayName string
	Slug        string
	Score       int
	Time        decimal.Decimal
	Season      int
}

// LeaderboardEntry is one user's best run for a quiz slug.
type LeaderboardEntry struct {
	UserID      string          `json:"id"`
	DisplayName string          `json:"displayName"`
	Score       int             `json:"score"`
	Time        decimal.Decimal `json:"time"`
	Season      int             `json:"season"`
}

// Superseded reports whether a run with the given score and time should
// replace this entry: higher score wins, ties go to the strictly faster
// time, exact ties keep the existing row.
func (e LeaderboardEntry) Superseded(score int, elapsed decimal.Decimal) bool {
	if score > e.Score {
		return true
	}
	return score >= e.Score && elapsed.LessThan(e.Time)
}

// ProfileQuizResult is one quiz's best result inside a profile aggregate.
type ProfileQuizResult struct {
	Score  int             `json:"score"`
	Time   decimal.Decimal `json:"time"`
	Season int             `json:"season"`
}

// ProfileRecord aggregates a user's best runs across quizzes, keyed by slug.
type ProfileRecord struct {
	UserID  string
	Quizzes map[string]ProfileQuizResult
}
