package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no session exists for the user.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrQuizNotFound indicates the quiz content does not exist upstream.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrSeasonNotFound indicates the requested season has no roster.
	ErrSeasonNotFound = errors.New("season not found in quiz")
	// ErrUpstreamUnavailable indicates the content service could not be reached.
	ErrUpstreamUnavailable = errors.New("quiz content service unavailable")
	// ErrInsufficientRoster indicates a roster group has fewer than four
	// distinct characters, so distractors cannot be drawn.
	ErrInsufficientRoster = errors.New("roster group needs at least 4 distinct characters")
	// ErrInvalidProtocolState is returned for events the session's current
	// state does not permit; nothing is mutated.
	ErrInvalidProtocolState = errors.New("event not allowed in current session state")
)
