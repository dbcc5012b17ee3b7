package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrSessionNotFound is returned when no session exists for an ID.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidToken is returned when a presented token does not match the session's.
	ErrInvalidToken = errors.New("invalid token")
	// ErrAlreadyBound is returned when another live connection holds the session.
	ErrAlreadyBound = errors.New("session already connected")
	// ErrAlreadyCompleted is returned when binding to a completed session.
	ErrAlreadyCompleted = errors.New("session already completed")
	// ErrCapacityExceeded is returned when the global binding limit is reached.
	ErrCapacityExceeded = errors.New("server at capacity")
	// ErrRateLimited is returned when a caller creates sessions too quickly.
	ErrRateLimited = errors.New("too many session creations")
	// ErrInvalidState is returned for an action not allowed in the session's state.
	ErrInvalidState = errors.New("invalid session state")
	// ErrInvalidQuestion indicates a submitted question ID is not part of the quiz.
	ErrInvalidQuestion = errors.New("invalid question ID")
	// ErrInvalidOption indicates an answer is not one of the question's options.
	ErrInvalidOption = errors.New("invalid answer")
	// ErrOutOfRange indicates a navigation target outside [1, question count].
	ErrOutOfRange = errors.New("question number out of range")
)
