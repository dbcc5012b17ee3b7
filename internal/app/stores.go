package app

import (
	"context"
	"time"

	"quiz-engine/internal/domain"
)

// SessionStore persists sessions and their responses (in-memory, Redis, etc).
// TimeRemaining is durable so a restarted timer resumes from the last
// persisted value instead of resetting.
type SessionStore interface {
	CreateSession(ctx context.Context, session domain.Session) error
	GetSession(ctx context.Context, sessionID string) (domain.Session, error)
	StartSession(ctx context.Context, sessionID string, startedAt time.Time) error
	UpdateTimeRemaining(ctx context.Context, sessionID string, seconds int) error
	UpdateCurrentQuestion(ctx context.Context, sessionID string, number int) error
	CompleteSession(ctx context.Context, sessionID string, reason domain.CompletionReason, score domain.Score, completedAt time.Time) error

	// SaveResponse upserts the answer for (session, question). Time spent
	// accumulates across re-answers of the same question.
	SaveResponse(ctx context.Context, response domain.Response) error
	GetResponses(ctx context.Context, sessionID string) ([]domain.Response, error)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
}
