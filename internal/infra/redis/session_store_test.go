package redis

import (
	"context"
	"testing"
	"time"

	"quiz-engine/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) *SessionStore {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewSessionStore(client, time.Minute)
}

func testSession() domain.Session {
	return domain.Session{
		ID:              "session-1",
		Token:           "secret-token",
		QuizID:          "quiz-1",
		StudentName:     "Alice",
		Status:          domain.StatusNotStarted,
		TimeRemaining:   60,
		CurrentQuestion: 1,
		CreatedAt:       time.Now().UTC(),
	}
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.CreateSession(ctx, testSession()); err != nil {
		t.Fatalf("create: %v", err)
	}

	session, err := store.GetSession(ctx, "session-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if session.Token != "secret-token" || session.QuizID != "quiz-1" ||
		session.Status != domain.StatusNotStarted || session.TimeRemaining != 60 {
		t.Fatalf("round trip mismatch %+v", session)
	}

	if _, err := store.GetSession(ctx, "missing"); err != domain.ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionUpdatesPersist(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	_ = store.CreateSession(ctx, testSession())

	if err := store.StartSession(ctx, "session-1", time.Now()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := store.UpdateTimeRemaining(ctx, "session-1", 31); err != nil {
		t.Fatalf("update time: %v", err)
	}
	if err := store.UpdateCurrentQuestion(ctx, "session-1", 2); err != nil {
		t.Fatalf("update question: %v", err)
	}

	session, _ := store.GetSession(ctx, "session-1")
	if session.Status != domain.StatusInProgress || session.TimeRemaining != 31 || session.CurrentQuestion != 2 {
		t.Fatalf("updates lost: %+v", session)
	}

	score := domain.Score{Earned: 2, Possible: 2, Correct: 2, Percentage: 100, Grade: "A"}
	if err := store.CompleteSession(ctx, "session-1", domain.ReasonTimeExpired, score, time.Now()); err != nil {
		t.Fatalf("complete: %v", err)
	}
	session, _ = store.GetSession(ctx, "session-1")
	if session.Status != domain.StatusCompleted || session.Reason != domain.ReasonTimeExpired {
		t.Fatalf("completion lost: %+v", session)
	}
	if session.Score == nil || session.Score.Grade != "A" {
		t.Fatalf("score lost: %+v", session.Score)
	}
}

func TestUpdateMissingSessionFails(t *testing.T) {
	store := newTestStore(t)
	if err := store.UpdateTimeRemaining(context.Background(), "ghost", 10); err != domain.ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestResponsesUpsertAndAccumulate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	_ = store.CreateSession(ctx, testSession())

	if err := store.SaveResponse(ctx, domain.Response{
		SessionID: "session-1", QuestionID: "q1", Answer: "London", TimeSpentSeconds: 8, AnsweredAt: time.Now(),
	}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.SaveResponse(ctx, domain.Response{
		SessionID: "session-1", QuestionID: "q1", Answer: "Paris", TimeSpentSeconds: 4, AnsweredAt: time.Now(),
	}); err != nil {
		t.Fatalf("re-save: %v", err)
	}

	responses, err := store.GetResponses(ctx, "session-1")
	if err != nil {
		t.Fatalf("get responses: %v", err)
	}
	if len(responses) != 1 {
		t.Fatalf("expected upsert, got %d responses", len(responses))
	}
	if responses[0].Answer != "Paris" || responses[0].TimeSpentSeconds != 12 {
		t.Fatalf("expected Paris with 12s, got %+v", responses[0])
	}
}
