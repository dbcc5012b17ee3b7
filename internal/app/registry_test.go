package app_test

import (
	"context"
	"testing"
	"time"

	"quiz-engine/internal/app"
	"quiz-engine/internal/domain"
	"quiz-engine/internal/infra/memory"
)

func newTestRegistry(t *testing.T, maxBindings int) (*app.Registry, *memory.SessionStore) {
	t.Helper()
	store := memory.NewSessionStore()
	repo := memory.NewQuizRepository(memory.NewStaticQuizLoader(geographyQuiz()), 5*time.Minute)
	return app.NewRegistry(store, repo, maxBindings), store
}

func TestCreateRejectsUnknownQuiz(t *testing.T) {
	registry, _ := newTestRegistry(t, 0)
	_, err := registry.Create(context.Background(), "nope", "Alice", "10.0.0.1")
	if err != domain.ErrQuizNotFound {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestCreateGeneratesDistinctSecrets(t *testing.T) {
	registry, _ := newTestRegistry(t, 0)
	ctx := context.Background()

	a, err := registry.Create(ctx, "quiz-1", "Alice", "10.0.0.1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b, err := registry.Create(ctx, "quiz-1", "Bob", "10.0.0.2")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.ID == b.ID || a.Token == b.Token {
		t.Fatalf("expected unique ids and tokens")
	}
	if a.Token == a.ID {
		t.Fatalf("token must be independent of the session id")
	}
	if a.Status != domain.StatusNotStarted || a.TimeRemaining != 60 {
		t.Fatalf("expected fresh session with quiz time limit, got %+v", a)
	}
}

func TestBindValidatesToken(t *testing.T) {
	registry, _ := newTestRegistry(t, 0)
	ctx := context.Background()
	session, _ := registry.Create(ctx, "quiz-1", "Alice", "10.0.0.1")

	if _, err := registry.Bind(ctx, "missing", session.Token, &testSink{}); err != domain.ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := registry.Bind(ctx, session.ID, "wrong-token", &testSink{}); err != domain.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := registry.Bind(ctx, session.ID, "", &testSink{}); err != domain.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for empty token, got %v", err)
	}
	if _, err := registry.Bind(ctx, session.ID, session.Token, &testSink{}); err != nil {
		t.Fatalf("valid bind: %v", err)
	}
}

func TestBindRejectsSecondConnection(t *testing.T) {
	registry, _ := newTestRegistry(t, 0)
	ctx := context.Background()
	session, _ := registry.Create(ctx, "quiz-1", "Alice", "10.0.0.1")

	first := &testSink{}
	if _, err := registry.Bind(ctx, session.ID, session.Token, first); err != nil {
		t.Fatalf("first bind: %v", err)
	}
	if _, err := registry.Bind(ctx, session.ID, session.Token, &testSink{}); err != domain.ErrAlreadyBound {
		t.Fatalf("expected ErrAlreadyBound, got %v", err)
	}

	// The first binding is untouched by the rejected attempt.
	if sink, ok := registry.Bound(session.ID); !ok || sink != app.Sink(first) {
		t.Fatalf("first binding should remain live")
	}

	// Unbind with a stale sink is a no-op; with the live one it frees the slot.
	registry.Unbind(session.ID, &testSink{})
	if _, ok := registry.Bound(session.ID); !ok {
		t.Fatalf("stale unbind must not drop the live binding")
	}
	registry.Unbind(session.ID, first)
	if _, err := registry.Bind(ctx, session.ID, session.Token, &testSink{}); err != nil {
		t.Fatalf("rebind after unbind: %v", err)
	}
}

func TestBindRejectsCompletedSession(t *testing.T) {
	registry, store := newTestRegistry(t, 0)
	ctx := context.Background()
	session, _ := registry.Create(ctx, "quiz-1", "Alice", "10.0.0.1")
	if err := store.CompleteSession(ctx, session.ID, domain.ReasonSubmitted, domain.Score{Grade: "F"}, time.Now()); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if _, err := registry.Bind(ctx, session.ID, session.Token, &testSink{}); err != domain.ErrAlreadyCompleted {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}
}

func TestBindEnforcesCapacity(t *testing.T) {
	registry, _ := newTestRegistry(t, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		session, err := registry.Create(ctx, "quiz-1", "Student", "10.0.0.1")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := registry.Bind(ctx, session.ID, session.Token, &testSink{}); err != nil {
			t.Fatalf("bind %d: %v", i, err)
		}
	}

	session, err := registry.Create(ctx, "quiz-1", "Student", "10.0.0.1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := registry.Bind(ctx, session.ID, session.Token, &testSink{}); err != domain.ErrCapacityExceeded {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	if registry.BindingCount() != 2 {
		t.Fatalf("expected 2 live bindings, got %d", registry.BindingCount())
	}
}

func TestCreateRateLimitsPerCaller(t *testing.T) {
	registry, _ := newTestRegistry(t, 0)
	ctx := context.Background()

	var err error
	for i := 0; i < 40; i++ {
		_, err = registry.Create(ctx, "quiz-1", "Student", "10.9.9.9")
		if err != nil {
			break
		}
	}
	if err != domain.ErrRateLimited {
		t.Fatalf("expected ErrRateLimited within 40 attempts, got %v", err)
	}

	// A different caller is unaffected.
	if _, err := registry.Create(ctx, "quiz-1", "Other", "10.8.8.8"); err != nil {
		t.Fatalf("other caller should pass: %v", err)
	}
}
