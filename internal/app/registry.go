package app

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"quiz-engine/internal/domain"
	"github.com/google/uuid"
)

const (
	// DefaultMaxBindings caps simultaneous live connections across all sessions.
	DefaultMaxBindings = 200
	// Session creation limits per caller, sliding window.
	defaultCreateWindow = time.Minute
	defaultCreateMax    = 30
)

// Registry owns the session table: creation, lookup, and the live
// connection-to-session bindings. At most one live binding per session.
type Registry struct {
	store       SessionStore
	quizzes     QuizRepository
	maxBindings int
	limiter     *rateLimiter
	clock       func() time.Time

	mu       sync.Mutex
	bindings map[string]Sink
}

func NewRegistry(store SessionStore, quizzes QuizRepository, maxBindings int) *Registry {
	if maxBindings <= 0 {
		maxBindings = DefaultMaxBindings
	}
	return &Registry{
		store:       store,
		quizzes:     quizzes,
		maxBindings: maxBindings,
		limiter:     newRateLimiter(defaultCreateWindow, defaultCreateMax),
		clock:       time.Now,
		bindings:    make(map[string]Sink),
	}
}

// Create makes a session for one student attempt at a quiz. callerKey
// identifies the caller for rate limiting (client IP at the HTTP layer).
// The token is returned once, inside the Session, and never re-exposed.
func (r *Registry) Create(ctx context.Context, quizID, studentName, callerKey string) (domain.Session, error) {
	if !r.limiter.allow(callerKey) {
		return domain.Session{}, domain.ErrRateLimited
	}

	quiz, err := r.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Session{}, err
	}

	token, err := newToken()
	if err != nil {
		return domain.Session{}, fmt.Errorf("generate token: %w", err)
	}

	session := domain.Session{
		ID:              "session-" + uuid.NewString(),
		Token:           token,
		QuizID:          quiz.ID,
		StudentName:     studentName,
		Status:          domain.StatusNotStarted,
		TimeRemaining:   quiz.TimeLimitSeconds,
		CurrentQuestion: 1,
		CreatedAt:       r.clock(),
	}
	if err := r.store.CreateSession(ctx, session); err != nil {
		return domain.Session{}, err
	}
	return session, nil
}

// Get returns the session record, ErrSessionNotFound if absent.
func (r *Registry) Get(ctx context.Context, sessionID string) (domain.Session, error) {
	return r.store.GetSession(ctx, sessionID)
}

// Bind attaches a connection to a session after validating the token.
// Rejection order matches the close codes the gateway maps them to:
// not found, completed, bad token, already bound, capacity.
func (r *Registry) Bind(ctx context.Context, sessionID, token string, sink Sink) (domain.Session, error) {
	session, err := r.store.GetSession(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if session.Status == domain.StatusCompleted {
		return domain.Session{}, domain.ErrAlreadyCompleted
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(session.Token)) != 1 {
		return domain.Session{}, domain.ErrInvalidToken
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bindings[sessionID]; ok {
		return domain.Session{}, domain.ErrAlreadyBound
	}
	if len(r.bindings) >= r.maxBindings {
		return domain.Session{}, domain.ErrCapacityExceeded
	}
	r.bindings[sessionID] = sink
	return session, nil
}

// Unbind releases the binding if sink is the one currently bound. The session
// record and any persisted timer state are untouched; the session stays
// resumable with the same token.
func (r *Registry) Unbind(sessionID string, sink Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if bound, ok := r.bindings[sessionID]; ok && bound == sink {
		delete(r.bindings, sessionID)
	}
}

// Bound returns the sink currently attached to the session, if any.
func (r *Registry) Bound(sessionID string) (Sink, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sink, ok := r.bindings[sessionID]
	return sink, ok
}

// BindingCount reports live bindings, for health/metrics endpoints.
func (r *Registry) BindingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bindings)
}

// newToken returns a URL-safe 32-byte random secret, independent of the
// session identifier.
func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
