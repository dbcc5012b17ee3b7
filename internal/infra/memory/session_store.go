package memory

import (
	"context"
	"sync"
	"time"

	"quiz-engine/internal/domain"
)

// SessionStore is the in-memory implementation of app.SessionStore. Suited
// for single-node deployments and tests; the redis store is the durable one.
type SessionStore struct {
	mu        sync.RWMutex
	sessions  map[string]domain.Session
	responses map[string]map[string]domain.Response // session id -> question id -> response
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions:  make(map[string]domain.Session),
		responses: make(map[string]map[string]domain.Response),
	}
}

func (s *SessionStore) CreateSession(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return nil
}

func (s *SessionStore) GetSession(_ context.Context, sessionID string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *SessionStore) StartSession(_ context.Context, sessionID string, startedAt time.Time) error {
	return s.update(sessionID, func(session *domain.Session) {
		session.Status = domain.StatusInProgress
		session.StartedAt = startedAt
	})
}

func (s *SessionStore) UpdateTimeRemaining(_ context.Context, sessionID string, seconds int) error {
	return s.update(sessionID, func(session *domain.Session) {
		if seconds < 0 {
			seconds = 0
		}
		session.TimeRemaining = seconds
	})
}

func (s *SessionStore) UpdateCurrentQuestion(_ context.Context, sessionID string, number int) error {
	return s.update(sessionID, func(session *domain.Session) {
		session.CurrentQuestion = number
	})
}

func (s *SessionStore) CompleteSession(_ context.Context, sessionID string, reason domain.CompletionReason, score domain.Score, completedAt time.Time) error {
	return s.update(sessionID, func(session *domain.Session) {
		session.Status = domain.StatusCompleted
		session.Reason = reason
		session.Score = &score
		session.CompletedAt = completedAt
	})
}

// SaveResponse upserts by (session, question); time spent accumulates across
// re-answers.
func (s *SessionStore) SaveResponse(_ context.Context, response domain.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[response.SessionID]; !ok {
		return domain.ErrSessionNotFound
	}
	byQuestion, ok := s.responses[response.SessionID]
	if !ok {
		byQuestion = make(map[string]domain.Response)
		s.responses[response.SessionID] = byQuestion
	}
	if existing, ok := byQuestion[response.QuestionID]; ok {
		response.TimeSpentSeconds += existing.TimeSpentSeconds
	}
	byQuestion[response.QuestionID] = response
	return nil
}

func (s *SessionStore) GetResponses(_ context.Context, sessionID string) ([]domain.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byQuestion := s.responses[sessionID]
	out := make([]domain.Response, 0, len(byQuestion))
	for _, r := range byQuestion {
		out = append(out, r)
	}
	return out, nil
}

func (s *SessionStore) update(sessionID string, apply func(*domain.Session)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	apply(&session)
	s.sessions[sessionID] = session
	return nil
}
