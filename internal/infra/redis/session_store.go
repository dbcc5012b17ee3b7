package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"quiz-engine/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SessionStore keeps sessions and responses in Redis so remaining time and
// recorded answers survive a process restart. Layout:
//
//	HSET session:{id}            field per session attribute
//	HSET session:{id}:responses  {questionID} -> response JSON
//
// Per-session writes are already serialized by the engine, so plain
// read-modify-write on the responses hash is safe.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) CreateSession(ctx context.Context, session domain.Session) error {
	key := s.sessionKey(session.ID)
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"id":               session.ID,
		"token":            session.Token,
		"quiz_id":          session.QuizID,
		"student_name":     session.StudentName,
		"status":           string(session.Status),
		"time_remaining":   session.TimeRemaining,
		"current_question": session.CurrentQuestion,
		"created_at":       session.CreatedAt.Format(time.RFC3339Nano),
	})
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *SessionStore) GetSession(ctx context.Context, sessionID string) (domain.Session, error) {
	fields, err := s.client.HGetAll(ctx, s.sessionKey(sessionID)).Result()
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	if len(fields) == 0 {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return sessionFromHash(fields), nil
}

func (s *SessionStore) StartSession(ctx context.Context, sessionID string, startedAt time.Time) error {
	return s.setFields(ctx, sessionID, map[string]interface{}{
		"status":     string(domain.StatusInProgress),
		"started_at": startedAt.Format(time.RFC3339Nano),
	})
}

func (s *SessionStore) UpdateTimeRemaining(ctx context.Context, sessionID string, seconds int) error {
	if seconds < 0 {
		seconds = 0
	}
	return s.setFields(ctx, sessionID, map[string]interface{}{"time_remaining": seconds})
}

func (s *SessionStore) UpdateCurrentQuestion(ctx context.Context, sessionID string, number int) error {
	return s.setFields(ctx, sessionID, map[string]interface{}{"current_question": number})
}

func (s *SessionStore) CompleteSession(ctx context.Context, sessionID string, reason domain.CompletionReason, score domain.Score, completedAt time.Time) error {
	raw, err := json.Marshal(score)
	if err != nil {
		return fmt.Errorf("marshal score: %w", err)
	}
	return s.setFields(ctx, sessionID, map[string]interface{}{
		"status":       string(domain.StatusCompleted),
		"reason":       string(reason),
		"score":        string(raw),
		"completed_at": completedAt.Format(time.RFC3339Nano),
	})
}

func (s *SessionStore) SaveResponse(ctx context.Context, response domain.Response) error {
	if _, err := s.GetSession(ctx, response.SessionID); err != nil {
		return err
	}
	key := s.responsesKey(response.SessionID)

	existing, err := s.client.HGet(ctx, key, response.QuestionID).Result()
	if err == nil && existing != "" {
		var prior domain.Response
		if err := json.Unmarshal([]byte(existing), &prior); err == nil {
			response.TimeSpentSeconds += prior.TimeSpentSeconds
		}
	} else if err != nil && err != redis.Nil {
		return fmt.Errorf("read response: %w", err)
	}

	raw, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, response.QuestionID, string(raw))
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save response: %w", err)
	}
	return nil
}

func (s *SessionStore) GetResponses(ctx context.Context, sessionID string) ([]domain.Response, error) {
	fields, err := s.client.HGetAll(ctx, s.responsesKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get responses: %w", err)
	}
	out := make([]domain.Response, 0, len(fields))
	for _, raw := range fields {
		var r domain.Response
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *SessionStore) setFields(ctx context.Context, sessionID string, fields map[string]interface{}) error {
	key := s.sessionKey(sessionID)
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("session exists: %w", err)
	}
	if exists == 0 {
		return domain.ErrSessionNotFound
	}
	if err := s.client.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

func (s *SessionStore) sessionKey(sessionID string) string {
	return "session:" + sessionID
}

func (s *SessionStore) responsesKey(sessionID string) string {
	return "session:" + sessionID + ":responses"
}

func sessionFromHash(fields map[string]string) domain.Session {
	session := domain.Session{
		ID:          fields["id"],
		Token:       fields["token"],
		QuizID:      fields["quiz_id"],
		StudentName: fields["student_name"],
		Status:      domain.SessionStatus(fields["status"]),
		Reason:      domain.CompletionReason(fields["reason"]),
	}
	session.TimeRemaining, _ = strconv.Atoi(fields["time_remaining"])
	session.CurrentQuestion, _ = strconv.Atoi(fields["current_question"])
	if raw := fields["score"]; raw != "" {
		var score domain.Score
		if err := json.Unmarshal([]byte(raw), &score); err == nil {
			session.Score = &score
		}
	}
	session.CreatedAt = parseTime(fields["created_at"])
	session.StartedAt = parseTime(fields["started_at"])
	session.CompletedAt = parseTime(fields["completed_at"])
	return session
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, raw)
	return t
}
