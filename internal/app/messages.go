package app

import "quiz-engine/internal/domain"

// Sink delivers outbound messages to whatever connection is currently bound
// to a session. Implementations must be safe for concurrent use; a send to a
// dead connection is dropped, never retried.
type Sink interface {
	Send(msg any)
}

// Outbound messages form a closed set, one type per protocol message. The
// Type field is fixed by the constructor helpers below so the gateway can
// serialize any of them directly.

type QuizInfo struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	TimeLimitSeconds int    `json:"time_limit_seconds"`
	QuestionCount    int    `json:"question_count"`
}

type SessionInfo struct {
	ID              string               `json:"id"`
	Status          domain.SessionStatus `json:"status"`
	TimeRemaining   int                  `json:"time_remaining"`
	CurrentQuestion int                  `json:"current_question"`
}

// ClientQuestion is the question view sent to clients: no correct answer.
type ClientQuestion struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

type ConnectedMessage struct {
	Type    string      `json:"type"`
	Quiz    QuizInfo    `json:"quiz"`
	Session SessionInfo `json:"session"`
}

type QuestionMessage struct {
	Type           string         `json:"type"`
	QuestionNumber int            `json:"question_number"`
	TotalQuestions int            `json:"total_questions"`
	Question       ClientQuestion `json:"question"`
	ExistingAnswer *string        `json:"existing_answer"`
}

type TimerTickMessage struct {
	Type          string `json:"type"`
	TimeRemaining int    `json:"time_remaining"`
}

type AnswerReceivedMessage struct {
	Type       string `json:"type"`
	QuestionID string `json:"question_id"`
	TimeSpent  int    `json:"time_spent"`
}

type QuizCompleteMessage struct {
	Type    string                  `json:"type"`
	Reason  domain.CompletionReason `json:"reason"`
	Score   domain.Score            `json:"score"`
	Results []domain.QuestionResult `json:"results"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func newConnectedMessage(quiz QuizInfo, session SessionInfo) ConnectedMessage {
	return ConnectedMessage{Type: "connected", Quiz: quiz, Session: session}
}

func newQuestionMessage(q domain.Question, total int, existing *string) QuestionMessage {
	return QuestionMessage{
		Type:           "question",
		QuestionNumber: q.Number,
		TotalQuestions: total,
		Question:       ClientQuestion{ID: q.ID, Text: q.Text, Options: q.Options},
		ExistingAnswer: existing,
	}
}

func newTimerTickMessage(remaining int) TimerTickMessage {
	return TimerTickMessage{Type: "timer_tick", TimeRemaining: remaining}
}

func newAnswerReceivedMessage(questionID string, timeSpent int) AnswerReceivedMessage {
	return AnswerReceivedMessage{Type: "answer_received", QuestionID: questionID, TimeSpent: timeSpent}
}

func newQuizCompleteMessage(reason domain.CompletionReason, score domain.Score, results []domain.QuestionResult) QuizCompleteMessage {
	return QuizCompleteMessage{Type: "quiz_complete", Reason: reason, Score: score, Results: results}
}

// NewErrorMessage is used by the gateway for protocol-level errors too.
func NewErrorMessage(message string) ErrorMessage {
	return ErrorMessage{Type: "error", Message: message}
}
