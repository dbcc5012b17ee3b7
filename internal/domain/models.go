package domain

import "time"

// SessionStatus tracks where a session is in its lifecycle. It only ever
// moves forward: not_started -> in_progress -> completed.
type SessionStatus string

const (
	StatusNotStarted SessionStatus = "not_started"
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
)

// CompletionReason records why a session completed.
type CompletionReason string

const (
	ReasonSubmitted   CompletionReason = "submitted"
	ReasonTimeExpired CompletionReason = "time_expired"
)

// Question models an MCQ question with exactly one correct answer string.
type Question struct {
	ID            string   `json:"id"`
	QuizID        string   `json:"quizId"`
	Number        int      `json:"number"` // 1-based, unique per quiz
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Points        int      `json:"points"` // defaults to 1 if zero
}

// Quiz is an ordered collection of questions with a time limit.
// Immutable once published.
type Quiz struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	TimeLimitSeconds int        `json:"timeLimitSeconds"`
	Questions        []Question `json:"questions"`
}

// QuestionByID returns the question with the given ID, if it belongs to the quiz.
func (q Quiz) QuestionByID(questionID string) (Question, bool) {
	for i := range q.Questions {
		if q.Questions[i].ID == questionID {
			return q.Questions[i], true
		}
	}
	return Question{}, false
}

// QuestionByNumber returns the question at a 1-based position.
func (q Quiz) QuestionByNumber(number int) (Question, bool) {
	for i := range q.Questions {
		if q.Questions[i].Number == number {
			return q.Questions[i], true
		}
	}
	return Question{}, false
}

// Session is one student's timed attempt at one quiz. Mutated only by the
// session runtime and its timer; the gateway never writes it directly.
type Session struct {
	ID              string           `json:"id"`
	Token           string           `json:"-"` // never serialized to clients
	QuizID          string           `json:"quizId"`
	StudentName     string           `json:"studentName,omitempty"`
	Status          SessionStatus    `json:"status"`
	TimeRemaining   int              `json:"timeRemaining"` // seconds, never negative
	CurrentQuestion int              `json:"currentQuestion"`
	Reason          CompletionReason `json:"reason,omitempty"`
	Score           *Score           `json:"score,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	StartedAt       time.Time        `json:"startedAt,omitempty"`
	CompletedAt     time.Time        `json:"completedAt,omitempty"`
}

// Response is a student's recorded answer to one question. Keyed by
// (session, question); re-answering upserts and accumulates time spent.
type Response struct {
	SessionID        string    `json:"sessionId"`
	QuestionID       string    `json:"questionId"`
	Answer           string    `json:"answer"`
	TimeSpentSeconds int       `json:"timeSpentSeconds"`
	AnsweredAt       time.Time `json:"answeredAt"`
}

// Score is the aggregate outcome of a completed session.
type Score struct {
	Earned     int     `json:"earned"`
	Possible   int     `json:"possible"`
	Correct    int     `json:"correct"`
	Answered   int     `json:"answered"`
	Percentage float64 `json:"percentage"`
	Grade      string  `json:"grade"`
}

// QuestionResult is the per-question breakdown sent with quiz_complete.
type QuestionResult struct {
	QuestionNumber int     `json:"question_number"`
	QuestionText   string  `json:"question_text"`
	CorrectAnswer  string  `json:"correct_answer"`
	YourAnswer     *string `json:"your_answer"`
	IsCorrect      bool    `json:"is_correct"`
	TimeSpent      int     `json:"time_spent"`
}
