package app

import (
	"context"
	"sync"
	"time"

	"quiz-engine/internal/domain"
)

// Engine applies client actions to sessions. Every action on one session is
// serialized through that session's runtime; different sessions proceed fully
// in parallel. The engine is also the timer supervisor: one timer goroutine
// per in_progress session, reclaimed on completion.
type Engine struct {
	store   SessionStore
	quizzes QuizRepository
	tick    time.Duration
	clock   func() time.Time

	mu       sync.Mutex
	runtimes map[string]*runtime
}

func NewEngine(store SessionStore, quizzes QuizRepository) *Engine {
	return NewEngineWithTick(store, quizzes, time.Second)
}

// NewEngineWithTick is test-only: shortens the tick interval so timer tests
// run in milliseconds.
func NewEngineWithTick(store SessionStore, quizzes QuizRepository, tick time.Duration) *Engine {
	return &Engine{
		store:    store,
		quizzes:  quizzes,
		tick:     tick,
		clock:    time.Now,
		runtimes: make(map[string]*runtime),
	}
}

// runtime serializes all work on one session. It exists while the session has
// a bound connection or a running timer, and is dropped once it has neither.
type runtime struct {
	engine *Engine
	id     string
	quiz   domain.Quiz

	mu            sync.Mutex
	sink          Sink
	timerCancel   chan struct{}
	questionStart time.Time
	completeMsg   *QuizCompleteMessage
}

func (e *Engine) getOrCreate(ctx context.Context, sessionID string) (*runtime, error) {
	e.mu.Lock()
	if rt, ok := e.runtimes[sessionID]; ok {
		e.mu.Unlock()
		return rt, nil
	}
	e.mu.Unlock()

	// Load outside the supervisor lock; quiz content may come from a slow store.
	session, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	quiz, err := e.quizzes.GetQuiz(ctx, session.QuizID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if rt, ok := e.runtimes[sessionID]; ok {
		return rt, nil
	}
	rt := &runtime{engine: e, id: sessionID, quiz: quiz}
	e.runtimes[sessionID] = rt
	return rt, nil
}

func (e *Engine) drop(sessionID string) {
	e.mu.Lock()
	delete(e.runtimes, sessionID)
	e.mu.Unlock()
}

// Attach binds a connection's sink to the session and sends the connected
// snapshot. For an in_progress session (reconnect) it resumes the timer from
// the persisted remaining time.
func (e *Engine) Attach(ctx context.Context, sessionID string, sink Sink) error {
	rt, err := e.getOrCreate(ctx, sessionID)
	if err != nil {
		return err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	session, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	rt.sink = sink
	sink.Send(newConnectedMessage(
		QuizInfo{
			ID:               rt.quiz.ID,
			Title:            rt.quiz.Title,
			Description:      rt.quiz.Description,
			TimeLimitSeconds: rt.quiz.TimeLimitSeconds,
			QuestionCount:    len(rt.quiz.Questions),
		},
		SessionInfo{
			ID:              session.ID,
			Status:          session.Status,
			TimeRemaining:   session.TimeRemaining,
			CurrentQuestion: session.CurrentQuestion,
		},
	))

	if session.Status == domain.StatusInProgress {
		rt.questionStart = e.clock()
		rt.ensureTimerLocked(session.TimeRemaining)
	}
	return nil
}

// Detach clears the sink if it is still the bound one. The timer, if any,
// keeps running: disconnecting must not pause the clock. The runtime itself
// is dropped once it has neither a sink nor a timer.
func (e *Engine) Detach(sessionID string, sink Sink) {
	e.mu.Lock()
	rt, ok := e.runtimes[sessionID]
	e.mu.Unlock()
	if !ok {
		return
	}

	rt.mu.Lock()
	if rt.sink == sink {
		rt.sink = nil
	}
	idle := rt.sink == nil && rt.timerCancel == nil
	rt.mu.Unlock()

	if idle {
		e.drop(sessionID)
	}
}

// Shutdown cancels every running timer. Remaining time is already persisted
// per tick, so sessions resume correctly after a restart.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	runtimes := make([]*runtime, 0, len(e.runtimes))
	for _, rt := range e.runtimes {
		runtimes = append(runtimes, rt)
	}
	e.mu.Unlock()

	for _, rt := range runtimes {
		rt.mu.Lock()
		rt.stopTimerLocked()
		rt.mu.Unlock()
	}
}

// StartQuiz moves a not_started session to in_progress, spawns its timer,
// and emits the first question.
func (e *Engine) StartQuiz(ctx context.Context, sessionID string) error {
	rt, err := e.getOrCreate(ctx, sessionID)
	if err != nil {
		return err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	session, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status != domain.StatusNotStarted {
		return domain.ErrInvalidState
	}

	now := e.clock()
	if err := e.store.StartSession(ctx, sessionID, now); err != nil {
		return err
	}
	rt.questionStart = now
	rt.ensureTimerLocked(session.TimeRemaining)

	first, _ := rt.quiz.QuestionByNumber(1)
	return rt.sendQuestionLocked(ctx, first)
}

// Answer validates and upserts a response, emitting answer_received with the
// seconds spent on this visit to the question.
func (e *Engine) Answer(ctx context.Context, sessionID, questionID, answer string) error {
	rt, err := e.getOrCreate(ctx, sessionID)
	if err != nil {
		return err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	session, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status != domain.StatusInProgress {
		return domain.ErrInvalidState
	}

	question, ok := rt.quiz.QuestionByID(questionID)
	if !ok {
		return domain.ErrInvalidQuestion
	}
	if !containsOption(question.Options, answer) {
		return domain.ErrInvalidOption
	}

	now := e.clock()
	timeSpent := 0
	if !rt.questionStart.IsZero() {
		timeSpent = int(now.Sub(rt.questionStart) / time.Second)
	}
	if err := e.store.SaveResponse(ctx, domain.Response{
		SessionID:        sessionID,
		QuestionID:       questionID,
		Answer:           answer,
		TimeSpentSeconds: timeSpent,
		AnsweredAt:       now,
	}); err != nil {
		return err
	}
	// Restart the per-question clock so a re-answer accumulates disjoint
	// intervals rather than counting the same seconds twice.
	rt.questionStart = now

	if rt.sink != nil {
		rt.sink.Send(newAnswerReceivedMessage(questionID, timeSpent))
	}
	return nil
}

// NextQuestion and PrevQuestion move one step from the client's current
// position; GoToQuestion jumps anywhere in range.

func (e *Engine) NextQuestion(ctx context.Context, sessionID string, current int) error {
	return e.navigate(ctx, sessionID, current, 1)
}

func (e *Engine) PrevQuestion(ctx context.Context, sessionID string, current int) error {
	return e.navigate(ctx, sessionID, current, -1)
}

func (e *Engine) navigate(ctx context.Context, sessionID string, current, delta int) error {
	rt, err := e.getOrCreate(ctx, sessionID)
	if err != nil {
		return err
	}
	total := len(rt.quiz.Questions)
	if current < 1 || current > total {
		return domain.ErrOutOfRange
	}
	return e.goTo(ctx, rt, current+delta)
}

func (e *Engine) GoToQuestion(ctx context.Context, sessionID string, target int) error {
	rt, err := e.getOrCreate(ctx, sessionID)
	if err != nil {
		return err
	}
	return e.goTo(ctx, rt, target)
}

func (e *Engine) goTo(ctx context.Context, rt *runtime, target int) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	session, err := e.store.GetSession(ctx, rt.id)
	if err != nil {
		return err
	}
	if session.Status != domain.StatusInProgress {
		return domain.ErrInvalidState
	}

	question, ok := rt.quiz.QuestionByNumber(target)
	if !ok {
		return domain.ErrOutOfRange
	}
	if err := e.store.UpdateCurrentQuestion(ctx, rt.id, target); err != nil {
		return err
	}
	rt.questionStart = e.clock()
	return rt.sendQuestionLocked(ctx, question)
}

// SubmitQuiz completes the session with reason "submitted". Idempotent: a
// repeat submit re-emits the cached result instead of failing.
func (e *Engine) SubmitQuiz(ctx context.Context, sessionID string) error {
	rt, err := e.getOrCreate(ctx, sessionID)
	if err != nil {
		return err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.completeLocked(ctx, domain.ReasonSubmitted)
}

// sendQuestionLocked emits a question with any previously recorded answer.
// The correct answer never leaves the server.
func (rt *runtime) sendQuestionLocked(ctx context.Context, q domain.Question) error {
	var existing *string
	responses, err := rt.engine.store.GetResponses(ctx, rt.id)
	if err != nil {
		return err
	}
	for i := range responses {
		if responses[i].QuestionID == q.ID {
			existing = &responses[i].Answer
			break
		}
	}
	if rt.sink != nil {
		rt.sink.Send(newQuestionMessage(q, len(rt.quiz.Questions), existing))
	}
	return nil
}

// completeLocked runs the completion path shared by submit and timer expiry:
// score, persist, stop the timer, emit quiz_complete. Safe to call twice.
func (rt *runtime) completeLocked(ctx context.Context, reason domain.CompletionReason) error {
	if rt.completeMsg != nil {
		if rt.sink != nil {
			rt.sink.Send(*rt.completeMsg)
		}
		return nil
	}

	session, err := rt.engine.store.GetSession(ctx, rt.id)
	if err != nil {
		return err
	}
	if session.Status == domain.StatusCompleted {
		// Completed by an earlier process run; rebuild the result.
		reason = session.Reason
	}

	responses, err := rt.engine.store.GetResponses(ctx, rt.id)
	if err != nil {
		return err
	}
	score, results := ScoreQuiz(rt.quiz, responses)

	if session.Status != domain.StatusCompleted {
		if err := rt.engine.store.CompleteSession(ctx, rt.id, reason, score, rt.engine.clock()); err != nil {
			return err
		}
	}
	rt.stopTimerLocked()

	msg := newQuizCompleteMessage(reason, score, results)
	rt.completeMsg = &msg
	if rt.sink != nil {
		rt.sink.Send(msg)
	}
	if rt.sink == nil {
		rt.engine.drop(rt.id)
	}
	return nil
}

func containsOption(options []string, answer string) bool {
	for _, opt := range options {
		if opt == answer {
			return true
		}
	}
	return false
}
