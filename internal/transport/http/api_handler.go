package http

import (
	"encoding/json"
	"log"
	"net"
	"net/http"

	"quiz-engine/internal/app"
	"quiz-engine/internal/domain"
)

// APIHandler serves the REST edges around the session runtime: quiz listing
// and session creation/status. The token is returned exactly once, on
// creation; status reads expose neither token nor student name.
type APIHandler struct {
	registry *app.Registry
	quizzes  app.QuizRepository
}

func NewAPIHandler(registry *app.Registry, quizzes app.QuizRepository) *APIHandler {
	return &APIHandler{registry: registry, quizzes: quizzes}
}

// Register wires all routes, including the websocket endpoint, onto mux.
func (h *APIHandler) Register(mux *http.ServeMux, ws *WSHandler) {
	mux.HandleFunc("GET /api/quizzes", h.listQuizzes)
	mux.HandleFunc("GET /api/quizzes/{quiz_id}", h.getQuiz)
	mux.HandleFunc("POST /api/sessions", h.createSession)
	mux.HandleFunc("GET /api/sessions/{session_id}", h.getSession)
	mux.HandleFunc("GET /ws/{session_id}", ws.ServeWS)
}

type quizSummary struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	TimeLimitSeconds int    `json:"time_limit_seconds"`
	QuestionCount    int    `json:"question_count"`
}

func (h *APIHandler) listQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.quizzes.ListQuizzes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list quizzes")
		return
	}
	out := make([]quizSummary, 0, len(quizzes))
	for _, quiz := range quizzes {
		out = append(out, summarize(quiz))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *APIHandler) getQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.quizzes.GetQuiz(r.Context(), r.PathValue("quiz_id"))
	if err == domain.ErrQuizNotFound {
		writeError(w, http.StatusNotFound, "Quiz not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load quiz")
		return
	}
	writeJSON(w, http.StatusOK, summarize(quiz))
}

type createSessionRequest struct {
	QuizID      string `json:"quiz_id"`
	StudentName string `json:"student_name"`
}

type createSessionResponse struct {
	ID                   string               `json:"id"`
	Token                string               `json:"token"`
	QuizID               string               `json:"quiz_id"`
	StudentName          string               `json:"student_name,omitempty"`
	Status               domain.SessionStatus `json:"status"`
	TimeRemainingSeconds int                  `json:"time_remaining_seconds"`
}

func (h *APIHandler) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuizID == "" || len(req.QuizID) > 100 || len(req.StudentName) > 200 {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.registry.Create(r.Context(), req.QuizID, req.StudentName, clientIP(r))
	switch err {
	case nil:
	case domain.ErrRateLimited:
		writeError(w, http.StatusTooManyRequests, "Too many session creations, retry later")
		return
	case domain.ErrQuizNotFound:
		writeError(w, http.StatusNotFound, "Quiz not found")
		return
	default:
		log.Printf("create session: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	writeJSON(w, http.StatusOK, createSessionResponse{
		ID:                   session.ID,
		Token:                session.Token,
		QuizID:               session.QuizID,
		StudentName:          session.StudentName,
		Status:               session.Status,
		TimeRemainingSeconds: session.TimeRemaining,
	})
}

type sessionStatusResponse struct {
	ID                   string               `json:"id"`
	QuizID               string               `json:"quiz_id"`
	Status               domain.SessionStatus `json:"status"`
	TimeRemainingSeconds int                  `json:"time_remaining_seconds"`
	CurrentQuestion      int                  `json:"current_question"`
	Score                *domain.Score        `json:"score"`
}

func (h *APIHandler) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.registry.Get(r.Context(), r.PathValue("session_id"))
	if err == domain.ErrSessionNotFound {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	writeJSON(w, http.StatusOK, sessionStatusResponse{
		ID:                   session.ID,
		QuizID:               session.QuizID,
		Status:               session.Status,
		TimeRemainingSeconds: session.TimeRemaining,
		CurrentQuestion:      session.CurrentQuestion,
		Score:                session.Score,
	})
}

func summarize(quiz domain.Quiz) quizSummary {
	return quizSummary{
		ID:               quiz.ID,
		Title:            quiz.Title,
		Description:      quiz.Description,
		TimeLimitSeconds: quiz.TimeLimitSeconds,
		QuestionCount:    len(quiz.Questions),
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
