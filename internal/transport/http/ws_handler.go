package http

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"quiz-engine/internal/app"
	"quiz-engine/internal/domain"
	"github.com/gorilla/websocket"
)

// Close codes for connection-level rejections. The state machine is never
// invoked for a connection refused here.
const (
	CloseInvalidToken     = 4001
	CloseAlreadyCompleted = 4003
	CloseSessionNotFound  = 4004
	CloseAlreadyBound     = 4009
	CloseCapacity         = 4029
)

// WSHandler is the connection gateway: it authenticates the session token,
// binds the connection, and relays messages between the socket and the engine.
type WSHandler struct {
	registry *app.Registry
	engine   *app.Engine
	upgrader websocket.Upgrader
}

func NewWSHandler(registry *app.Registry, engine *app.Engine) *WSHandler {
	return &WSHandler{
		registry: registry,
		engine:   engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// inbound messages carry their fields at the top level next to "type".
type inboundType struct {
	Type string `json:"type"`
}

type answerInbound struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

type navigateInbound struct {
	Current int `json:"current"`
}

type gotoInbound struct {
	QuestionNumber int `json:"question_number"`
}

// connSink pushes outbound messages through a buffered channel drained by a
// single writer goroutine, so the engine and timer never write the socket
// concurrently.
type connSink struct {
	mu     sync.Mutex
	closed bool
	send   chan any
}

func newConnSink() *connSink {
	return &connSink{send: make(chan any, 32)}
}

func (s *connSink) Send(msg any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.send <- msg:
	default:
		// Drop the oldest message rather than block the timer on a slow
		// client; persisted state is the authority, not the socket.
		select {
		case <-s.send:
		default:
		}
		select {
		case s.send <- msg:
		default:
		}
	}
}

func (s *connSink) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.send)
	}
}

// ServeWS upgrades the request and attaches the connection to its session.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	token := r.URL.Query().Get("token")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sink := newConnSink()
	if _, err := h.registry.Bind(r.Context(), sessionID, token, sink); err != nil {
		code, reason := closeCodeFor(err)
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
		return
	}
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range sink.send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	if err := h.engine.Attach(r.Context(), sessionID, sink); err != nil {
		sink.Send(app.NewErrorMessage(err.Error()))
	} else {
		h.readLoop(r, conn, sessionID, sink)
	}

	h.engine.Detach(sessionID, sink)
	h.registry.Unbind(sessionID, sink)
	sink.close()
	<-writerDone
}

func (h *WSHandler) readLoop(r *http.Request, conn *websocket.Conn, sessionID string, sink *connSink) {
	ctx := r.Context()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var head inboundType
		if err := json.Unmarshal(raw, &head); err != nil {
			sink.Send(app.NewErrorMessage("malformed message"))
			continue
		}

		var actionErr error
		switch head.Type {
		case "start_quiz":
			actionErr = h.engine.StartQuiz(ctx, sessionID)
		case "answer":
			var msg answerInbound
			if err := json.Unmarshal(raw, &msg); err != nil {
				sink.Send(app.NewErrorMessage("malformed answer"))
				continue
			}
			actionErr = h.engine.Answer(ctx, sessionID, msg.QuestionID, msg.Answer)
		case "next_question":
			var msg navigateInbound
			if err := json.Unmarshal(raw, &msg); err != nil {
				sink.Send(app.NewErrorMessage("malformed navigation"))
				continue
			}
			actionErr = h.engine.NextQuestion(ctx, sessionID, msg.Current)
		case "prev_question":
			var msg navigateInbound
			if err := json.Unmarshal(raw, &msg); err != nil {
				sink.Send(app.NewErrorMessage("malformed navigation"))
				continue
			}
			actionErr = h.engine.PrevQuestion(ctx, sessionID, msg.Current)
		case "go_to_question":
			var msg gotoInbound
			if err := json.Unmarshal(raw, &msg); err != nil {
				sink.Send(app.NewErrorMessage("malformed navigation"))
				continue
			}
			actionErr = h.engine.GoToQuestion(ctx, sessionID, msg.QuestionNumber)
		case "submit_quiz":
			actionErr = h.engine.SubmitQuiz(ctx, sessionID)
		default:
			sink.Send(app.NewErrorMessage("unknown message type: " + head.Type))
			continue
		}

		if actionErr != nil {
			sink.Send(app.NewErrorMessage(actionErr.Error()))
		}
	}
}

func closeCodeFor(err error) (int, string) {
	switch err {
	case domain.ErrSessionNotFound:
		return CloseSessionNotFound, "Session not found"
	case domain.ErrAlreadyCompleted:
		return CloseAlreadyCompleted, "Session already completed"
	case domain.ErrInvalidToken:
		return CloseInvalidToken, "Invalid token"
	case domain.ErrAlreadyBound:
		return CloseAlreadyBound, "Session already connected"
	case domain.ErrCapacityExceeded:
		return CloseCapacity, "Server at capacity"
	default:
		return websocket.CloseInternalServerErr, "Internal error"
	}
}
