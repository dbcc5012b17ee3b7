package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestListAndGetQuizzes(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/quizzes")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	defer resp.Body.Close()
	var quizzes []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&quizzes); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(quizzes) != 1 || quizzes[0]["id"] != "quiz-1" || quizzes[0]["question_count"].(float64) != 2 {
		t.Fatalf("unexpected listing %v", quizzes)
	}

	resp, err = http.Get(server.URL + "/api/quizzes/quiz-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var quiz map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&quiz)
	if quiz["title"] != "Geography" || quiz["time_limit_seconds"].(float64) != 60 {
		t.Fatalf("unexpected quiz %v", quiz)
	}
	// The detail view never includes questions or answers.
	if _, ok := quiz["questions"]; ok {
		t.Fatalf("quiz detail must not expose questions: %v", quiz)
	}

	resp, err = http.Get(server.URL + "/api/quizzes/ghost")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestSessionStatusHidesSecrets(t *testing.T) {
	server := newTestServer(t)
	sessionID, token := createSession(t, server)

	resp, err := http.Get(server.URL + "/api/sessions/" + sessionID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	if strings.Contains(string(raw), token) {
		t.Fatalf("token leaked in status response: %s", raw)
	}
	if strings.Contains(string(raw), "Alice") {
		t.Fatalf("student name leaked in status response: %s", raw)
	}

	var status map[string]any
	if err := json.Unmarshal(raw, &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status["status"] != "not_started" || status["current_question"].(float64) != 1 {
		t.Fatalf("unexpected status %v", status)
	}
}

func TestSessionStatusNotFound(t *testing.T) {
	server := newTestServer(t)
	resp, err := http.Get(server.URL + "/api/sessions/ghost")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestCreateSessionValidation(t *testing.T) {
	server := newTestServer(t)

	post := func(body string) int {
		resp, err := http.Post(server.URL+"/api/sessions", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		defer resp.Body.Close()
		return resp.StatusCode
	}

	if code := post(`{`); code != http.StatusBadRequest {
		t.Fatalf("malformed body: expected 400, got %d", code)
	}
	if code := post(`{"student_name":"Alice"}`); code != http.StatusBadRequest {
		t.Fatalf("missing quiz id: expected 400, got %d", code)
	}
	if code := post(`{"quiz_id":"ghost"}`); code != http.StatusNotFound {
		t.Fatalf("unknown quiz: expected 404, got %d", code)
	}
}

func TestCreateSessionRateLimited(t *testing.T) {
	server := newTestServer(t)
	body, _ := json.Marshal(map[string]string{"quiz_id": "quiz-1"})

	sawLimit := false
	for i := 0; i < 40; i++ {
		resp, err := http.Post(server.URL+"/api/sessions", "application/json", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("post %d: %v", i, err)
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			sawLimit = true
			break
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("post %d: unexpected status %d", i, resp.StatusCode)
		}
	}
	if !sawLimit {
		t.Fatalf("expected a 429 within 40 rapid creations")
	}
}
