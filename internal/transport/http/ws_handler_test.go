package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"quest-progression-service/internal/app"
	"quest-progression-service/internal/domain"
	"quest-progression-service/internal/infra/memory"
	"quest-progression-service/internal/quest"
)

func newTestServer() (*httptest.Server, *memory.ProgressStore) {
	store := memory.NewProgressStore()
	repo := memory.NewQuestionRepository(memory.NewStaticQuestionLoader(map[string][]domain.Question{
		memory.StaticKey("go", 0): {
			{ID: "q1", Text: "pick b", Options: []string{"a", "b", "c", "d"}, CorrectOption: 1},
			{ID: "q2", Text: "pick a", Options: []string{"a", "b", "c", "d"}, CorrectOption: 0},
		},
	}), time.Minute)
	service := app.NewQuestService(repo, store, quest.RunnerConfig{
		TickInterval:  time.Minute,
		FeedbackDwell: 5 * time.Millisecond,
	})

	router := mux.NewRouter()
	Register(router, NewAPIHandler(service), NewWSHandler(service))
	return httptest.NewServer(router), store
}

func TestWebSocketQuestFlow(t *testing.T) {
	server, store := newTestServer()
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws/quest?topic=go&level=0&userId=u1&name=Alice"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Initial snapshot shows question 0 with a full countdown.
	first := readState(conn, t)
	if first.QuestionIndex != 0 || first.TimeRemaining != quest.QuestionTimeLimit {
		t.Fatalf("unexpected initial state %+v", first)
	}
	if first.Question == nil || first.Question.Text != "pick b" {
		t.Fatalf("expected question text in state, got %+v", first.Question)
	}

	answer := func(option int) {
		msg := map[string]any{
			"type":    "answer",
			"payload": map[string]any{"optionIndex": option},
		}
		if err := conn.WriteJSON(msg); err != nil {
			t.Fatalf("write answer: %v", err)
		}
	}

	answer(1)
	feedbackSeen := false
	for i := 0; i < 10; i++ {
		st := readState(conn, t)
		if st.Feedback != nil {
			if !st.Feedback.Correct {
				t.Fatalf("expected correct feedback, got %+v", st.Feedback)
			}
			feedbackSeen = true
		}
		if st.Phase == quest.PhaseAwaitingAnswer.String() && st.QuestionIndex == 1 {
			break
		}
	}
	if !feedbackSeen {
		t.Fatalf("never saw feedback for question 0")
	}

	answer(0)
	result := readCompleted(conn, t)
	if result.Score != 100 || !result.Passed {
		t.Fatalf("expected perfect pass, got %+v", result)
	}

	// The completed attempt was persisted.
	deadline := time.Now().Add(time.Second)
	for {
		progress, err := store.Get(context.Background(), "u1")
		if err == nil && progress.Exp == result.ExpAwarded {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("progress never persisted: %+v (%v)", progress, err)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestWebSocketUnknownTopic(t *testing.T) {
	server, _ := newTestServer()
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws/quest?topic=klingon&level=0&userId=u1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	typ, _ := readNext(conn, t)
	if typ != "error" {
		t.Fatalf("expected error for unknown topic, got %s", typ)
	}
}

func readNext(conn *websocket.Conn, t *testing.T) (string, json.RawMessage) {
	t.Helper()
	var msg struct {
		Type    string `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg.Type, msg.Payload
}

func readState(conn *websocket.Conn, t *testing.T) quest.State {
	t.Helper()
	typ, payload := readNext(conn, t)
	if typ != "state" {
		t.Fatalf("expected state message, got %s", typ)
	}
	var st quest.State
	if err := json.Unmarshal(payload, &st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return st
}

func readCompleted(conn *websocket.Conn, t *testing.T) domain.QuestLevelResult {
	t.Helper()
	// Skip intermediate state frames until the completion message.
	for i := 0; i < 20; i++ {
		typ, payload := readNext(conn, t)
		if typ != "completed" {
			continue
		}
		var result domain.QuestLevelResult
		if err := json.Unmarshal(payload, &result); err != nil {
			t.Fatalf("decode result: %v", err)
		}
		return result
	}
	t.Fatalf("never received completed message")
	return domain.QuestLevelResult{}
}
