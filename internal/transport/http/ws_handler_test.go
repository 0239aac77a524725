package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"character-quiz-service/internal/app"
	"character-quiz-service/internal/domain"
	"character-quiz-service/internal/infra/memory"
	"character-quiz-service/internal/quiz"
)

func TestWebSocketRunFlow(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?quizId=quiz-1&userId=u1&name=Alice&season=1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	start := map[string]any{
		"type":    "start",
		"payload": map[string]any{"slug": "quiz-1", "season": 1},
	}
	if err := conn.WriteJSON(start); err != nil {
		t.Fatalf("write start: %v", err)
	}

	first := readNonTime(conn, t)
	if first.Type != "question" {
		t.Fatalf("expected question after start, got %s", first.Type)
	}
	var view struct {
		Image   string   `json:"image"`
		Options []string `json:"options"`
		Answer  string   `json:"answer"`
	}
	if err := json.Unmarshal(first.Payload, &view); err != nil {
		t.Fatalf("unmarshal question: %v", err)
	}
	if len(view.Options) != 4 {
		t.Fatalf("expected 4 options, got %v", view.Options)
	}
	if view.Answer != "" {
		t.Fatalf("answer must not be sent to the client, got %q", view.Answer)
	}

	// Let the clock tick at least once so a time push interleaves.
	time.Sleep(50 * time.Millisecond)

	// Answer all five questions (wrong on purpose); the fifth yields the result.
	sawTime := false
	for i := 0; i < 5; i++ {
		answer := map[string]any{
			"type":    "question",
			"payload": map[string]any{"answer": "not-a-character"},
		}
		if err := conn.WriteJSON(answer); err != nil {
			t.Fatalf("write answer %d: %v", i, err)
		}
		msg := readNonTimeTracking(conn, t, &sawTime)
		if i < 4 && msg.Type != "question" {
			t.Fatalf("expected question after answer %d, got %s", i, msg.Type)
		}
		if i == 4 {
			if msg.Type != "result" {
				t.Fatalf("expected result after final answer, got %s", msg.Type)
			}
			var result domain.Result
			if err := json.Unmarshal(msg.Payload, &result); err != nil {
				t.Fatalf("unmarshal result: %v", err)
			}
			if result.Score != 0 {
				t.Fatalf("expected score 0 for all-wrong run, got %d", result.Score)
			}
			if result.Time == "" {
				t.Fatalf("expected elapsed time in result")
			}
		}
	}
	if !sawTime {
		t.Fatalf("expected at least one time push during the run")
	}
}

func TestWebSocketRejectsMissingQuizID(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	resp, err := http.Get(server.URL + "/ws")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing quizId, got %d", resp.StatusCode)
	}
}

func TestWebSocketReportsUnknownQuiz(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?quizId=nope&userId=u1&name=Alice"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	msg := readNext(conn, t)
	if msg.Type != "error" {
		t.Fatalf("expected error for unknown quiz, got %s", msg.Type)
	}
}

func TestWebSocketAnonymousRunSkipsLeaderboard(t *testing.T) {
	server, store := newTestServer(t)
	defer server.Close()

	// No userId in the handshake: the server assigns an anonymous identity.
	u := "ws" + server.URL[len("http"):] + "/ws?quizId=quiz-1&name=Ghost"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	start := map[string]any{"type": "start", "payload": map[string]any{"slug": "quiz-1", "season": 1}}
	if err := conn.WriteJSON(start); err != nil {
		t.Fatalf("write start: %v", err)
	}
	if msg := readNonTime(conn, t); msg.Type != "question" {
		t.Fatalf("expected question, got %s", msg.Type)
	}
	for i := 0; i < 5; i++ {
		answer := map[string]any{"type": "question", "payload": map[string]any{"answer": "x"}}
		if err := conn.WriteJSON(answer); err != nil {
			t.Fatalf("write answer: %v", err)
		}
		readNonTime(conn, t)
	}

	// Give the detached submission path a moment, then confirm it skipped.
	time.Sleep(200 * time.Millisecond)
	if n := store.EntryCount(); n != 0 {
		t.Fatalf("anonymous run must not be persisted, found %d entries", n)
	}
}

func TestDeliverGivesUpAfterWriterExit(t *testing.T) {
	send := make(chan outboundMessage[any], 1)
	writerDone := make(chan struct{})

	if !deliver(send, writerDone, errorMessage("first")) {
		t.Fatalf("expected delivery to succeed with buffer space")
	}

	// Buffer is now full and the writer is gone; deliver must return
	// instead of blocking the read loop forever.
	close(writerDone)
	if deliver(send, writerDone, errorMessage("second")) {
		t.Fatalf("expected delivery to fail after writer exit")
	}
}

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func readNext(conn *websocket.Conn, t *testing.T) wsMessage {
	t.Helper()
	var msg wsMessage
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg
}

func readNonTime(conn *websocket.Conn, t *testing.T) wsMessage {
	t.Helper()
	var saw bool
	return readNonTimeTracking(conn, t, &saw)
}

// readNonTimeTracking skips interleaved time pushes; they are unordered
// relative to protocol responses.
func readNonTimeTracking(conn *websocket.Conn, t *testing.T, sawTime *bool) wsMessage {
	t.Helper()
	for {
		msg := readNext(conn, t)
		if msg.Type == "time" {
			*sawTime = true
			continue
		}
		return msg
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *memory.LeaderboardStore) {
	t.Helper()
	quizzes := map[string]domain.QuizContent{
		"quiz-1": {
			ID: "quiz-1",
			Rosters: map[int]domain.Roster{
				1: {Characters: []string{"A", "B", "C", "D", "E"}},
			},
			Media: []domain.MediaImage{{Name: "a", URL: "https://cdn.example/a.png"}},
		},
	}
	repo := memory.NewQuizRepository(memory.NewStaticQuizLoader(quizzes), time.Minute)
	lbStore := memory.NewLeaderboardStore()
	submitter := app.NewLeaderboardSubmitter(lbStore, zerolog.Nop())
	service := app.NewSessionService(memory.NewSessionStore(), repo, quiz.NewBuilder(), submitter, 10*time.Millisecond, zerolog.Nop())
	handler := NewWSHandler(service, zerolog.Nop())

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handler.ServeWS)
	return httptest.NewServer(mux), lbStore
}
