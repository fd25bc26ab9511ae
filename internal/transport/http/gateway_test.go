package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chat-quiz-service/internal/app"
	"chat-quiz-service/internal/domain"
)

func TestGatewayRequiresListeners(t *testing.T) {
	g := NewGateway()
	q := domain.Question{Text: "q", CorrectOption: 2}

	if _, err := g.PostQuestion(context.Background(), "chat-1", q, 10*time.Second); !errors.Is(err, domain.ErrChatUnavailable) {
		t.Fatalf("expected chat unavailable, got %v", err)
	}
	if err := g.PostMessage(context.Background(), "chat-1", "hi"); !errors.Is(err, domain.ErrChatUnavailable) {
		t.Fatalf("expected chat unavailable, got %v", err)
	}
	if err := g.StopQuestion(context.Background(), "chat-1", "nope"); err == nil {
		t.Fatalf("expected unknown token error")
	}
}

func TestGatewayBroadcastsToChatMembers(t *testing.T) {
	g := NewGateway()
	g.newToken = func() string { return "tok-1" }
	alice, bob, other := newClient("u1", "Alice"), newClient("u2", "Bob"), newClient("u3", "Carol")
	g.join("chat-1", alice)
	g.join("chat-1", bob)
	g.join("chat-2", other)

	token, err := g.PostQuestion(context.Background(), "chat-1", domain.Question{Text: "q", CorrectOption: 2, Explanation: "because"}, 10*time.Second)
	if err != nil || token != "tok-1" {
		t.Fatalf("post question: %q %v", token, err)
	}
	for _, c := range []*client{alice, bob} {
		if msg := <-c.send; msg.Type != "question" {
			t.Fatalf("expected question, got %s", msg.Type)
		}
	}
	if len(other.send) != 0 {
		t.Fatalf("other chats must not receive the question")
	}

	if err := g.StopQuestion(context.Background(), "chat-1", token); err != nil {
		t.Fatalf("stop: %v", err)
	}
	msg := <-alice.send
	closed, ok := msg.Payload.(questionClosedPayload)
	if msg.Type != "questionClosed" || !ok || closed.CorrectOption != 2 || closed.Explanation != "because" {
		t.Fatalf("unexpected close message %+v", msg)
	}

	g.leave("chat-1", alice)
	g.leave("chat-1", bob)
	if g.Members("chat-1") != 0 {
		t.Fatalf("expected chat emptied")
	}
}

func TestClientDeliverDropsOldest(t *testing.T) {
	c := newClient("u1", "Alice")
	for i := 0; i < cap(c.send)+5; i++ {
		c.deliver(outboundMessage[any]{Type: "message", Payload: i})
	}
	if len(c.send) != cap(c.send) {
		t.Fatalf("expected full buffer, got %d", len(c.send))
	}
	if first := <-c.send; first.Payload != 5 {
		t.Fatalf("expected oldest messages dropped, first is %v", first.Payload)
	}
}

func TestSessionsHandler(t *testing.T) {
	service, gateway, _, _ := newTestService()
	gateway.join("chat-1", newClient("u1", "Alice"))
	if _, err := service.StartQuiz(context.Background(), app.StartRequest{ChatID: "chat-1", QuizID: "quiz-1"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	handler := SessionsHandler(service)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/sessions", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"chatId":"chat-1"`) {
		t.Fatalf("unexpected list response %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/sessions?chatId=chat-1", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"totalQuestions":1`) {
		t.Fatalf("unexpected snapshot response %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/sessions?chatId=missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
