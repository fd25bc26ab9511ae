package redis

import (
	"context"
	"testing"
	"time"

	"chat-quiz-service/internal/app"
	"chat-quiz-service/internal/clock"
	"chat-quiz-service/internal/domain"
	"chat-quiz-service/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
)

func TestSessionMarkerSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	marker := NewSessionMarker(newClient(mr), time.Minute)

	if err := marker.MarkActive(ctx, "chat-1", "quiz-1"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if !mr.Exists("quiz:session:chat-1") {
		t.Fatalf("expected redis key to be set")
	}
	quizID, ok, err := marker.ActiveQuiz(ctx, "chat-1")
	if err != nil || !ok || quizID != "quiz-1" {
		t.Fatalf("expected quiz-1 active, got %q %v %v", quizID, ok, err)
	}

	mr.FastForward(2 * time.Minute)
	if _, ok, _ := marker.ActiveQuiz(ctx, "chat-1"); ok {
		t.Fatalf("expected marker to expire")
	}

	_ = marker.MarkActive(ctx, "chat-1", "quiz-1")
	if err := marker.Clear(ctx, "chat-1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if mr.Exists("quiz:session:chat-1") {
		t.Fatalf("expected redis key to be removed")
	}
}

func TestSessionMarkerTracksRegistry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	clk := clock.NewManual(time.Now())
	registry := app.NewRegistry(nopTransport{}, memory.NewResultStore(), app.Options{
		Clock:   clk,
		Tracker: NewSessionMarker(newClient(mr), time.Minute),
	})

	if _, err := registry.StartSession(sampleQuiz(), "chat-1", "u1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got, _ := mr.Get("quiz:session:chat-1"); got != "quiz-1" {
		t.Fatalf("expected chat marked with quiz-1, got %q", got)
	}

	if err := registry.CancelSession("chat-1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if mr.Exists("quiz:session:chat-1") {
		t.Fatalf("expected marker cleared on cancel")
	}
}

type nopTransport struct{}

func (nopTransport) PostQuestion(context.Context, string, domain.Question, time.Duration) (string, error) {
	return "token", nil
}

func (nopTransport) StopQuestion(context.Context, string, string) error { return nil }

func (nopTransport) PostMessage(context.Context, string, string) error { return nil }
