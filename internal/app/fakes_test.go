package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"chat-quiz-service/internal/clock"
	"chat-quiz-service/internal/domain"
)

type postedQuestion struct {
	chatID string
	token  string
	text   string
	open   time.Duration
}

type fakeTransport struct {
	mu       sync.Mutex
	seq      int
	posts    []postedQuestion
	stops    []string
	messages []string

	// failPost makes the n-th PostQuestion call (1-based) fail.
	failPost int
	stopErr  error
	// entered and release let a test hold PostQuestion open.
	entered chan struct{}
	release chan struct{}
}

func (f *fakeTransport) PostQuestion(ctx context.Context, chatID string, q domain.Question, open time.Duration) (string, error) {
	f.mu.Lock()
	f.seq++
	n := f.seq
	entered, release := f.entered, f.release
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if n == f.failPost {
		return "", errors.New("network down")
	}
	token := fmt.Sprintf("tok-%d", n)
	f.posts = append(f.posts, postedQuestion{chatID: chatID, token: token, text: q.Text, open: open})
	return token, nil
}

func (f *fakeTransport) StopQuestion(_ context.Context, _ string, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops = append(f.stops, token)
	return f.stopErr
}

func (f *fakeTransport) PostMessage(_ context.Context, _ string, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
	return nil
}

func (f *fakeTransport) postCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.posts)
}

func (f *fakeTransport) lastToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.posts) == 0 {
		return ""
	}
	return f.posts[len(f.posts)-1].token
}

func (f *fakeTransport) sentMessages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

type fakeResults struct {
	mu      sync.Mutex
	saved   []domain.Result
	saveErr error
}

func (f *fakeResults) SaveResult(_ context.Context, result domain.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, result)
	return nil
}

func (f *fakeResults) HasAttempted(_ context.Context, quizID, participantID, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.saved {
		if r.QuizID == quizID && r.ParticipantID == participantID {
			return true, nil
		}
	}
	return false, nil
}

type engineFixture struct {
	registry  *Registry
	transport *fakeTransport
	results   *fakeResults
	clock     *clock.Manual
}

func newFixture(t *testing.T) *engineFixture {
	t.Helper()
	f := &engineFixture{
		transport: &fakeTransport{},
		results:   &fakeResults{},
		clock:     clock.NewManual(time.Date(2024, 11, 22, 12, 0, 0, 0, time.UTC)),
	}
	f.registry = NewRegistry(f.transport, f.results, Options{
		Clock:       f.clock,
		GracePeriod: time.Second,
	})
	return f
}

// assertReleased checks that nothing of a finished session is left behind.
func (f *engineFixture) assertReleased(t *testing.T, chatID string) {
	t.Helper()
	if _, ok := f.registry.Lookup(chatID); ok {
		t.Fatalf("session for %s still registered", chatID)
	}
	if n := f.registry.Routes(); n != 0 {
		t.Fatalf("expected no routes, got %d", n)
	}
	if n := f.registry.LiveTimers(); n != 0 {
		t.Fatalf("expected no live timers, got %d", n)
	}
	if n := f.clock.Pending(); n != 0 {
		t.Fatalf("expected no pending clock timers, got %d", n)
	}
}

func sampleQuiz(questions int, seconds int) domain.QuizDefinition {
	quiz := domain.QuizDefinition{
		ID:                 "quiz-1",
		Title:              "General Knowledge",
		SecondsPerQuestion: seconds,
		OwnerID:            "owner",
	}
	for i := 0; i < questions; i++ {
		quiz.Questions = append(quiz.Questions, domain.Question{
			Text:          fmt.Sprintf("Question %d", i+1),
			Options:       [domain.OptionCount]string{"A", "B", "C", "D"},
			CorrectOption: 1,
		})
	}
	return quiz
}
