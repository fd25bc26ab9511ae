package app

import (
	"context"
	"time"

	"chat-quiz-service/internal/domain"
)

// ChatTransport delivers questions and messages to a chat.
type ChatTransport interface {
	// PostQuestion publishes a question and returns the token later answers carry.
	PostQuestion(ctx context.Context, chatID string, q domain.Question, open time.Duration) (string, error)
	// StopQuestion closes a question for further answers. Best-effort.
	StopQuestion(ctx context.Context, chatID, token string) error
	PostMessage(ctx context.Context, chatID, text string) error
}

// ResultStore persists results of completed sessions.
type ResultStore interface {
	SaveResult(ctx context.Context, result domain.Result) error
	HasAttempted(ctx context.Context, quizID, participantID, chatID string) (bool, error)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.QuizDefinition, error)
}

// SessionTracker is told when a chat gains or loses a running session.
type SessionTracker interface {
	MarkActive(ctx context.Context, chatID, quizID string) error
	Clear(ctx context.Context, chatID string) error
}
