package app

import (
	"context"
	"fmt"
	"log"

	"chat-quiz-service/internal/domain"
)

// StartRequest asks for a quiz to be run in a chat.
type StartRequest struct {
	ChatID    string
	QuizID    string
	StarterID string
	// PrivateChat enables the one-attempt-per-participant rule.
	PrivateChat bool
}

// QuizService contains the chat-facing quiz use cases.
type QuizService struct {
	registry *Registry
	quizzes  QuizRepository
}

func NewQuizService(registry *Registry, quizzes QuizRepository) *QuizService {
	return &QuizService{registry: registry, quizzes: quizzes}
}

// Registry exposes the underlying session registry.
func (s *QuizService) Registry() *Registry {
	return s.registry
}

// StartQuiz loads a quiz and starts it in the requested chat.
func (s *QuizService) StartQuiz(ctx context.Context, req StartRequest) (domain.SessionSnapshot, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, req.QuizID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}

	if _, running := s.registry.Lookup(req.ChatID); running {
		return domain.SessionSnapshot{}, domain.ErrAlreadyRunning
	}

	if req.PrivateChat {
		attempted, err := s.registry.results.HasAttempted(ctx, quiz.ID, req.StarterID, "")
		if err != nil {
			return domain.SessionSnapshot{}, fmt.Errorf("check attempt: %w", err)
		}
		if attempted {
			return domain.SessionSnapshot{}, domain.ErrAlreadyAttempted
		}
	}

	session, err := s.registry.StartSession(quiz, req.ChatID, req.StarterID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}

	if err := s.registry.transport.PostMessage(ctx, req.ChatID, formatStartNotice(quiz)); err != nil {
		log.Printf("[engine] chat %s: start notice: %v", req.ChatID, err)
	}
	return session.Snapshot(), nil
}

// CancelQuiz cancels the quiz running in a chat.
func (s *QuizService) CancelQuiz(_ context.Context, chatID string) error {
	return s.registry.CancelSession(chatID)
}

// SkipQuestion closes the open question of a chat early.
func (s *QuizService) SkipQuestion(_ context.Context, chatID string) error {
	return s.registry.SkipQuestion(chatID)
}

// SubmitAnswer routes an answer to its session and reports whether it counted.
func (s *QuizService) SubmitAnswer(_ context.Context, ev domain.AnswerEvent) bool {
	return s.registry.HandleAnswer(ev)
}

// Status describes the quiz running in a chat.
func (s *QuizService) Status(_ context.Context, chatID string) (domain.SessionSnapshot, error) {
	return s.registry.Snapshot(chatID)
}

// ActiveSessions lists every running quiz.
func (s *QuizService) ActiveSessions(_ context.Context) []domain.SessionSnapshot {
	return s.registry.ListActive()
}
