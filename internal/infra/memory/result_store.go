package memory

import (
	"context"
	"sync"

	"chat-quiz-service/internal/domain"
)

// ResultStore keeps completed session results in memory.
type ResultStore struct {
	mu      sync.RWMutex
	results []domain.Result
}

func NewResultStore() *ResultStore {
	return &ResultStore{}
}

func (s *ResultStore) SaveResult(_ context.Context, result domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return nil
}

// HasAttempted reports whether participantID has a result for quizID. An
// empty chatID matches results from any chat.
func (s *ResultStore) HasAttempted(_ context.Context, quizID, participantID, chatID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.results {
		if r.QuizID != quizID || r.ParticipantID != participantID {
			continue
		}
		if chatID == "" || r.ChatID == chatID {
			return true, nil
		}
	}
	return false, nil
}

// Results returns the stored results of one quiz in one chat, in save order.
func (s *ResultStore) Results(quizID, chatID string) []domain.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Result
	for _, r := range s.results {
		if r.QuizID == quizID && r.ChatID == chatID {
			out = append(out, r)
		}
	}
	return out
}
