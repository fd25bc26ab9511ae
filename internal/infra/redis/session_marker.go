package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionMarker records which chats currently host a quiz, so other instances
// and operators can see running sessions. Session state itself stays in process.
type SessionMarker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionMarker(client *redis.Client, ttl time.Duration) *SessionMarker {
	return &SessionMarker{client: client, ttl: ttl}
}

// MarkActive stores the quiz running in chatID. The key expires after ttl so a
// crashed process does not leave chats marked forever.
func (m *SessionMarker) MarkActive(ctx context.Context, chatID, quizID string) error {
	return m.client.Set(ctx, m.key(chatID), quizID, m.ttl).Err()
}

func (m *SessionMarker) Clear(ctx context.Context, chatID string) error {
	return m.client.Del(ctx, m.key(chatID)).Err()
}

// ActiveQuiz returns the quiz marked for chatID, if any.
func (m *SessionMarker) ActiveQuiz(ctx context.Context, chatID string) (string, bool, error) {
	quizID, err := m.client.Get(ctx, m.key(chatID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return quizID, true, nil
}

func (m *SessionMarker) key(chatID string) string {
	return "quiz:session:" + chatID
}
