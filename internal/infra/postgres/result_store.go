package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"chat-quiz-service/internal/domain"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// OpenDB opens a bun handle on the given Postgres DSN.
func OpenDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

type resultRow struct {
	bun.BaseModel `bun:"table:quiz_results,alias:r"`

	ID            int64     `bun:"id,pk,autoincrement"`
	QuizID        string    `bun:"quiz_id,notnull"`
	ChatID        string    `bun:"chat_id,notnull"`
	ParticipantID string    `bun:"participant_id,notnull"`
	DisplayName   string    `bun:"display_name"`
	CorrectCount  int       `bun:"correct_count"`
	WrongCount    int       `bun:"wrong_count"`
	Total         int       `bun:"total"`
	Accuracy      float64   `bun:"accuracy"`
	CompletedAt   time.Time `bun:"completed_at"`
}

// ResultStore persists session results in the quiz_results table.
type ResultStore struct {
	db *bun.DB
}

func NewResultStore(db *bun.DB) *ResultStore {
	return &ResultStore{db: db}
}

func (s *ResultStore) SaveResult(ctx context.Context, result domain.Result) error {
	row := resultRow{
		QuizID:        result.QuizID,
		ChatID:        result.ChatID,
		ParticipantID: result.ParticipantID,
		DisplayName:   result.DisplayName,
		CorrectCount:  result.CorrectCount,
		WrongCount:    result.WrongCount,
		Total:         result.Total,
		Accuracy:      result.AccuracyPercent,
		CompletedAt:   result.CompletedAt,
	}
	if row.CompletedAt.IsZero() {
		row.CompletedAt = time.Now().UTC()
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

// HasAttempted reports whether a participant has a stored result for a quiz.
// An empty chatID matches any chat.
func (s *ResultStore) HasAttempted(ctx context.Context, quizID, participantID, chatID string) (bool, error) {
	q := s.db.NewSelect().
		Model((*resultRow)(nil)).
		Where("quiz_id = ?", quizID).
		Where("participant_id = ?", participantID)
	if chatID != "" {
		q = q.Where("chat_id = ?", chatID)
	}
	exists, err := q.Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check attempt: %w", err)
	}
	return exists, nil
}

// Results lists the stored results of a quiz in a chat, best first.
func (s *ResultStore) Results(ctx context.Context, quizID, chatID string) ([]domain.Result, error) {
	var rows []resultRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("quiz_id = ?", quizID).
		Where("chat_id = ?", chatID).
		OrderExpr("correct_count DESC, accuracy DESC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	out := make([]domain.Result, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Result{
			QuizID:          row.QuizID,
			ChatID:          row.ChatID,
			ParticipantID:   row.ParticipantID,
			DisplayName:     row.DisplayName,
			CorrectCount:    row.CorrectCount,
			WrongCount:      row.WrongCount,
			Total:           row.Total,
			AccuracyPercent: row.Accuracy,
			CompletedAt:     row.CompletedAt,
		})
	}
	return out, nil
}
