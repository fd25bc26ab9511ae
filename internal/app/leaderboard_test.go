package app

import (
	"testing"

	"chat-quiz-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(id string, correct, wrong int) domain.ParticipantRecord {
	return domain.ParticipantRecord{ParticipantID: id, DisplayName: id, CorrectCount: correct, WrongCount: wrong}
}

func ids(entries []domain.LeaderboardEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ParticipantID)
	}
	return out
}

func TestLeaderboardCorrectCountDominatesAccuracy(t *testing.T) {
	entries := BuildLeaderboard([]domain.ParticipantRecord{
		record("p3", 2, 0),
		record("p2", 3, 1),
		record("p1", 3, 0),
	})

	require.Equal(t, []string{"p1", "p2", "p3"}, ids(entries))
	assert.Equal(t, 100.0, entries[0].AccuracyPercent)
	assert.Equal(t, 75.0, entries[1].AccuracyPercent)
	assert.Equal(t, 100.0, entries[2].AccuracyPercent)
}

func TestLeaderboardKeepsInsertionOrderOnTies(t *testing.T) {
	entries := BuildLeaderboard([]domain.ParticipantRecord{
		record("late", 1, 1),
		record("first", 2, 0),
		record("second", 2, 0),
		record("silent", 0, 0),
		record("wrong", 0, 2),
	})

	assert.Equal(t, []string{"first", "second", "late", "silent", "wrong"}, ids(entries))
	assert.Zero(t, entries[3].AccuracyPercent)
}

func TestLeaderboardEmpty(t *testing.T) {
	assert.Empty(t, BuildLeaderboard(nil))
}

func TestAccuracy(t *testing.T) {
	assert.Equal(t, 0.0, Accuracy(0, 0))
	assert.InDelta(t, 66.666, Accuracy(2, 1), 0.01)
	assert.Equal(t, 0.0, Accuracy(0, 4))
}

func TestFormatLeaderboard(t *testing.T) {
	text := FormatLeaderboard(domain.Leaderboard{
		Title:          "Capitals",
		TotalQuestions: 4,
		Entries: BuildLeaderboard([]domain.ParticipantRecord{
			record("a", 4, 0), record("b", 3, 1), record("c", 2, 2), record("d", 1, 0),
		}),
	})

	assert.Contains(t, text, "🏆 Quiz Completed: Capitals")
	assert.Contains(t, text, "🥇 a — Score: 4/4 — Accuracy: 100.0%")
	assert.Contains(t, text, "🥈 b — Score: 3/4 — Accuracy: 75.0%")
	assert.Contains(t, text, "🥉 c — Score: 2/4 — Accuracy: 50.0%")
	assert.Contains(t, text, "4. d — Score: 1/4 — Accuracy: 100.0%")
}
