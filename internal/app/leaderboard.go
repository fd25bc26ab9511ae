package app

import (
	"fmt"
	"sort"
	"strings"

	"chat-quiz-service/internal/domain"
)

// BuildLeaderboard ranks records by correct answers, then accuracy. Remaining
// ties keep the input order. Participants without answers are kept with 0%
// accuracy and sort to the bottom.
func BuildLeaderboard(records []domain.ParticipantRecord) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, domain.LeaderboardEntry{
			ParticipantID:   rec.ParticipantID,
			DisplayName:     rec.DisplayName,
			CorrectCount:    rec.CorrectCount,
			WrongCount:      rec.WrongCount,
			AccuracyPercent: Accuracy(rec.CorrectCount, rec.WrongCount),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CorrectCount != entries[j].CorrectCount {
			return entries[i].CorrectCount > entries[j].CorrectCount
		}
		return entries[i].AccuracyPercent > entries[j].AccuracyPercent
	})
	return entries
}

// Accuracy is the share of correct answers among given answers, in percent.
func Accuracy(correct, wrong int) float64 {
	answered := correct + wrong
	if answered == 0 {
		return 0
	}
	return float64(correct) / float64(answered) * 100
}

// FormatLeaderboard renders the completion announcement for a chat.
func FormatLeaderboard(lb domain.Leaderboard) string {
	if len(lb.Entries) == 0 {
		return "🏆 Quiz Completed!\n\nNo participants found."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🏆 Quiz Completed: %s\n\n📊 Leaderboard:\n\n", lb.Title)
	for i, e := range lb.Entries {
		fmt.Fprintf(&b, "%s %s — Score: %d/%d — Accuracy: %.1f%%\n",
			medal(i+1), e.DisplayName, e.CorrectCount, lb.TotalQuestions, e.AccuracyPercent)
	}
	return b.String()
}

func medal(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	}
	return fmt.Sprintf("%d.", rank)
}

// formatStartNotice is posted to the chat before the first question.
func formatStartNotice(quiz domain.QuizDefinition) string {
	return fmt.Sprintf("🎯 Starting Quiz: %s\n\nTotal Questions: %d\nTime per Question: %ds\n\nGet ready!",
		quiz.Title, len(quiz.Questions), quiz.SecondsPerQuestion)
}
