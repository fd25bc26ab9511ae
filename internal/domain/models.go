package domain

import "time"

// OptionCount is the number of answer options every question carries.
const OptionCount = 4

// Question is a single multiple-choice question of a quiz.
type Question struct {
	Text          string              `json:"text"`
	Options       [OptionCount]string `json:"options"`
	CorrectOption int                 `json:"correctOption"`
	Explanation   string              `json:"explanation,omitempty"`
}

// QuizDefinition is an authored quiz. It is never mutated once stored.
type QuizDefinition struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Questions          []Question `json:"questions"`
	SecondsPerQuestion int        `json:"secondsPerQuestion"`
	OwnerID            string     `json:"ownerId"`
	CreatedAt          time.Time  `json:"createdAt"`
}

// Snapshot returns a copy that shares no mutable memory with q.
func (q QuizDefinition) Snapshot() QuizDefinition {
	cp := q
	cp.Questions = append([]Question(nil), q.Questions...)
	return cp
}

// QuestionDuration is the nominal open period of each question.
func (q QuizDefinition) QuestionDuration() time.Duration {
	return time.Duration(q.SecondsPerQuestion) * time.Second
}

// SessionStatus is the lifecycle state of a running quiz session.
type SessionStatus string

const (
	StatusStarting       SessionStatus = "starting"
	StatusQuestionOpen   SessionStatus = "question_open"
	StatusQuestionClosed SessionStatus = "question_closed"
	StatusCompleted      SessionStatus = "completed"
	StatusCancelled      SessionStatus = "cancelled"
	StatusFailed         SessionStatus = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s SessionStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

// ParticipantRecord is the per-session tally of one participant.
type ParticipantRecord struct {
	ParticipantID string
	DisplayName   string
	CorrectCount  int
	WrongCount    int
	Answered      map[int]struct{}
}

// Answers is the number of counted answers.
func (p ParticipantRecord) Answers() int {
	return p.CorrectCount + p.WrongCount
}

// AnswerRoute correlates a posted question token with the question it belongs to.
type AnswerRoute struct {
	Token         string
	SessionKey    string
	QuestionIndex int
	CorrectOption int
}

// AnswerEvent is an inbound answer notification from the chat transport.
type AnswerEvent struct {
	Token          string
	ParticipantID  string
	DisplayName    string
	SelectedOption int
}

// LeaderboardEntry is a ranked view of a participant.
type LeaderboardEntry struct {
	ParticipantID   string  `json:"participantId"`
	DisplayName     string  `json:"displayName"`
	CorrectCount    int     `json:"correctCount"`
	WrongCount      int     `json:"wrongCount"`
	AccuracyPercent float64 `json:"accuracyPercent"`
}

// Leaderboard captures the final ordered scoreboard of a session.
type Leaderboard struct {
	QuizID         string             `json:"quizId"`
	ChatID         string             `json:"chatId"`
	Title          string             `json:"title"`
	TotalQuestions int                `json:"totalQuestions"`
	Entries        []LeaderboardEntry `json:"entries"`
	FinishedAt     time.Time          `json:"finishedAt"`
}

// SessionSnapshot is a read-only status view of a running session.
type SessionSnapshot struct {
	ChatID           string        `json:"chatId"`
	QuizID           string        `json:"quizId"`
	Title            string        `json:"title"`
	Status           SessionStatus `json:"status"`
	CurrentIndex     int           `json:"currentIndex"`
	TotalQuestions   int           `json:"totalQuestions"`
	ParticipantCount int           `json:"participantCount"`
	StartedAt        time.Time     `json:"startedAt"`
}

// Result is one participant's persisted outcome of a completed session.
type Result struct {
	QuizID          string
	ChatID          string
	ParticipantID   string
	DisplayName     string
	CorrectCount    int
	WrongCount      int
	Total           int
	AccuracyPercent float64
	CompletedAt     time.Time
}
