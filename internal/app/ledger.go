package app

import "chat-quiz-service/internal/domain"

// ParticipantTable records answers per participant and question. The first
// answer of a participant to a question wins; it keeps first-seen order.
// It is not safe for concurrent use; the owning Session serializes access.
type ParticipantTable struct {
	records map[string]*domain.ParticipantRecord
	order   []string
}

func NewParticipantTable() *ParticipantTable {
	return &ParticipantTable{records: make(map[string]*domain.ParticipantRecord)}
}

// Record counts an answer. It returns false when the participant already
// answered questionIndex.
func (t *ParticipantTable) Record(participantID, displayName string, questionIndex int, correct bool) bool {
	rec, ok := t.records[participantID]
	if !ok {
		rec = &domain.ParticipantRecord{
			ParticipantID: participantID,
			DisplayName:   displayName,
			Answered:      make(map[int]struct{}),
		}
		t.records[participantID] = rec
		t.order = append(t.order, participantID)
	}
	if _, dup := rec.Answered[questionIndex]; dup {
		return false
	}
	rec.Answered[questionIndex] = struct{}{}
	if displayName != "" {
		rec.DisplayName = displayName
	}
	if correct {
		rec.CorrectCount++
	} else {
		rec.WrongCount++
	}
	return true
}

func (t *ParticipantTable) Len() int {
	return len(t.order)
}

// Get returns a copy of a participant's record.
func (t *ParticipantTable) Get(participantID string) (domain.ParticipantRecord, bool) {
	rec, ok := t.records[participantID]
	if !ok {
		return domain.ParticipantRecord{}, false
	}
	return copyRecord(rec), true
}

// Records returns copies of all records in first-seen order.
func (t *ParticipantTable) Records() []domain.ParticipantRecord {
	out := make([]domain.ParticipantRecord, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, copyRecord(t.records[id]))
	}
	return out
}

func copyRecord(rec *domain.ParticipantRecord) domain.ParticipantRecord {
	cp := *rec
	cp.Answered = make(map[int]struct{}, len(rec.Answered))
	for idx := range rec.Answered {
		cp.Answered[idx] = struct{}{}
	}
	return cp
}
