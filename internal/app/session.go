package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"chat-quiz-service/internal/domain"
)

// Session is one running quiz in one chat. All state changes happen under mu;
// transport calls are made with mu released.
type Session struct {
	registry  *Registry
	key       string
	quiz      domain.QuizDefinition
	starterID string
	startedAt time.Time

	ctx      context.Context
	stop     context.CancelFunc
	done     chan struct{}
	doneOnce sync.Once

	mu           sync.Mutex
	status       domain.SessionStatus
	index        int
	token        string
	posting      bool
	timer        *questionTimer
	participants *ParticipantTable
	leaderboard  *domain.Leaderboard
	failure      error
}

func newSession(r *Registry, chatID string, quiz domain.QuizDefinition, starterID string) *Session {
	ctx, stop := context.WithCancel(context.Background())
	return &Session{
		registry:     r,
		key:          chatID,
		quiz:         quiz,
		starterID:    starterID,
		startedAt:    r.clock.Now(),
		ctx:          ctx,
		stop:         stop,
		done:         make(chan struct{}),
		status:       domain.StatusStarting,
		index:        -1,
		participants: NewParticipantTable(),
	}
}

// Key is the chat the session runs in.
func (s *Session) Key() string { return s.key }

// Quiz is the snapshot the session was started with.
func (s *Session) Quiz() domain.QuizDefinition { return s.quiz }

// Done is closed once the session reached a terminal state and was released.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) Status() domain.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Leaderboard is available once a completed session has been finalized.
func (s *Session) Leaderboard() (domain.Leaderboard, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.leaderboard == nil {
		return domain.Leaderboard{}, false
	}
	return *s.leaderboard, true
}

// Err is the transport error that failed the session, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// Participant returns a copy of one participant's record.
func (s *Session) Participant(participantID string) (domain.ParticipantRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.participants.Get(participantID)
}

func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.SessionSnapshot{
		ChatID:           s.key,
		QuizID:           s.quiz.ID,
		Title:            s.quiz.Title,
		Status:           s.status,
		CurrentIndex:     max(s.index, 0),
		TotalQuestions:   len(s.quiz.Questions),
		ParticipantCount: s.participants.Len(),
		StartedAt:        s.startedAt,
	}
}

// begin fires when the start delay elapses.
func (s *Session) begin(int) {
	s.mu.Lock()
	if s.status != domain.StatusStarting {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()
	s.advance()
}

// advance posts the next question, or completes the session when none are
// left. It runs only from Starting or QuestionClosed.
func (s *Session) advance() {
	s.mu.Lock()
	if s.posting || (s.status != domain.StatusStarting && s.status != domain.StatusQuestionClosed) {
		s.mu.Unlock()
		return
	}
	next := s.index + 1
	if next >= len(s.quiz.Questions) {
		s.status = domain.StatusCompleted
		records := s.participants.Records()
		s.mu.Unlock()
		s.complete(records)
		return
	}
	s.index = next
	s.posting = true
	question := s.quiz.Questions[next]
	s.mu.Unlock()

	open := s.quiz.QuestionDuration()
	token, err := s.registry.transport.PostQuestion(s.ctx, s.key, question, open)

	s.mu.Lock()
	s.posting = false
	if s.status.Terminal() {
		s.mu.Unlock()
		if err == nil {
			s.stopQuestion(token)
		}
		return
	}
	if err != nil {
		s.status = domain.StatusFailed
		s.failure = err
		s.mu.Unlock()
		s.fail(err)
		return
	}
	s.token = token
	s.registry.addRoute(s, domain.AnswerRoute{
		Token:         token,
		SessionKey:    s.key,
		QuestionIndex: next,
		CorrectOption: question.CorrectOption,
	})
	s.timer = armTimer(s.registry.clock, &s.registry.liveTimers, next, open+s.registry.opts.GracePeriod, s.onTimerExpired)
	s.status = domain.StatusQuestionOpen
	s.mu.Unlock()

	log.Printf("[engine] chat %s: question %d/%d posted", s.key, next+1, len(s.quiz.Questions))
}

// onTimerExpired is a no-op unless question index is still the open one.
func (s *Session) onTimerExpired(index int) {
	if !s.closeQuestion(index) {
		return
	}
	s.advance()
}

// skip closes the open question early.
func (s *Session) skip() {
	s.mu.Lock()
	index := s.index
	s.mu.Unlock()
	if !s.closeQuestion(index) {
		return
	}
	s.advance()
}

// closeQuestion moves QuestionOpen to QuestionClosed for index. Only one
// caller per question wins.
func (s *Session) closeQuestion(index int) bool {
	s.mu.Lock()
	if s.status != domain.StatusQuestionOpen || s.index != index {
		s.mu.Unlock()
		return false
	}
	s.status = domain.StatusQuestionClosed
	timer := s.timer
	s.timer = nil
	token := s.token
	s.mu.Unlock()

	timer.cancel()
	s.stopQuestion(token)
	return true
}

// onAnswer counts an answer for the open question. It never blocks on I/O.
func (s *Session) onAnswer(route domain.AnswerRoute, ev domain.AnswerEvent) bool {
	if ev.SelectedOption < 0 || ev.SelectedOption >= domain.OptionCount {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != domain.StatusQuestionOpen || route.QuestionIndex != s.index || route.Token != s.token {
		return false
	}
	return s.participants.Record(ev.ParticipantID, ev.DisplayName, route.QuestionIndex, ev.SelectedOption == route.CorrectOption)
}

// cancel stops the session without computing or persisting results.
func (s *Session) cancel() bool {
	s.mu.Lock()
	if s.status.Terminal() {
		s.mu.Unlock()
		return false
	}
	var token string
	if s.status == domain.StatusQuestionOpen {
		token = s.token
	}
	s.status = domain.StatusCancelled
	timer := s.timer
	s.timer = nil
	s.mu.Unlock()

	timer.cancel()
	s.stop()
	if token != "" {
		s.stopQuestion(token)
	}
	log.Printf("[engine] chat %s: quiz %s cancelled", s.key, s.quiz.ID)
	s.cleanup()
	return true
}

func (s *Session) complete(records []domain.ParticipantRecord) {
	lb := domain.Leaderboard{
		QuizID:         s.quiz.ID,
		ChatID:         s.key,
		Title:          s.quiz.Title,
		TotalQuestions: len(s.quiz.Questions),
		Entries:        BuildLeaderboard(records),
		FinishedAt:     s.registry.clock.Now(),
	}

	for _, e := range lb.Entries {
		ctx, cancel := s.ioContext()
		err := s.registry.results.SaveResult(ctx, domain.Result{
			QuizID:          lb.QuizID,
			ChatID:          lb.ChatID,
			ParticipantID:   e.ParticipantID,
			DisplayName:     e.DisplayName,
			CorrectCount:    e.CorrectCount,
			WrongCount:      e.WrongCount,
			Total:           lb.TotalQuestions,
			AccuracyPercent: e.AccuracyPercent,
			CompletedAt:     lb.FinishedAt,
		})
		cancel()
		if err != nil {
			log.Printf("[engine] chat %s: save result for %s: %v", s.key, e.ParticipantID, err)
		}
	}

	s.mu.Lock()
	s.leaderboard = &lb
	s.mu.Unlock()

	s.postMessage(FormatLeaderboard(lb))
	log.Printf("[engine] chat %s: quiz %s completed with %d participants", s.key, s.quiz.ID, len(lb.Entries))
	s.cleanup()
}

func (s *Session) fail(err error) {
	log.Printf("[engine] chat %s: quiz %s failed: %v", s.key, s.quiz.ID, err)
	s.postMessage(fmt.Sprintf("❌ Quiz error: %v", err))
	s.cleanup()
}

// cleanup releases the chat slot and routes. It is safe to call more than once.
func (s *Session) cleanup() {
	s.doneOnce.Do(func() {
		s.stop()
		s.registry.endSession(s)
		close(s.done)
	})
}

func (s *Session) stopQuestion(token string) {
	ctx, cancel := s.ioContext()
	defer cancel()
	if err := s.registry.transport.StopQuestion(ctx, s.key, token); err != nil {
		log.Printf("[engine] chat %s: stop question: %v", s.key, err)
	}
}

func (s *Session) postMessage(text string) {
	ctx, cancel := s.ioContext()
	defer cancel()
	if err := s.registry.transport.PostMessage(ctx, s.key, text); err != nil {
		log.Printf("[engine] chat %s: post message: %v", s.key, err)
	}
}

// ioContext is detached from the session context so best-effort calls still
// run after a cancel.
func (s *Session) ioContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.registry.opts.IOTimeout)
}
