package app

import (
	"context"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"chat-quiz-service/internal/clock"
	"chat-quiz-service/internal/domain"
)

// Options tunes session timing. Zero values fall back to defaults.
type Options struct {
	Clock clock.Clock
	// Tracker is optional.
	Tracker SessionTracker
	// StartDelay separates the start announcement from the first question.
	StartDelay time.Duration
	// GracePeriod is added to every question timer.
	GracePeriod time.Duration
	// IOTimeout bounds best-effort calls made outside a session's context.
	IOTimeout time.Duration
}

// Registry owns every running session, keyed by chat. It is the only state
// shared between sessions.
type Registry struct {
	transport ChatTransport
	results   ResultStore
	tracker   SessionTracker
	clock     clock.Clock
	opts      Options

	liveTimers atomic.Int64

	mu       sync.Mutex
	sessions map[string]*Session
	routes   map[string]domain.AnswerRoute
	tokens   map[*Session][]string
}

func NewRegistry(transport ChatTransport, results ResultStore, opts Options) *Registry {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.IOTimeout <= 0 {
		opts.IOTimeout = 10 * time.Second
	}
	return &Registry{
		transport: transport,
		results:   results,
		tracker:   opts.Tracker,
		clock:     opts.Clock,
		opts:      opts,
		sessions:  make(map[string]*Session),
		routes:    make(map[string]domain.AnswerRoute),
		tokens:    make(map[*Session][]string),
	}
}

// StartSession registers a new session for chatID running a snapshot of quiz.
// It fails with domain.ErrAlreadyRunning if the chat already hosts one.
func (r *Registry) StartSession(quiz domain.QuizDefinition, chatID, starterID string) (*Session, error) {
	r.mu.Lock()
	if _, ok := r.sessions[chatID]; ok {
		r.mu.Unlock()
		return nil, domain.ErrAlreadyRunning
	}
	s := newSession(r, chatID, quiz.Snapshot(), starterID)
	r.sessions[chatID] = s
	r.mu.Unlock()

	s.mu.Lock()
	if s.status == domain.StatusStarting && s.timer == nil {
		s.timer = armTimer(r.clock, &r.liveTimers, -1, r.opts.StartDelay, s.begin)
	}
	s.mu.Unlock()

	if r.tracker != nil {
		ctx, cancel := context.WithTimeout(context.Background(), r.opts.IOTimeout)
		if err := r.tracker.MarkActive(ctx, chatID, quiz.ID); err != nil {
			log.Printf("[registry] mark chat %s active: %v", chatID, err)
		}
		cancel()
	}
	log.Printf("[registry] session started: chat=%s quiz=%s questions=%d", chatID, quiz.ID, len(quiz.Questions))
	return s, nil
}

// Lookup returns the running session of a chat.
func (r *Registry) Lookup(chatID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[chatID]
	return s, ok
}

// LookupRoute resolves a question token. Routes whose session is gone are
// dropped and reported as missing.
func (r *Registry) LookupRoute(token string) (domain.AnswerRoute, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	route, _, ok := r.lookupRouteLocked(token)
	return route, ok
}

// HandleAnswer routes an inbound answer to its session. It reports whether
// the answer was counted; stale and duplicate answers are ignored.
func (r *Registry) HandleAnswer(ev domain.AnswerEvent) bool {
	r.mu.Lock()
	route, s, ok := r.lookupRouteLocked(ev.Token)
	r.mu.Unlock()
	if !ok {
		return false
	}
	return s.onAnswer(route, ev)
}

// CancelSession cancels the running session of a chat.
func (r *Registry) CancelSession(chatID string) error {
	s, ok := r.Lookup(chatID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	if !s.cancel() {
		return domain.ErrSessionNotFound
	}
	return nil
}

// SkipQuestion closes the open question of a chat before its timer expires.
func (r *Registry) SkipQuestion(chatID string) error {
	s, ok := r.Lookup(chatID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.skip()
	return nil
}

// Snapshot reports the status of a chat's session.
func (r *Registry) Snapshot(chatID string) (domain.SessionSnapshot, error) {
	s, ok := r.Lookup(chatID)
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	return s.Snapshot(), nil
}

// ListActive returns snapshots of all running sessions, oldest first.
func (r *Registry) ListActive() []domain.SessionSnapshot {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	out := make([]domain.SessionSnapshot, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].ChatID < out[j].ChatID
	})
	return out
}

// Len is the number of running sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Routes is the number of pending answer routes.
func (r *Registry) Routes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.routes)
}

// LiveTimers is the number of armed session timers.
func (r *Registry) LiveTimers() int64 {
	return r.liveTimers.Load()
}

func (r *Registry) lookupRouteLocked(token string) (domain.AnswerRoute, *Session, bool) {
	route, ok := r.routes[token]
	if !ok {
		return domain.AnswerRoute{}, nil, false
	}
	s, ok := r.sessions[route.SessionKey]
	if !ok {
		delete(r.routes, token)
		return domain.AnswerRoute{}, nil, false
	}
	return route, s, true
}

func (r *Registry) addRoute(s *Session, route domain.AnswerRoute) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[route.Token] = route
	r.tokens[s] = append(r.tokens[s], route.Token)
}

// endSession removes s and all of its routes in one step. The tracker is
// cleared first so it cannot race a new session for the same chat.
func (r *Registry) endSession(s *Session) {
	if r.tracker != nil {
		ctx, cancel := context.WithTimeout(context.Background(), r.opts.IOTimeout)
		if err := r.tracker.Clear(ctx, s.key); err != nil {
			log.Printf("[registry] clear chat %s: %v", s.key, err)
		}
		cancel()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[s.key]; ok && cur == s {
		delete(r.sessions, s.key)
	}
	for _, token := range r.tokens[s] {
		delete(r.routes, token)
	}
	delete(r.tokens, s)
}
