package domain

import "errors"

var (
	// ErrAlreadyRunning is returned when a chat already hosts a running session.
	ErrAlreadyRunning = errors.New("a quiz is already running in this chat")
	// ErrSessionNotFound is returned when no session is running for a chat.
	ErrSessionNotFound = errors.New("no quiz is running in this chat")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrAlreadyAttempted is returned when a participant retries a quiz in a private chat.
	ErrAlreadyAttempted = errors.New("quiz already attempted")
	// ErrChatUnavailable is returned by transports that cannot reach a chat.
	ErrChatUnavailable = errors.New("chat unavailable")
)
