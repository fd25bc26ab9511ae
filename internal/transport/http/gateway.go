package http

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chat-quiz-service/internal/domain"
	"github.com/google/uuid"
)

// Gateway fans quiz traffic out to the websocket clients of each chat. It is
// the engine's ChatTransport.
type Gateway struct {
	newToken func() string

	mu        sync.RWMutex
	chats     map[string]map[*client]struct{}
	questions map[string]domain.Question
}

func NewGateway() *Gateway {
	return &Gateway{
		newToken:  uuid.NewString,
		chats:     make(map[string]map[*client]struct{}),
		questions: make(map[string]domain.Question),
	}
}

type questionPayload struct {
	Token       string                     `json:"token"`
	Text        string                     `json:"text"`
	Options     [domain.OptionCount]string `json:"options"`
	OpenSeconds int                        `json:"openSeconds"`
}

type questionClosedPayload struct {
	Token         string `json:"token"`
	CorrectOption int    `json:"correctOption"`
	Explanation   string `json:"explanation,omitempty"`
}

type messagePayload struct {
	Text string `json:"text"`
}

func (g *Gateway) PostQuestion(ctx context.Context, chatID string, q domain.Question, open time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	token := g.newToken()

	g.mu.Lock()
	g.questions[token] = q
	g.mu.Unlock()

	delivered := g.broadcast(chatID, outboundMessage[any]{Type: "question", Payload: questionPayload{
		Token:       token,
		Text:        q.Text,
		Options:     q.Options,
		OpenSeconds: int(open / time.Second),
	}})
	if delivered == 0 {
		g.mu.Lock()
		delete(g.questions, token)
		g.mu.Unlock()
		return "", fmt.Errorf("post question to %s: %w", chatID, domain.ErrChatUnavailable)
	}
	return token, nil
}

// StopQuestion reveals the answer of a question and drops its bookkeeping.
func (g *Gateway) StopQuestion(_ context.Context, chatID, token string) error {
	g.mu.Lock()
	q, ok := g.questions[token]
	delete(g.questions, token)
	g.mu.Unlock()
	if !ok {
		return fmt.Errorf("stop question %s: unknown token", token)
	}

	g.broadcast(chatID, outboundMessage[any]{Type: "questionClosed", Payload: questionClosedPayload{
		Token:         token,
		CorrectOption: q.CorrectOption,
		Explanation:   q.Explanation,
	}})
	return nil
}

func (g *Gateway) PostMessage(_ context.Context, chatID, text string) error {
	if g.broadcast(chatID, outboundMessage[any]{Type: "message", Payload: messagePayload{Text: text}}) == 0 {
		return fmt.Errorf("post message to %s: %w", chatID, domain.ErrChatUnavailable)
	}
	return nil
}

// Members is the number of clients connected to a chat.
func (g *Gateway) Members(chatID string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.chats[chatID])
}

func (g *Gateway) join(chatID string, c *client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	members, ok := g.chats[chatID]
	if !ok {
		members = make(map[*client]struct{})
		g.chats[chatID] = members
	}
	members[c] = struct{}{}
}

// leave guarantees no broadcast reaches c once it returns.
func (g *Gateway) leave(chatID string, c *client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	members := g.chats[chatID]
	delete(members, c)
	if len(members) == 0 {
		delete(g.chats, chatID)
	}
}

func (g *Gateway) broadcast(chatID string, msg outboundMessage[any]) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for c := range g.chats[chatID] {
		c.deliver(msg)
	}
	return len(g.chats[chatID])
}

type client struct {
	participantID string
	displayName   string
	send          chan outboundMessage[any]
}

func newClient(participantID, displayName string) *client {
	return &client{
		participantID: participantID,
		displayName:   displayName,
		send:          make(chan outboundMessage[any], 16),
	}
}

// deliver never blocks: when the buffer is full the oldest message is dropped.
func (c *client) deliver(msg outboundMessage[any]) {
	for {
		select {
		case c.send <- msg:
			return
		default:
		}
		select {
		case <-c.send:
		default:
		}
	}
}
