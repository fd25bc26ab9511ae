package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"chat-quiz-service/internal/app"
	"chat-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	service  *app.QuizService
	gateway  *Gateway
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, gateway *Gateway) *WSHandler {
	return &WSHandler{
		service: service,
		gateway: gateway,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	QuizID string `json:"quizId"`
}

type answerPayload struct {
	Token  string `json:"token"`
	Option int    `json:"option"`
}

type answerResult struct {
	Token    string `json:"token"`
	Accepted bool   `json:"accepted"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and joins the connection to a chat.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	chatID := r.URL.Query().Get("chatId")
	userID := r.URL.Query().Get("userId")
	displayName := r.URL.Query().Get("name")
	if chatID == "" || userID == "" || displayName == "" {
		http.Error(w, "missing chatId, userId, or name", http.StatusBadRequest)
		return
	}
	private, _ := strconv.ParseBool(r.URL.Query().Get("private"))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	c := newClient(userID, displayName)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range c.send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("[ws] write error: %v", err)
				return
			}
		}
	}()

	h.gateway.join(chatID, c)
	joined := outboundMessage[any]{Type: "joined", Payload: map[string]string{"chatId": chatID}}
	if snap, err := h.service.Status(r.Context(), chatID); err == nil {
		joined.Payload = snap
	}
	c.deliver(joined)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		c.deliver(h.dispatch(r, chatID, private, c, inbound))
	}

	h.gateway.leave(chatID, c)
	close(c.send)
	<-writerDone
}

func (h *WSHandler) dispatch(r *http.Request, chatID string, private bool, c *client, inbound inboundMessage) outboundMessage[any] {
	ctx := r.Context()
	switch inbound.Type {
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage("bad_request", "invalid answer payload")
		}
		accepted := h.service.SubmitAnswer(ctx, domain.AnswerEvent{
			Token:          payload.Token,
			ParticipantID:  c.participantID,
			DisplayName:    c.displayName,
			SelectedOption: payload.Option,
		})
		return outboundMessage[any]{Type: "answerResult", Payload: answerResult{Token: payload.Token, Accepted: accepted}}
	case "start":
		var payload startPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.QuizID == "" {
			return errorMessage("bad_request", "invalid start payload")
		}
		snap, err := h.service.StartQuiz(ctx, app.StartRequest{
			ChatID:      chatID,
			QuizID:      payload.QuizID,
			StarterID:   c.participantID,
			PrivateChat: private,
		})
		if err != nil {
			return errorFor(err)
		}
		return outboundMessage[any]{Type: "started", Payload: snap}
	case "cancel":
		if err := h.service.CancelQuiz(ctx, chatID); err != nil {
			return errorFor(err)
		}
		return outboundMessage[any]{Type: "cancelled", Payload: map[string]string{"chatId": chatID}}
	case "skip":
		if err := h.service.SkipQuestion(ctx, chatID); err != nil {
			return errorFor(err)
		}
		return outboundMessage[any]{Type: "skipped", Payload: map[string]string{"chatId": chatID}}
	case "status":
		snap, err := h.service.Status(ctx, chatID)
		if err != nil {
			return errorFor(err)
		}
		return outboundMessage[any]{Type: "status", Payload: snap}
	}
	return errorMessage("unsupported", "unsupported message type")
}

func errorFor(err error) outboundMessage[any] {
	switch {
	case errors.Is(err, domain.ErrAlreadyRunning):
		return errorMessage("already_running", err.Error())
	case errors.Is(err, domain.ErrSessionNotFound):
		return errorMessage("not_running", err.Error())
	case errors.Is(err, domain.ErrQuizNotFound):
		return errorMessage("quiz_not_found", err.Error())
	case errors.Is(err, domain.ErrAlreadyAttempted):
		return errorMessage("already_attempted", err.Error())
	}
	log.Printf("[ws] request failed: %v", err)
	return errorMessage("internal", "request failed")
}

func errorMessage(code, message string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Code: code, Message: message}}
}
