package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"chat-quiz-service/internal/app"
	"chat-quiz-service/internal/domain"
)

// SessionsHandler reports running sessions: all of them, or one with ?chatId=.
func SessionsHandler(service *app.QuizService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if chatID := r.URL.Query().Get("chatId"); chatID != "" {
			snap, err := service.Status(r.Context(), chatID)
			if errors.Is(err, domain.ErrSessionNotFound) {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			writeJSON(w, snap)
			return
		}
		writeJSON(w, map[string]any{"sessions": service.ActiveSessions(r.Context())})
	}
}

// NewMux wires the gateway routes.
func NewMux(service *app.QuizService, gateway *Gateway) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", NewWSHandler(service, gateway).ServeWS)
	mux.HandleFunc("/sessions", SessionsHandler(service))
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
