package ws

import (
	"net/http"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/banterhq/banter/internal/repository"
	"github.com/banterhq/banter/internal/service"
	"github.com/banterhq/banter/internal/transport/http/middleware"
)

// ServeWS upgrades an authenticated request to a websocket connection and
// registers the client with the hub. The token travels as a query parameter
// because browsers cannot set headers on websocket upgrades.
func ServeWS(hub *Hub, jwtSecret string, userRepo repository.UserRepository, chatService *service.ChatService, messageService *service.MessageService, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		userID, err := middleware.ParseToken(token, jwtSecret)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		user, err := userRepo.GetByID(r.Context(), userID)
		if err != nil || user == nil {
			http.Error(w, "unknown user", http.StatusUnauthorized)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			log.Warnw("websocket accept failed", "error", err)
			return
		}

		client := NewClient(hub, conn, user, chatService, messageService, log)
		hub.register <- client

		// ReadPump blocks so the request context stays alive for the
		// lifetime of the hijacked connection.
		go client.WritePump(r.Context())
		client.ReadPump(r.Context())
	}
}
