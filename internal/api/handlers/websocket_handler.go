// internal/api/handlers/websocket_handler.go
package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"wte-api-server/internal/auth"
	"wte-api-server/internal/socket"
)

// Maximum time to wait for the next client frame.
const pongWait = 60 * time.Second

// TokenVerifier resolves a bearer token into an identity.
type TokenVerifier interface {
	Verify(token string) (auth.Identity, error)
}

type WebSocketHandler struct {
	Hub    *socket.Hub
	Tokens TokenVerifier
	// CheckOrigin decides which browser origins may connect. Nil allows all.
	CheckOrigin func(r *http.Request) bool
}

// ServeWs upgrades an authenticated dashboard connection and keeps it
// registered until the client goes away. Browsers cannot set headers on a
// WebSocket handshake, so the token travels as ?token=.
func (h *WebSocketHandler) ServeWs(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token is required"})
		return
	}

	identity, err := h.Tokens.Verify(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.CheckOrigin,
	}
	if upgrader.CheckOrigin == nil {
		upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}

	h.Hub.Register(identity.UserID, conn)
	defer func() {
		h.Hub.Unregister(conn)
		conn.Close()
	}()

	// Clients ping to stay connected; gorilla answers with a pong.
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Unexpected close error: %v", err)
			}
			break
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}
