package chat

import (
	"net/http"

	"github.com/ageniuscoder/pairchat/backend/internal/auth"
	"github.com/ageniuscoder/pairchat/backend/internal/httpx"
	"github.com/ageniuscoder/pairchat/backend/internal/typing"
	"github.com/ageniuscoder/pairchat/backend/internal/users"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow CORS for demo; tighten in prod.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSConfig wires the websocket endpoint.
type WSConfig struct {
	Hub        *Hub
	Typing     *typing.Tracker
	Users      *users.Enroller // optional
	JWTSecret  string
	SendBuffer int
	Log        *zap.Logger
}

// RegisterWS mounts GET /ws for authenticated clients.
// Auth works via:
// 1) Header: Authorization: Bearer <JWT>
// 2) Query:  ?token=<JWT>
func RegisterWS(rg *gin.RouterGroup, cfg WSConfig) {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 256
	}
	rg.GET("/ws", func(c *gin.Context) {
		token := auth.BearerToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		cl, err := auth.ParseToken(cfg.JWTSecret, token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		if cfg.Users != nil {
			if err := cfg.Users.Enroll(c.Request.Context(), users.User{ID: cl.UserID, Username: cl.Username}); err != nil {
				httpx.Fail(c, cfg.Log, err)
				return
			}
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			cfg.Log.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := NewClient(cfg.Hub, cfg.Typing, conn, cl.UserID, uuid.NewString(), cfg.SendBuffer, cfg.Log)
		cfg.Hub.Connect(client.UserID, client)
		client.Log.Info("session established")

		go client.writePump()
		go client.readPump()
	})
}
