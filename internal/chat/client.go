package chat

import (
	"sync"
	"time"

	"github.com/ageniuscoder/pairchat/backend/internal/domain"
	"github.com/ageniuscoder/pairchat/backend/internal/typing"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 5120
)

type Client struct {
	Hub    *Hub
	Typing *typing.Tracker
	Conn   *websocket.Conn
	Send   chan []byte
	UserID string
	ConnID string
	Log    *zap.Logger

	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(hub *Hub, tr *typing.Tracker, conn *websocket.Conn, userID, connID string, buffer int, log *zap.Logger) *Client {
	return &Client{
		Hub:    hub,
		Typing: tr,
		Conn:   conn,
		Send:   make(chan []byte, buffer),
		UserID: userID,
		ConnID: connID,
		Log:    log.With(zap.String("user", userID), zap.String("conn", connID)),
		done:   make(chan struct{}),
	}
}

func (c *Client) ID() string { return c.ConnID }

func (c *Client) Push(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.Send <- frame:
		return true
	default:
		return false
	}
}

// Close stops the write pump, which closes the socket and ends the read pump.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Client) readPump() {
	defer func() {
		if c.Hub.Disconnect(c.UserID, c.ConnID) {
			c.Typing.ClearFrom(c.UserID)
		}
		c.Close()
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, msg, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.Log.Warn("websocket read error", zap.Error(err))
			}
			break
		}
		sig, err := domain.DecodeSignal(msg)
		if err != nil {
			c.Log.Debug("ignoring client frame", zap.Error(err))
			continue
		}
		switch sig.Type {
		case domain.WireTypingStart:
			c.Typing.SetTyping(c.UserID, sig.ToUserID)
		case domain.WireTypingStop:
			c.Typing.ClearTyping(c.UserID, sig.ToUserID)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)
			if err := w.Close(); err != nil {
				return
			}
		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
			return
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
