package chathub

import (
	"context"
	"time"

	"strangerly/backend/internal/config"
	"strangerly/backend/internal/logger"
	"strangerly/backend/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	defaultWriteWait      = 10 * time.Second
	defaultPongWait       = 60 * time.Second
	defaultMaxMessageSize = 4096
	defaultSendBuffer     = 64
)

// WebSocketClient implements Client over a gorilla websocket connection.
type WebSocketClient struct {
	ConnID string
	Conn   *websocket.Conn
	Hub    *ManagerService
	Send   chan models.Outbound

	cfg config.WebSocketConfig
	ctx context.Context
}

// NewWebSocketClient assigns a fresh connection ID and registers the client
// with the hub. Call Run to start serving it.
func NewWebSocketClient(ctx context.Context, conn *websocket.Conn, hub *ManagerService, cfg config.WebSocketConfig) *WebSocketClient {
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = defaultWriteWait
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = defaultPongWait
	}
	if cfg.PingInterval <= 0 || cfg.PingInterval >= cfg.PongWait {
		cfg.PingInterval = cfg.PongWait * 9 / 10
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaultSendBuffer
	}

	connID := uuid.NewString()
	l := logger.Ctx(ctx).With().Str(logger.FieldConnID, connID).Logger()

	c := &WebSocketClient{
		ConnID: connID,
		Conn:   conn,
		Hub:    hub,
		Send:   make(chan models.Outbound, cfg.SendBuffer),
		cfg:    cfg,
		ctx:    logger.WithLogger(context.WithoutCancel(ctx), l),
	}
	hub.Register(c)
	return c
}

func (c *WebSocketClient) GetConnID() string                      { return c.ConnID }
func (c *WebSocketClient) GetSendChannel() chan<- models.Outbound { return c.Send }

// Run starts both pumps.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close stops the write pump, which then closes the socket.
func (c *WebSocketClient) Close() {
	close(c.Send)
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.Disconnect(c.ctx, c.ConnID)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Ctx(c.ctx).Warn().Err(err).Msg("websocket read failed")
			}
			return
		}
		c.Hub.HandleMessage(c.ctx, c.ConnID, message)
	}
}

// writePump writes one frame per outbound event so every frame is a complete
// JSON envelope.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(msg); err != nil {
				logger.Ctx(c.ctx).Debug().Err(err).Str(logger.FieldEvent, msg.Event).Msg("websocket write failed")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
