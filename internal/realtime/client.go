package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/bhojansetu/bhojansetu/internal/apperrors"
	"github.com/bhojansetu/bhojansetu/internal/models"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
	sendQueueSize  = 256
)

// JoinAuthorizer decides whether the principal may join a donation's room.
type JoinAuthorizer func(ctx context.Context, p models.Principal, donationID uuid.UUID) error

// Client is one websocket connection. rooms is guarded by the hub mutex.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	principal models.Principal
	authorize JoinAuthorizer
	log       *zap.Logger

	send     chan []byte
	sendMu   sync.Mutex
	sendDone bool
	rooms    map[uuid.UUID]struct{}
}

func NewClient(hub *Hub, conn *websocket.Conn, principal models.Principal, authorize JoinAuthorizer) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		principal: principal,
		authorize: authorize,
		log:       hub.log.With(zap.String("user_id", principal.ID.String())),
		send:      make(chan []byte, sendQueueSize),
		rooms:     make(map[uuid.UUID]struct{}),
	}
}

// Serve registers the client and pumps frames until the connection ends.
func (c *Client) Serve(ctx context.Context) {
	if !c.hub.Register(c) {
		_ = c.conn.Close()
		return
	}
	go c.writePump()
	c.readPump(ctx)
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("websocket read failed", zap.Error(err))
			}
			return
		}
		c.handleFrame(ctx, data)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleFrame(ctx context.Context, data []byte) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		c.reply(errorFrame("", "Malformed frame."))
		return
	}

	switch frame.Type {
	case FrameJoinRoom:
		room, err := uuid.Parse(frame.DonationID)
		if err != nil {
			c.reply(errorFrame(frame.DonationID, "Invalid donation id."))
			return
		}
		if err := c.authorize(ctx, c.principal, room); err != nil {
			c.reply(errorFrame(frame.DonationID, joinErrorMessage(err)))
			return
		}
		c.hub.Join(room, c)
		c.reply(Frame{Type: FrameJoined, DonationID: room.String()})

	case FrameLeaveRoom:
		room, err := uuid.Parse(frame.DonationID)
		if err != nil {
			c.reply(errorFrame(frame.DonationID, "Invalid donation id."))
			return
		}
		c.hub.Leave(room, c)
		c.reply(Frame{Type: FrameLeft, DonationID: room.String()})

	case FrameNewMessage:
		c.reply(errorFrame(frame.DonationID, "Send messages through the messages API."))

	default:
		c.reply(errorFrame(frame.DonationID, "Unknown frame type."))
	}
}

func (c *Client) reply(frame Frame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		return
	}
	c.enqueue(payload)
}

// enqueue never blocks; it reports false when the queue is full.
func (c *Client) enqueue(payload []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendDone {
		return true
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.sendDone {
		c.sendDone = true
		close(c.send)
	}
}

func joinErrorMessage(err error) string {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) && appErr.Kind != apperrors.KindInternal && appErr.Kind != apperrors.KindDependency {
		return appErr.Message
	}
	return "Unable to join chat room."
}
