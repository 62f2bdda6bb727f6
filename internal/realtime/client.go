package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	ws "github.com/coder/websocket"

	"github.com/chatjam/chatjam/internal/model"
)

const (
	sendBufferSize = 32
	pingInterval   = 30 * time.Second
)

// Handler processes chat commands on behalf of one connection. Implemented
// by the delivery pipeline; the client never touches storage directly.
type Handler interface {
	// SendMessage runs the delivery pipeline for one pending message. The
	// ack callback fires exactly once, before any fanout to other parties.
	SendMessage(pending model.PendingMessage, ack func(model.Ack))

	// MarkMessagesRead marks the batch read and fans receipts into the room.
	// Reports aggregate success; partial success is not modeled.
	MarkMessagesRead(ids []string, roomID string) bool
}

// Client is one live websocket connection. Commands are read and handled one
// at a time, so acknowledgments per connection follow submission order.
type Client struct {
	id       string
	registry *Registry
	handler  Handler
	conn     *ws.Conn
	send     chan []byte
	logger   *slog.Logger
}

func NewClient(id string, registry *Registry, handler Handler, conn *ws.Conn, logger *slog.Logger) *Client {
	return &Client{
		id:       id,
		registry: registry,
		handler:  handler,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		logger:   logger,
	}
}

// Send queues a frame for delivery, dropping it if the connection cannot
// keep up. Satisfies the registry's Sink interface.
func (c *Client) Send(data []byte) {
	select {
	case c.send <- data:
	default:
		c.logger.Warn("send buffer full, dropping frame", "conn", c.id)
	}
}

// Run registers the connection, starts the write pump, and reads commands
// until the connection closes. It blocks, then removes the connection from
// every channel it joined.
func (c *Client) Run(ctx context.Context) {
	c.registry.Connect(c.id, c)
	defer c.registry.Disconnect(c.id)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writePump(ctx)
	c.readPump(ctx)
}

func (c *Client) readPump(ctx context.Context) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		c.handleCommand(data)
	}
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.send:
			if err := c.conn.Write(ctx, ws.MessageText, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) handleCommand(data []byte) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		c.logger.Warn("malformed command", "conn", c.id, "error", err)
		return
	}

	switch cmd.Type {
	case CmdRegister:
		if cmd.UserID == "" {
			c.logger.Warn("register without user id", "conn", c.id)
			return
		}
		c.registry.Register(c.id, cmd.UserID)

	case CmdJoinRoom:
		c.registry.JoinRoom(c.id, cmd.RoomID)

	case CmdLeaveRoom:
		c.registry.LeaveRoom(c.id, cmd.RoomID)

	case CmdSendMessage:
		if cmd.Message == nil {
			c.logger.Warn("sendMessage without message", "conn", c.id)
			return
		}
		pending := pendingFromWire(cmd.Message)
		c.handler.SendMessage(pending, func(ack model.Ack) {
			c.sendEvent(EventSendMessageResult, ack)
		})

	case CmdMarkMessagesRead:
		ok := c.handler.MarkMessagesRead(cmd.MessageIDs, cmd.RoomID)
		c.sendEvent(EventMarkMessagesReadResult, map[string]bool{"success": ok})

	default:
		c.logger.Warn("unknown command", "conn", c.id, "type", cmd.Type)
	}
}

func (c *Client) sendEvent(eventType string, payload any) {
	data, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		c.logger.Error("marshal event", "type", eventType, "error", err)
		return
	}
	c.Send(data)
}

func pendingFromWire(w *PendingMessageJSON) model.PendingMessage {
	createdAt, err := time.Parse(time.RFC3339, w.CreatedAt)
	if err != nil {
		createdAt = time.Now().UTC()
	}
	return model.PendingMessage{
		TempID:      w.TempID,
		RoomID:      w.RoomID,
		SenderID:    w.SenderID,
		RecipientID: w.RecipientID,
		Text:        w.Text,
		CreatedAt:   createdAt,
	}
}
