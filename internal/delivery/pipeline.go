package delivery

import (
	"log/slog"
	"time"

	"github.com/chatjam/chatjam/internal/model"
	"github.com/chatjam/chatjam/internal/realtime"
)

// DefaultSummaryWindow bounds how often a room surfaces a chat-list update.
const DefaultSummaryWindow = 200 * time.Millisecond

// MessageInserter is the durable insert operation of the message store.
type MessageInserter interface {
	Insert(roomID, text, senderID, recipientID string, clientCreatedAt time.Time) (*model.Message, error)
}

// ReadMarker is the durable bulk mark-read operation of the message store.
type ReadMarker interface {
	MarkRead(ids []string, roomID string) ([]model.Message, error)
}

// BlockChecker answers whether blockerID has blocked blockedID. Queried
// fresh on every message; a failure fails the delivery, never falls through
// to "not blocked".
type BlockChecker interface {
	IsBlocked(blockerID, blockedID string) (bool, error)
}

// OfflineNotifier receives messages whose recipient has no live connection,
// for delivery over an out-of-band transport (web push).
type OfflineNotifier interface {
	NotifyNewMessage(userID string, msg model.Message)
}

// Pipeline orchestrates persist, block check, acknowledge, and fanout for
// outgoing messages, and propagates read receipts back into rooms. It
// implements realtime.Handler.
type Pipeline struct {
	messages  MessageInserter
	reads     ReadMarker
	blocks    BlockChecker
	registry  *realtime.Registry
	debouncer *Debouncer
	offline   OfflineNotifier // nil when push is not configured
	window    time.Duration
	logger    *slog.Logger
}

func NewPipeline(messages MessageInserter, reads ReadMarker, blocks BlockChecker, registry *realtime.Registry, offline OfflineNotifier, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		messages:  messages,
		reads:     reads,
		blocks:    blocks,
		registry:  registry,
		debouncer: NewDebouncer(),
		offline:   offline,
		window:    DefaultSummaryWindow,
		logger:    logger,
	}
}

// SetSummaryWindow overrides the debounce window. The window is a tuning
// knob, not a correctness parameter.
func (p *Pipeline) SetSummaryWindow(d time.Duration) {
	p.window = d
}

// SendMessage runs one message through persist, block check, acknowledge,
// and fanout. The ack callback fires exactly once and always before any
// event reaches another participant.
func (p *Pipeline) SendMessage(pending model.PendingMessage, ack func(model.Ack)) {
	msg, err := p.messages.Insert(pending.RoomID, pending.Text, pending.SenderID, pending.RecipientID, pending.CreatedAt)
	if err != nil {
		// Persistence failure reaches the sender only. No fanout, no
		// partial state anywhere else.
		p.logger.Error("insert message", "room", pending.RoomID, "error", err)
		ack(model.Ack{Status: model.AckFailed, TempID: pending.TempID})
		return
	}

	blocked, err := p.blocks.IsBlocked(pending.RecipientID, pending.SenderID)
	if err != nil {
		// Fail closed: an unanswerable block query must never deliver.
		p.logger.Error("block check", "sender", pending.SenderID, "recipient", pending.RecipientID, "error", err)
		ack(model.Ack{Status: model.AckFailed, TempID: pending.TempID})
		return
	}

	ack(model.Ack{
		Status:          model.AckSent,
		TempID:          pending.TempID,
		ServerID:        msg.ID,
		ServerCreatedAt: msg.CreatedAt,
	})

	if blocked {
		// The sender's own chat list still reflects the outgoing message;
		// the recipient receives nothing, ever, for this message.
		p.registry.Publish(realtime.UserChannel(msg.SenderID), realtime.Event{
			Type: realtime.EventUpdateChatSummary,
			Payload: model.ChatSummary{
				ID:        msg.RecipientID,
				LastMsg:   msg.Text,
				LastMsgAt: msg.CreatedAt,
			},
		})
		return
	}

	// Two distinct events: the recipient may have the room open (live
	// append) independently of needing a background notification.
	recipient := realtime.UserChannel(msg.RecipientID)
	p.registry.Publish(recipient, realtime.Event{Type: realtime.EventMessageToRoom, Payload: msg})
	p.registry.Publish(recipient, realtime.Event{Type: realtime.EventNotifyMessage, Payload: msg})

	if p.offline != nil && !p.registry.UserOnline(msg.RecipientID) {
		go p.offline.NotifyNewMessage(msg.RecipientID, *msg)
	}

	p.debouncer.NoteLastMessage(msg.RoomID, *msg)
	p.debouncer.ScheduleIfAbsent(msg.RoomID, p.window, p.fireSummary)
}

// fireSummary publishes one debounced chat-list update to each side of the
// room, carrying whichever message was last recorded when the timer fired.
func (p *Pipeline) fireSummary(last model.Message) {
	p.registry.Publish(realtime.UserChannel(last.SenderID), realtime.Event{
		Type: realtime.EventUpdateChatSummary,
		Payload: model.ChatSummary{
			ID:        last.RecipientID,
			LastMsg:   last.Text,
			LastMsgAt: last.CreatedAt,
		},
	})
	p.registry.Publish(realtime.UserChannel(last.RecipientID), realtime.Event{
		Type: realtime.EventUpdateChatSummary,
		Payload: model.ChatSummary{
			ID:        last.SenderID,
			LastMsg:   last.Text,
			LastMsgAt: last.CreatedAt,
		},
	})
}

// MarkMessagesRead marks the batch read and publishes one receipt per
// updated message to the room channel. The result is aggregate: either the
// whole batch is marked or the caller sees failure.
func (p *Pipeline) MarkMessagesRead(ids []string, roomID string) bool {
	updated, err := p.reads.MarkRead(ids, roomID)
	if err != nil {
		p.logger.Error("mark read", "room", roomID, "error", err)
		return false
	}

	room := realtime.RoomChannel(roomID)
	for i := range updated {
		p.registry.Publish(room, realtime.Event{Type: realtime.EventMessageReadInRoom, Payload: updated[i]})
	}
	return true
}
