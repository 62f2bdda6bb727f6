package model

import "time"

// Message is the durable chat message record. The read flag is the only
// field mutated after insert; deletion is a soft flag owned elsewhere.
type Message struct {
	ID          string    `json:"id"`
	RoomID      string    `json:"room_id"`
	SenderID    string    `json:"user_id"`
	RecipientID string    `json:"friend_id"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"created_at"`
	IsRead      bool      `json:"is_read"`
	IsDeleted   bool      `json:"is_deleted"`
}

// PendingMessage is a client-side draft submitted over the wire. TempID is
// generated by the client so the sender's UI can reconcile its optimistic
// message against the acknowledgment.
type PendingMessage struct {
	TempID      string    `json:"id"`
	RoomID      string    `json:"room_id"`
	SenderID    string    `json:"user_id"`
	RecipientID string    `json:"friend_id"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"created_at"`
}

// Ack statuses returned to the sender for one submitted message.
const (
	AckSent   = "sent"
	AckFailed = "failed"
)

// Ack is the sender-visible acknowledgment mapping the client temp id to the
// server-assigned identity. ServerID and ServerCreatedAt are empty on failure.
type Ack struct {
	Status          string    `json:"status"`
	TempID          string    `json:"tempId"`
	ServerID        string    `json:"serverId,omitempty"`
	ServerCreatedAt time.Time `json:"serverCreatedAt,omitzero"`
}

// ChatSummary is the debounced chat-list update delivered to each
// participant's personal channel. ID names the counterpart, not the receiver.
type ChatSummary struct {
	ID        string    `json:"id"`
	LastMsg   string    `json:"lastMsg"`
	LastMsgAt time.Time `json:"lastMsgAt"`
}
