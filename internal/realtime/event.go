package realtime

// Server-to-client event names. These are a stable contract with the web
// client; renaming one is a breaking protocol change.
const (
	EventMessageToRoom     = "messageToRoom"     // live append for an open room
	EventNotifyMessage     = "notifyMessage"     // notification-worthy arrival
	EventUpdateChatSummary = "updateChatSummary" // debounced chat-list update
	EventMessageReadInRoom = "messageReadInRoom" // read receipt for one message

	EventSendMessageResult      = "sendMessageResult"      // ack for a sendMessage command
	EventMarkMessagesReadResult = "markMessagesReadResult" // aggregate result for a markMessagesRead command
)

// Event is one server-to-client frame.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Client-to-server command names.
const (
	CmdRegister         = "register"
	CmdJoinRoom         = "joinRoom"
	CmdLeaveRoom        = "leaveRoom"
	CmdSendMessage      = "sendMessage"
	CmdMarkMessagesRead = "markMessagesRead"
)

// Command is one client-to-server frame. Fields beyond Type are populated
// depending on the command.
type Command struct {
	Type   string `json:"type"`
	UserID string `json:"userId,omitempty"`
	RoomID string `json:"roomId,omitempty"`

	// sendMessage
	Message *PendingMessageJSON `json:"message,omitempty"`

	// markMessagesRead
	MessageIDs []string `json:"ids,omitempty"`
}

// PendingMessageJSON mirrors model.PendingMessage on the wire; kept separate
// so the wire field names stay stable independently of the model.
type PendingMessageJSON struct {
	TempID      string `json:"id"`
	RoomID      string `json:"room_id"`
	SenderID    string `json:"user_id"`
	RecipientID string `json:"friend_id"`
	Text        string `json:"text"`
	CreatedAt   string `json:"created_at,omitempty"`
}
