package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/chatjam/chatjam/internal/model"
	"github.com/google/uuid"
)

// MessageStore is the durable message adapter. Insert and MarkRead are the
// only mutations the delivery subsystem performs; soft deletion is owned by
// the history API and only read here.
type MessageStore struct {
	db *sql.DB
}

func NewMessageStore(db *sql.DB) *MessageStore {
	return &MessageStore{db: db}
}

// Insert persists a new message and returns the stored record with its
// server-assigned id and timestamp. The server clock is authoritative; the
// client-supplied timestamp is accepted on the wire but never stored, so a
// client with a skewed clock cannot reorder history.
func (s *MessageStore) Insert(roomID, text, senderID, recipientID string, _ time.Time) (*model.Message, error) {
	createdAt := time.Now().UTC()
	msg := &model.Message{
		ID:          uuid.NewString(),
		RoomID:      roomID,
		SenderID:    senderID,
		RecipientID: recipientID,
		Text:        text,
		CreatedAt:   createdAt,
	}

	_, err := s.db.Exec(
		`INSERT INTO messages (id, room_id, sender_id, recipient_id, text, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.RoomID, msg.SenderID, msg.RecipientID, msg.Text, msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

// MarkRead flips the read flag on the given ids within one room and returns
// the updated records in created-at order. The batch is transactional: either
// every id is marked or the whole call reports failure.
func (s *MessageStore) MarkRead(ids []string, roomID string) ([]model.Message, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("mark read: begin: %w", err)
	}
	defer tx.Rollback()

	query := `UPDATE messages SET is_read = 1 WHERE room_id = ? AND id IN (?` // first placeholder
	args := []any{roomID, ids[0]}
	for _, id := range ids[1:] {
		query += ", ?"
		args = append(args, id)
	}
	query += ")"

	if _, err := tx.Exec(query, args...); err != nil {
		return nil, fmt.Errorf("mark read: update: %w", err)
	}

	msgs, err := s.getByIDsTx(tx, ids, roomID)
	if err != nil {
		return nil, fmt.Errorf("mark read: reload: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("mark read: commit: %w", err)
	}
	return msgs, nil
}

func (s *MessageStore) getByIDsTx(tx *sql.Tx, ids []string, roomID string) ([]model.Message, error) {
	query := `SELECT id, room_id, sender_id, recipient_id, text, created_at, is_read, is_deleted
	          FROM messages WHERE room_id = ? AND id IN (?`
	args := []any{roomID, ids[0]}
	for _, id := range ids[1:] {
		query += ", ?"
		args = append(args, id)
	}
	query += ") ORDER BY created_at"

	rows, err := tx.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// ListByRoom returns a room's messages in created-at order, excluding
// soft-deleted ones. Used by the history surface when a window reconnects.
func (s *MessageStore) ListByRoom(roomID string) ([]model.Message, error) {
	rows, err := s.db.Query(
		`SELECT id, room_id, sender_id, recipient_id, text, created_at, is_read, is_deleted
		 FROM messages WHERE room_id = ? AND is_deleted = 0 ORDER BY created_at`,
		roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages by room: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]model.Message, error) {
	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.RecipientID, &m.Text, &m.CreatedAt, &m.IsRead, &m.IsDeleted); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
