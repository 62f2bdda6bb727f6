package store

import (
	"database/sql"
	"fmt"
)

// BlockStore holds directional block relationships. The delivery pipeline
// queries it fresh on every message; results are never cached, so a block or
// unblock takes effect on the very next send.
type BlockStore struct {
	db *sql.DB
}

func NewBlockStore(db *sql.DB) *BlockStore {
	return &BlockStore{db: db}
}

// IsBlocked reports whether blockerID has blocked blockedID. The relation is
// directional: A blocking B says nothing about B blocking A.
func (s *BlockStore) IsBlocked(blockerID, blockedID string) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM blocks WHERE blocker_id = ? AND blocked_id = ?`,
		blockerID, blockedID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query block: %w", err)
	}
	return n > 0, nil
}

// Block records that blockerID has blocked blockedID. Idempotent.
func (s *BlockStore) Block(blockerID, blockedID string) error {
	_, err := s.db.Exec(
		`INSERT INTO blocks (blocker_id, blocked_id) VALUES (?, ?)
		 ON CONFLICT(blocker_id, blocked_id) DO NOTHING`,
		blockerID, blockedID,
	)
	if err != nil {
		return fmt.Errorf("insert block: %w", err)
	}
	return nil
}

// Unblock removes the relationship. No-op if it does not exist.
func (s *BlockStore) Unblock(blockerID, blockedID string) error {
	_, err := s.db.Exec(
		`DELETE FROM blocks WHERE blocker_id = ? AND blocked_id = ?`,
		blockerID, blockedID,
	)
	if err != nil {
		return fmt.Errorf("delete block: %w", err)
	}
	return nil
}
