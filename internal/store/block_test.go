package store

import (
	"testing"

	"github.com/chatjam/chatjam/internal/database"
)

func setupBlockTestDB(t *testing.T) *BlockStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewBlockStore(db)
}

func TestBlockIsDirectional(t *testing.T) {
	bs := setupBlockTestDB(t)

	if err := bs.Block("bob", "alice"); err != nil {
		t.Fatalf("block: %v", err)
	}

	blocked, err := bs.IsBlocked("bob", "alice")
	if err != nil {
		t.Fatalf("is blocked: %v", err)
	}
	if !blocked {
		t.Error("bob should have alice blocked")
	}

	reverse, _ := bs.IsBlocked("alice", "bob")
	if reverse {
		t.Error("block must not apply in the reverse direction")
	}
}

func TestBlockIdempotent(t *testing.T) {
	bs := setupBlockTestDB(t)

	if err := bs.Block("bob", "alice"); err != nil {
		t.Fatalf("block: %v", err)
	}
	if err := bs.Block("bob", "alice"); err != nil {
		t.Fatalf("second block should be a no-op: %v", err)
	}
}

func TestUnblockTakesEffect(t *testing.T) {
	bs := setupBlockTestDB(t)

	bs.Block("bob", "alice")
	if err := bs.Unblock("bob", "alice"); err != nil {
		t.Fatalf("unblock: %v", err)
	}

	blocked, _ := bs.IsBlocked("bob", "alice")
	if blocked {
		t.Error("unblock should take effect immediately")
	}

	// Unblocking a non-existent relationship is fine
	if err := bs.Unblock("bob", "carol"); err != nil {
		t.Errorf("unblock of missing relationship: %v", err)
	}
}
