package store

import (
	"testing"

	"github.com/chatjam/chatjam/internal/database"
)

func setupPushTestDB(t *testing.T) *PushStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPushStore(db)
}

func TestUpsertSubscription(t *testing.T) {
	ps := setupPushTestDB(t)

	sub, err := ps.Upsert("alice", "https://push.example.com/sub1", "p256dh1", "auth1")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if sub.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if sub.UserID != "alice" {
		t.Errorf("user_id = %q, want %q", sub.UserID, "alice")
	}
}

func TestUpsertReusesEndpoint(t *testing.T) {
	ps := setupPushTestDB(t)

	sub1, _ := ps.Upsert("alice", "https://push.example.com/sub1", "key1", "auth1")
	sub2, err := ps.Upsert("alice", "https://push.example.com/sub1", "key2", "auth2")
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if sub2.ID != sub1.ID {
		t.Errorf("expected same ID on re-subscribe, got %d != %d", sub2.ID, sub1.ID)
	}
	if sub2.P256dhKey != "key2" {
		t.Errorf("p256dh = %q, want %q", sub2.P256dhKey, "key2")
	}

	subs, _ := ps.ListByUser("alice")
	if len(subs) != 1 {
		t.Errorf("expected 1 subscription, got %d", len(subs))
	}
}

func TestDeleteByEndpoint(t *testing.T) {
	ps := setupPushTestDB(t)

	ps.Upsert("alice", "https://push.example.com/sub1", "key", "auth")
	if err := ps.DeleteByEndpoint("https://push.example.com/sub1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	sub, _ := ps.GetByEndpoint("https://push.example.com/sub1")
	if sub != nil {
		t.Error("subscription should be gone")
	}

	// Deleting an unknown endpoint is a no-op
	if err := ps.DeleteByEndpoint("https://push.example.com/unknown"); err != nil {
		t.Errorf("delete of unknown endpoint: %v", err)
	}
}

func TestListByUser(t *testing.T) {
	ps := setupPushTestDB(t)

	ps.Upsert("alice", "https://push.example.com/a1", "k", "a")
	ps.Upsert("alice", "https://push.example.com/a2", "k", "a")
	ps.Upsert("bob", "https://push.example.com/b1", "k", "a")

	subs, err := ps.ListByUser("alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 2 {
		t.Errorf("expected 2 subscriptions for alice, got %d", len(subs))
	}
}
