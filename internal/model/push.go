package model

import "time"

// PushSubscription is one browser's credential for receiving push payloads on
// behalf of a user. Endpoint is unique per browser; re-subscribing from the
// same browser updates the keys in place.
type PushSubscription struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Endpoint  string    `json:"endpoint"`
	P256dhKey string    `json:"p256dh_key"`
	AuthKey   string    `json:"auth_key"`
	CreatedAt time.Time `json:"created_at"`
}

// Quiet-mode values. Alert renders notifications, quiet suppresses them.
// Stored as plain strings in the client's durable store.
const (
	ModeAlert = "alert"
	ModeQuiet = "quiet"
)

// ValidMode reports whether s is a recognized quiet-mode value.
func ValidMode(s string) bool {
	return s == ModeAlert || s == ModeQuiet
}
