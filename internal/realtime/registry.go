package realtime

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
)

// Channel is a named broadcast target: "user_<id>" for personal events,
// "room_<id>" for in-room events.
type Channel string

// UserChannel names the personal channel for a user.
func UserChannel(userID string) Channel { return Channel("user_" + userID) }

// RoomChannel names the shared channel for a room.
func RoomChannel(roomID string) Channel { return Channel("room_" + roomID) }

// Sink receives marshaled event frames for one connection. Send must not
// block; implementations drop when the connection cannot keep up.
type Sink interface {
	Send(data []byte)
}

type membership struct {
	userID string
	rooms  map[string]struct{}
	sink   Sink
}

// Registry tracks which live connection belongs to which user and which
// rooms each connection has joined. It is the only cross-connection shared
// mutable state on the server, guarded by a single lock.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]*membership
	byUser map[string]map[string]struct{} // user id -> connection ids
	byRoom map[string]map[string]struct{} // room id -> connection ids
	logger *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		conns:  make(map[string]*membership),
		byUser: make(map[string]map[string]struct{}),
		byRoom: make(map[string]map[string]struct{}),
		logger: logger,
	}
}

// Connect adds a connection with no user binding yet.
func (r *Registry) Connect(connID string, sink Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[connID] = &membership{rooms: make(map[string]struct{}), sink: sink}
}

// Register binds a connection to a user, subscribing it to that user's
// personal channel. Re-registering with the same user is a no-op;
// re-registering with a different user rebinds.
func (r *Registry) Register(connID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.conns[connID]
	if !ok {
		r.logger.Warn("register on unknown connection", "conn", connID)
		return
	}
	if m.userID == userID {
		return
	}
	if m.userID != "" {
		r.dropFromSet(r.byUser, m.userID, connID)
	}
	m.userID = userID
	r.addToSet(r.byUser, userID, connID)
}

// JoinRoom subscribes a connection to a room channel. Idempotent.
func (r *Registry) JoinRoom(connID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.conns[connID]
	if !ok {
		r.logger.Warn("joinRoom on unknown connection", "conn", connID)
		return
	}
	if _, in := m.rooms[roomID]; in {
		return
	}
	m.rooms[roomID] = struct{}{}
	r.addToSet(r.byRoom, roomID, connID)
}

// LeaveRoom unsubscribes a connection from a room channel. No-op if the
// connection never joined.
func (r *Registry) LeaveRoom(connID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.conns[connID]
	if !ok {
		return
	}
	if _, in := m.rooms[roomID]; !in {
		return
	}
	delete(m.rooms, roomID)
	r.dropFromSet(r.byRoom, roomID, connID)
}

// Disconnect removes a connection from every channel it was part of.
func (r *Registry) Disconnect(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.conns[connID]
	if !ok {
		return
	}
	if m.userID != "" {
		r.dropFromSet(r.byUser, m.userID, connID)
	}
	for roomID := range m.rooms {
		r.dropFromSet(r.byRoom, roomID, connID)
	}
	delete(r.conns, connID)
}

// Publish delivers an event to every connection subscribed to the channel.
// A channel with no subscribers is the offline case and is silently skipped;
// a malformed channel name is logged and skipped.
func (r *Registry) Publish(ch Channel, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		r.logger.Error("marshal event", "type", ev.Type, "error", err)
		return
	}

	r.mu.RLock()
	sinks := r.resolveLocked(ch)
	r.mu.RUnlock()

	for _, s := range sinks {
		s.Send(data)
	}
}

// SubscriberCount returns how many connections are subscribed to a channel.
func (r *Registry) SubscriberCount(ch Channel) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.resolveLocked(ch))
}

// UserOnline reports whether the user has at least one live connection.
func (r *Registry) UserOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

// ConnectionCount returns the number of live connections.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Registry) resolveLocked(ch Channel) []Sink {
	name := string(ch)
	var ids map[string]struct{}
	switch {
	case strings.HasPrefix(name, "user_"):
		ids = r.byUser[strings.TrimPrefix(name, "user_")]
	case strings.HasPrefix(name, "room_"):
		ids = r.byRoom[strings.TrimPrefix(name, "room_")]
	default:
		r.logger.Warn("publish to malformed channel", "channel", name)
		return nil
	}

	sinks := make([]Sink, 0, len(ids))
	for connID := range ids {
		if m, ok := r.conns[connID]; ok {
			sinks = append(sinks, m.sink)
		}
	}
	return sinks
}

func (r *Registry) addToSet(set map[string]map[string]struct{}, key, connID string) {
	if set[key] == nil {
		set[key] = make(map[string]struct{})
	}
	set[key][connID] = struct{}{}
}

func (r *Registry) dropFromSet(set map[string]map[string]struct{}, key, connID string) {
	if s, ok := set[key]; ok {
		delete(s, connID)
		if len(s) == 0 {
			delete(set, key)
		}
	}
}
