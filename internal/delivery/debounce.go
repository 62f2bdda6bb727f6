package delivery

import (
	"sync"
	"time"

	"github.com/chatjam/chatjam/internal/model"
)

// Debouncer coalesces a burst of messages in one room into a single summary
// fire. State is last-write-wins: at most one live timer and one recorded
// message per room. The delay runs from the first message of a burst, so a
// steady stream still surfaces a summary once per window.
type Debouncer struct {
	mu      sync.Mutex
	pending map[string]model.Message
	timers  map[string]*time.Timer
}

func NewDebouncer() *Debouncer {
	return &Debouncer{
		pending: make(map[string]model.Message),
		timers:  make(map[string]*time.Timer),
	}
}

// NoteLastMessage records msg as the latest known message for the room,
// overwriting any previously recorded one.
func (d *Debouncer) NoteLastMessage(roomID string, msg model.Message) {
	d.mu.Lock()
	d.pending[roomID] = msg
	d.mu.Unlock()
}

// ScheduleIfAbsent starts a timer for the room unless one is already
// outstanding. When it fires, onFire receives whatever NoteLastMessage most
// recently recorded, and both the recording and the timer are cleared.
func (d *Debouncer) ScheduleIfAbsent(roomID string, window time.Duration, onFire func(last model.Message)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.timers[roomID]; exists {
		return
	}

	d.timers[roomID] = time.AfterFunc(window, func() {
		d.mu.Lock()
		last, ok := d.pending[roomID]
		delete(d.pending, roomID)
		delete(d.timers, roomID)
		d.mu.Unlock()

		// The timer may race a Cancel that already cleared the recording.
		if ok {
			onFire(last)
		}
	})
}

// Cancel stops any outstanding timer for the room and discards the recorded
// message. No-op if nothing is scheduled.
func (d *Debouncer) Cancel(roomID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[roomID]; ok {
		t.Stop()
		delete(d.timers, roomID)
	}
	delete(d.pending, roomID)
}

// ActiveTimers returns the number of rooms with an outstanding timer.
func (d *Debouncer) ActiveTimers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}
