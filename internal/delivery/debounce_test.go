package delivery

import (
	"testing"
	"time"

	"github.com/chatjam/chatjam/internal/model"
)

const testWindow = 25 * time.Millisecond

func waitForFire(t *testing.T, fired chan model.Message) model.Message {
	t.Helper()
	select {
	case m := <-fired:
		return m
	case <-time.After(20 * testWindow):
		t.Fatal("timer never fired")
		return model.Message{}
	}
}

func TestDebouncerFiresWithLatestMessage(t *testing.T) {
	d := NewDebouncer()
	fired := make(chan model.Message, 4)

	d.NoteLastMessage("room1", model.Message{ID: "m1", Text: "first"})
	d.ScheduleIfAbsent("room1", testWindow, func(last model.Message) { fired <- last })

	// Later messages in the burst overwrite the recording but do not start
	// another timer.
	d.NoteLastMessage("room1", model.Message{ID: "m2", Text: "second"})
	d.ScheduleIfAbsent("room1", testWindow, func(last model.Message) { fired <- last })
	d.NoteLastMessage("room1", model.Message{ID: "m3", Text: "third"})
	d.ScheduleIfAbsent("room1", testWindow, func(last model.Message) { fired <- last })

	got := waitForFire(t, fired)
	if got.ID != "m3" {
		t.Errorf("fired with %s, want m3 (the last of the burst)", got.ID)
	}

	// Exactly one fire for the whole burst
	select {
	case extra := <-fired:
		t.Errorf("unexpected second fire with %s", extra.ID)
	case <-time.After(4 * testWindow):
	}
}

func TestDebouncerClearsStateAfterFire(t *testing.T) {
	d := NewDebouncer()
	fired := make(chan model.Message, 2)

	d.NoteLastMessage("room1", model.Message{ID: "m1"})
	d.ScheduleIfAbsent("room1", testWindow, func(last model.Message) { fired <- last })
	waitForFire(t, fired)

	if n := d.ActiveTimers(); n != 0 {
		t.Fatalf("active timers = %d, want 0 after fire", n)
	}

	// A new burst schedules fresh
	d.NoteLastMessage("room1", model.Message{ID: "m2"})
	d.ScheduleIfAbsent("room1", testWindow, func(last model.Message) { fired <- last })

	if got := waitForFire(t, fired); got.ID != "m2" {
		t.Errorf("second burst fired with %s, want m2", got.ID)
	}
}

func TestDebouncerRoomsAreIndependent(t *testing.T) {
	d := NewDebouncer()
	fired := make(chan model.Message, 4)

	d.NoteLastMessage("room1", model.Message{ID: "a", RoomID: "room1"})
	d.ScheduleIfAbsent("room1", testWindow, func(last model.Message) { fired <- last })
	d.NoteLastMessage("room2", model.Message{ID: "b", RoomID: "room2"})
	d.ScheduleIfAbsent("room2", testWindow, func(last model.Message) { fired <- last })

	got := map[string]bool{}
	got[waitForFire(t, fired).RoomID] = true
	got[waitForFire(t, fired).RoomID] = true

	if !got["room1"] || !got["room2"] {
		t.Errorf("expected one fire per room, got %v", got)
	}
}

func TestDebouncerCancel(t *testing.T) {
	d := NewDebouncer()
	fired := make(chan model.Message, 1)

	d.NoteLastMessage("room1", model.Message{ID: "m1"})
	d.ScheduleIfAbsent("room1", testWindow, func(last model.Message) { fired <- last })
	d.Cancel("room1")

	select {
	case m := <-fired:
		t.Errorf("cancelled timer fired with %s", m.ID)
	case <-time.After(4 * testWindow):
	}

	// Cancel of an unscheduled room is a no-op
	d.Cancel("room2")
}
