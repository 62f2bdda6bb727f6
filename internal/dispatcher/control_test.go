package dispatcher

import (
	"log/slog"
	"testing"

	"github.com/chatjam/chatjam/internal/model"
)

func TestSetModePersistsAndForwards(t *testing.T) {
	store := newMemStorage()
	c := NewController(store, slog.Default())
	ch := make(chan ControlMessage, 1)
	c.AttachWorker(ch)

	if err := c.SetMode(model.ModeQuiet); err != nil {
		t.Fatalf("set mode: %v", err)
	}

	if v, _ := store.Get(modeKey); v != model.ModeQuiet {
		t.Errorf("stored mode = %q, want quiet", v)
	}

	select {
	case msg := <-ch:
		if msg.Type != ControlSetMode || msg.Mode != model.ModeQuiet {
			t.Errorf("control message = %+v", msg)
		}
	default:
		t.Fatal("no control message forwarded")
	}
}

func TestSetModeRejectsInvalidValue(t *testing.T) {
	c := NewController(newMemStorage(), slog.Default())

	if err := c.SetMode("loud"); err == nil {
		t.Fatal("expected error for invalid mode")
	}
}

func TestPendingControlMessageDeliveredOnAttach(t *testing.T) {
	store := newMemStorage()
	c := NewController(store, slog.Default())

	// Decision made while no worker controls the channel
	if err := c.SetMode(model.ModeQuiet); err != nil {
		t.Fatalf("set mode: %v", err)
	}
	// A newer decision supersedes the parked one
	if err := c.SetMode(model.ModeAlert); err != nil {
		t.Fatalf("set mode: %v", err)
	}

	ch := make(chan ControlMessage, 2)
	c.AttachWorker(ch)

	select {
	case msg := <-ch:
		if msg.Mode != model.ModeAlert {
			t.Errorf("flushed mode = %q, want the latest (alert)", msg.Mode)
		}
	default:
		t.Fatal("parked control message was not flushed on attach")
	}

	select {
	case extra := <-ch:
		t.Errorf("only the latest decision should flush, got extra %+v", extra)
	default:
	}
}

func TestToggleFlipsMode(t *testing.T) {
	c := NewController(newMemStorage(), slog.Default())
	c.AttachWorker(make(chan ControlMessage, 4))

	if c.Mode() != model.ModeAlert {
		t.Fatalf("initial mode = %q, want alert", c.Mode())
	}

	next, err := c.Toggle()
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if next != model.ModeQuiet {
		t.Errorf("after first toggle = %q, want quiet", next)
	}

	next, _ = c.Toggle()
	if next != model.ModeAlert {
		t.Errorf("after second toggle = %q, want alert", next)
	}
}

func TestDetachParksSubsequentTransitions(t *testing.T) {
	c := NewController(newMemStorage(), slog.Default())
	ch := make(chan ControlMessage, 4)
	c.AttachWorker(ch)
	c.DetachWorker()

	c.SetMode(model.ModeQuiet)

	select {
	case msg := <-ch:
		t.Errorf("detached channel received %+v", msg)
	default:
	}

	ch2 := make(chan ControlMessage, 4)
	c.AttachWorker(ch2)
	select {
	case msg := <-ch2:
		if msg.Mode != model.ModeQuiet {
			t.Errorf("flushed mode = %q, want quiet", msg.Mode)
		}
	default:
		t.Fatal("transition made while detached was not flushed")
	}
}
