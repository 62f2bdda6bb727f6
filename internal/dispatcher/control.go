package dispatcher

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/chatjam/chatjam/internal/model"
)

// modeKey is the storage key for the quiet-mode value.
const modeKey = "quietMode"

// ControlMessage crosses the foreground/background boundary. SET_MODE is the
// only type today.
type ControlMessage struct {
	Type string `json:"type"`
	Mode string `json:"mode"`
}

const ControlSetMode = "SET_MODE"

// Controller is the foreground side of the quiet-mode state machine. Every
// transition persists to durable storage first and then notifies the
// background worker over the control channel. A transition made before any
// worker controls the channel is parked and re-sent when one attaches.
type Controller struct {
	mu      sync.Mutex
	store   Storage
	target  chan<- ControlMessage
	pending *ControlMessage
	logger  *slog.Logger
}

func NewController(store Storage, logger *slog.Logger) *Controller {
	return &Controller{store: store, logger: logger}
}

// Mode returns the current quiet-mode value, defaulting to alert when the
// store is empty or unreadable.
func (c *Controller) Mode() string {
	v, err := c.store.Get(modeKey)
	if err != nil {
		c.logger.Warn("read quiet mode", "error", err)
		return model.ModeAlert
	}
	if !model.ValidMode(v) {
		return model.ModeAlert
	}
	return v
}

// Toggle flips between alert and quiet and returns the new mode.
func (c *Controller) Toggle() (string, error) {
	next := model.ModeQuiet
	if c.Mode() == model.ModeQuiet {
		next = model.ModeAlert
	}
	if err := c.SetMode(next); err != nil {
		return "", err
	}
	return next, nil
}

// SetMode persists the value and forwards it to the background worker. If no
// worker is attached yet the message is held; only the most recent value is
// worth delivering, so a newer SetMode overwrites an older parked one.
func (c *Controller) SetMode(mode string) error {
	if !model.ValidMode(mode) {
		return fmt.Errorf("invalid mode %q", mode)
	}
	if err := c.store.Set(modeKey, mode); err != nil {
		return fmt.Errorf("persist mode: %w", err)
	}

	msg := ControlMessage{Type: ControlSetMode, Mode: mode}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.target == nil {
		c.pending = &msg
		return nil
	}
	c.sendLocked(msg)
	return nil
}

// AttachWorker points the controller at a live worker's control channel and
// flushes any transition made while no worker was in control.
func (c *Controller) AttachWorker(ch chan<- ControlMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.target = ch
	if c.pending != nil {
		c.sendLocked(*c.pending)
		c.pending = nil
	}
}

// DetachWorker clears the target, e.g. when the background worker is
// evicted. Subsequent transitions park until the next attach.
func (c *Controller) DetachWorker() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = nil
}

func (c *Controller) sendLocked(msg ControlMessage) {
	select {
	case c.target <- msg:
	default:
		// Worker is wedged; storage already has the truth and the worker
		// re-reads it on every push, so dropping here loses nothing.
		c.logger.Warn("control channel full, dropping", "mode", msg.Mode)
	}
}
