package dispatcher

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/chatjam/chatjam/internal/model"
)

// Defaults used when a push payload arrives with fields missing, matching
// what the web client renders.
const (
	notificationTitle = "New Message"
	defaultBody       = "New message has arrived."
	defaultURL        = "/chat"
	notificationIcon  = "/chatjam.png"
	notificationTag   = "message-notification"
)

// Click action identifiers carried on rendered notifications.
const (
	ActionOpen   = "open"
	ActionIgnore = "ignore"
)

// Notification is one OS-level notification the worker asks the platform to
// render. URL is the private data consulted on click.
type Notification struct {
	Title   string
	Body    string
	Icon    string
	Badge   string
	Tag     string
	URL     string
	Actions []string
}

// Notifier renders and dismisses system notifications.
type Notifier interface {
	Show(n Notification) error
	Dismiss(tag string)
}

// ClientRouter navigates the user's open clients on notification click.
// FocusExisting returns false when no client window exists.
type ClientRouter interface {
	FocusExisting(url string) bool
	OpenNew(url string)
}

// Worker is the background half of the notification dispatcher. It may be
// evicted and restarted between push events at any time, so it holds no
// in-memory mode state: every decision re-reads durable storage.
type Worker struct {
	store    Storage
	notifier Notifier
	clients  ClientRouter
	control  chan ControlMessage
	logger   *slog.Logger
}

func NewWorker(store Storage, notifier Notifier, clients ClientRouter, logger *slog.Logger) *Worker {
	return &Worker{
		store:    store,
		notifier: notifier,
		clients:  clients,
		control:  make(chan ControlMessage, 8),
		logger:   logger,
	}
}

// Control returns the channel a Controller attaches to.
func (w *Worker) Control() chan<- ControlMessage {
	return w.control
}

// Run consumes control messages until the context ends. Safe to call again
// after a restart; state comes from storage, not from the previous run.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case msg := <-w.control:
			w.handleControl(msg)
		case <-ctx.Done():
			return
		}
	}
}

func (w *Worker) handleControl(msg ControlMessage) {
	if msg.Type != ControlSetMode || !model.ValidMode(msg.Mode) {
		w.logger.Warn("ignoring control message", "type", msg.Type, "mode", msg.Mode)
		return
	}
	if err := w.store.Set(modeKey, msg.Mode); err != nil {
		w.logger.Error("persist mode from control", "error", err)
	}
}

// mode reads the current quiet-mode value from durable storage, defaulting
// to alert when unset or unreadable.
func (w *Worker) mode() string {
	v, err := w.store.Get(modeKey)
	if err != nil {
		w.logger.Warn("read quiet mode", "error", err)
		return model.ModeAlert
	}
	if !model.ValidMode(v) {
		return model.ModeAlert
	}
	return v
}

// OnPushReceived handles one inbound push payload. Quiet mode suppresses all
// UI; alert mode renders a notification with open/ignore actions and the
// target URL embedded for click routing.
func (w *Worker) OnPushReceived(payload []byte) {
	if w.mode() == model.ModeQuiet {
		return
	}

	var data struct {
		Body string `json:"body"`
		URL  string `json:"url"`
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &data); err != nil {
			w.logger.Warn("malformed push payload", "error", err)
		}
	}
	if data.Body == "" {
		data.Body = defaultBody
	}
	if data.URL == "" {
		data.URL = defaultURL
	}

	n := Notification{
		Title:   notificationTitle,
		Body:    data.Body,
		Icon:    notificationIcon,
		Badge:   notificationIcon,
		Tag:     notificationTag,
		URL:     data.URL,
		Actions: []string{ActionOpen, ActionIgnore},
	}
	if err := w.notifier.Show(n); err != nil {
		w.logger.Error("show notification", "error", err)
	}
}

// OnNotificationClicked routes a click on a rendered notification. "open"
// brings an existing client to the embedded URL or opens a new one; "ignore"
// just dismisses. The notification is dismissed in either case.
func (w *Worker) OnNotificationClicked(action, embeddedURL string) {
	defer w.notifier.Dismiss(notificationTag)

	if action != ActionOpen {
		return
	}

	url := embeddedURL
	if url == "" {
		url = defaultURL
	}
	if !w.clients.FocusExisting(url) {
		w.clients.OpenNew(url)
	}
}
