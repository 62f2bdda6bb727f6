package dispatcher

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/chatjam/chatjam/internal/model"
)

// memStorage is an in-memory Storage for tests.
type memStorage struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemStorage() *memStorage {
	return &memStorage{data: make(map[string]string)}
}

func (m *memStorage) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	shown     []Notification
	dismissed []string
}

func (f *fakeNotifier) Show(n Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shown = append(f.shown, n)
	return nil
}

func (f *fakeNotifier) Dismiss(tag string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dismissed = append(f.dismissed, tag)
}

func (f *fakeNotifier) shownCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.shown)
}

type fakeRouter struct {
	hasClient bool
	focused   []string
	opened    []string
}

func (f *fakeRouter) FocusExisting(url string) bool {
	if f.hasClient {
		f.focused = append(f.focused, url)
		return true
	}
	return false
}

func (f *fakeRouter) OpenNew(url string) {
	f.opened = append(f.opened, url)
}

func TestQuietModeSuppressesNotification(t *testing.T) {
	store := newMemStorage()
	store.Set(modeKey, model.ModeQuiet)
	notifier := &fakeNotifier{}
	w := NewWorker(store, notifier, &fakeRouter{}, slog.Default())

	w.OnPushReceived([]byte(`{"body":"New message","url":"/chat/42"}`))

	if notifier.shownCount() != 0 {
		t.Fatal("quiet mode must suppress all UI")
	}
}

func TestAlertModeRendersNotification(t *testing.T) {
	store := newMemStorage()
	store.Set(modeKey, model.ModeAlert)
	notifier := &fakeNotifier{}
	w := NewWorker(store, notifier, &fakeRouter{}, slog.Default())

	w.OnPushReceived([]byte(`{"body":"New message","url":"/chat/42"}`))

	if notifier.shownCount() != 1 {
		t.Fatalf("expected 1 notification, got %d", notifier.shownCount())
	}
	n := notifier.shown[0]
	if n.URL != "/chat/42" {
		t.Errorf("embedded url = %q, want %q", n.URL, "/chat/42")
	}
	if n.Body != "New message" {
		t.Errorf("body = %q, want %q", n.Body, "New message")
	}
	if n.Title != notificationTitle {
		t.Errorf("title = %q, want %q", n.Title, notificationTitle)
	}
	if len(n.Actions) != 2 || n.Actions[0] != ActionOpen || n.Actions[1] != ActionIgnore {
		t.Errorf("actions = %v, want [open ignore]", n.Actions)
	}
}

func TestModeDefaultsToAlert(t *testing.T) {
	// Fresh storage, nothing ever set
	notifier := &fakeNotifier{}
	w := NewWorker(newMemStorage(), notifier, &fakeRouter{}, slog.Default())

	w.OnPushReceived([]byte(`{"body":"hi"}`))

	if notifier.shownCount() != 1 {
		t.Fatal("first-run default must be alert")
	}
}

func TestPushPayloadDefaults(t *testing.T) {
	notifier := &fakeNotifier{}
	w := NewWorker(newMemStorage(), notifier, &fakeRouter{}, slog.Default())

	w.OnPushReceived(nil)

	if notifier.shownCount() != 1 {
		t.Fatal("empty payload still renders with defaults")
	}
	n := notifier.shown[0]
	if n.Body != defaultBody {
		t.Errorf("body = %q, want default", n.Body)
	}
	if n.URL != defaultURL {
		t.Errorf("url = %q, want default", n.URL)
	}
}

func TestModeSurvivesWorkerRestart(t *testing.T) {
	store := newMemStorage()
	notifier := &fakeNotifier{}

	// First worker receives a SET_MODE and is then evicted
	w1 := NewWorker(store, notifier, &fakeRouter{}, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { w1.Run(ctx); close(done) }()

	w1.Control() <- ControlMessage{Type: ControlSetMode, Mode: model.ModeQuiet}

	// Wait for the worker to persist the mode
	deadline := time.After(time.Second)
	for {
		if v, _ := store.Get(modeKey); v == model.ModeQuiet {
			break
		}
		select {
		case <-deadline:
			t.Fatal("worker never persisted the mode")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	// A brand-new worker over the same storage recovers the decision
	w2 := NewWorker(store, notifier, &fakeRouter{}, slog.Default())
	w2.OnPushReceived([]byte(`{"body":"hi"}`))

	if notifier.shownCount() != 0 {
		t.Fatal("restarted worker must recover quiet mode from storage")
	}
}

func TestClickOpenFocusesExistingClient(t *testing.T) {
	notifier := &fakeNotifier{}
	router := &fakeRouter{hasClient: true}
	w := NewWorker(newMemStorage(), notifier, router, slog.Default())

	w.OnNotificationClicked(ActionOpen, "/chat/42")

	if len(router.focused) != 1 || router.focused[0] != "/chat/42" {
		t.Errorf("focused = %v, want [/chat/42]", router.focused)
	}
	if len(router.opened) != 0 {
		t.Errorf("should not open a new client when one exists, opened %v", router.opened)
	}
	if len(notifier.dismissed) != 1 {
		t.Error("notification must be dismissed after click")
	}
}

func TestClickOpenWithNoClientOpensNew(t *testing.T) {
	router := &fakeRouter{hasClient: false}
	w := NewWorker(newMemStorage(), &fakeNotifier{}, router, slog.Default())

	w.OnNotificationClicked(ActionOpen, "/chat/42")

	if len(router.opened) != 1 || router.opened[0] != "/chat/42" {
		t.Errorf("opened = %v, want [/chat/42]", router.opened)
	}
}

func TestClickIgnoreOnlyDismisses(t *testing.T) {
	notifier := &fakeNotifier{}
	router := &fakeRouter{hasClient: true}
	w := NewWorker(newMemStorage(), notifier, router, slog.Default())

	w.OnNotificationClicked(ActionIgnore, "/chat/42")

	if len(router.focused) != 0 || len(router.opened) != 0 {
		t.Error("ignore must not navigate")
	}
	if len(notifier.dismissed) != 1 {
		t.Error("ignore must still dismiss the notification")
	}
}
