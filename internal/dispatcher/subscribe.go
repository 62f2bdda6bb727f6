package dispatcher

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// ErrCapabilityUnavailable means the platform lacks background-worker or
// push support. Recoverable: callers treat the feature as unavailable, not
// the client as broken.
var ErrCapabilityUnavailable = errors.New("push capability unavailable")

// Subscription is the client-held push credential.
type Subscription struct {
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

// Platform abstracts the browser-side worker and push machinery.
type Platform interface {
	SupportsWorkers() bool
	SupportsPush() bool

	// EnsureRegistration registers the background worker if it is not
	// registered yet. Idempotent.
	EnsureRegistration() error

	// GetSubscription returns the existing push subscription, or nil.
	GetSubscription() (*Subscription, error)

	// Subscribe creates a new push subscription keyed to the application
	// server's VAPID public key.
	Subscribe(vapidPublicKey string) (*Subscription, error)

	// Unsubscribe cancels the local subscription. No-op if none exists.
	Unsubscribe(endpoint string) error
}

// ServerAPI informs the chat server about subscription changes so it knows
// where to push.
type ServerAPI interface {
	SaveSubscription(userID string, sub Subscription) error
	RemoveSubscription(endpoint string) error
}

// SubscriptionManager owns the push-subscription lifecycle for one client.
type SubscriptionManager struct {
	platform Platform
	server   ServerAPI
	vapidKey string
	logger   *slog.Logger
}

func NewSubscriptionManager(platform Platform, server ServerAPI, vapidKey string, logger *slog.Logger) *SubscriptionManager {
	return &SubscriptionManager{
		platform: platform,
		server:   server,
		vapidKey: vapidKey,
		logger:   logger,
	}
}

// Subscribe ensures a worker registration and a push subscription exist and
// informs the server. An existing subscription is reused, never duplicated.
func (m *SubscriptionManager) Subscribe(userID string) error {
	if !m.platform.SupportsWorkers() || !m.platform.SupportsPush() {
		return ErrCapabilityUnavailable
	}

	if err := m.platform.EnsureRegistration(); err != nil {
		return fmt.Errorf("register worker: %w", err)
	}

	sub, err := m.platform.GetSubscription()
	if err != nil {
		return fmt.Errorf("query subscription: %w", err)
	}
	if sub == nil {
		sub, err = m.platform.Subscribe(m.vapidKey)
		if err != nil {
			return fmt.Errorf("create subscription: %w", err)
		}
		m.logger.Info("created push subscription", "user_id", userID)
	} else {
		m.logger.Debug("reusing existing push subscription", "user_id", userID)
	}

	if err := m.server.SaveSubscription(userID, *sub); err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}
	return nil
}

// Unsubscribe cancels the local subscription and tells the server to stop
// pushing. A client with no subscription is a no-op.
func (m *SubscriptionManager) Unsubscribe(userID string) error {
	if !m.platform.SupportsWorkers() || !m.platform.SupportsPush() {
		return nil
	}

	sub, err := m.platform.GetSubscription()
	if err != nil {
		return fmt.Errorf("query subscription: %w", err)
	}
	if sub == nil {
		return nil
	}

	if err := m.platform.Unsubscribe(sub.Endpoint); err != nil {
		return fmt.Errorf("cancel subscription: %w", err)
	}
	if err := m.server.RemoveSubscription(sub.Endpoint); err != nil {
		return fmt.Errorf("remove subscription: %w", err)
	}
	return nil
}

// HTTPServerAPI talks to the chat server's push REST endpoints.
type HTTPServerAPI struct {
	baseURL string
	client  *http.Client
}

func NewHTTPServerAPI(baseURL string, client *http.Client) *HTTPServerAPI {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPServerAPI{baseURL: baseURL, client: client}
}

func (a *HTTPServerAPI) SaveSubscription(userID string, sub Subscription) error {
	body, err := json.Marshal(map[string]any{
		"user_id":      userID,
		"subscription": sub,
	})
	if err != nil {
		return fmt.Errorf("marshal subscription: %w", err)
	}

	resp, err := a.client.Post(a.baseURL+"/api/push/subscribe", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post subscription: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("subscribe endpoint returned %d", resp.StatusCode)
	}
	return nil
}

func (a *HTTPServerAPI) RemoveSubscription(endpoint string) error {
	body, err := json.Marshal(map[string]string{"endpoint": endpoint})
	if err != nil {
		return fmt.Errorf("marshal endpoint: %w", err)
	}

	req, err := http.NewRequest(http.MethodDelete, a.baseURL+"/api/push/unsubscribe", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build unsubscribe request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("unsubscribe endpoint returned %d", resp.StatusCode)
	}
	return nil
}
