package push

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/sethvargo/go-retry"

	"github.com/chatjam/chatjam/internal/model"
)

// ErrExpired is returned when a push subscription is no longer valid
// (410 Gone). Callers should prune the subscription rather than retry.
var ErrExpired = errors.New("push subscription expired")

// Payload is the JSON delivered to the browser's background worker. The
// worker supplies the title and rendering details; the server only says what
// happened and where to go.
type Payload struct {
	Body string `json:"body"`
	URL  string `json:"url"`
}

// Config holds VAPID configuration.
type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subscriber      string
}

// Service sends web push notifications signed with VAPID keys.
type Service struct {
	publicKey  string
	privateKey string
	subscriber string
}

func NewService(cfg Config) *Service {
	sub := cfg.Subscriber
	if sub == "" {
		sub = "mailto:noreply@chatjam.app"
	}
	return &Service{
		publicKey:  cfg.VAPIDPublicKey,
		privateKey: cfg.VAPIDPrivateKey,
		subscriber: sub,
	}
}

// VAPIDPublicKey returns the public key for client-side subscription.
func (s *Service) VAPIDPublicKey() string {
	return s.publicKey
}

// Send delivers one payload to one subscription, retrying transient push
// service failures with backoff. Expired subscriptions surface as ErrExpired
// immediately; persistence-side failures never reach this path.
func (s *Service) Send(ctx context.Context, sub *model.PushSubscription, payload Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	backoff := retry.WithMaxRetries(3, retry.NewExponential(200*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := s.sendOnce(data, sub)
		var se *statusError
		if errors.As(err, &se) && se.code >= 500 {
			return retry.RetryableError(err)
		}
		return err
	})
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("push service returned %d", e.code)
}

func (s *Service) sendOnce(data []byte, sub *model.PushSubscription) error {
	resp, err := webpush.SendNotification(data, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}, &webpush.Options{
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		Subscriber:      s.subscriber,
		TTL:             86400,
	})
	if err != nil {
		return retry.RetryableError(fmt.Errorf("send push: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		return ErrExpired
	}
	if resp.StatusCode >= 400 {
		return &statusError{code: resp.StatusCode}
	}
	return nil
}

// GenerateVAPIDKeys generates a new ECDSA P-256 key pair for VAPID.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generate ECDSA key: %w", err)
	}

	pubBytes := elliptic.Marshal(elliptic.P256(), key.PublicKey.X, key.PublicKey.Y)
	publicKey = base64.RawURLEncoding.EncodeToString(pubBytes)
	privateKey = base64.RawURLEncoding.EncodeToString(key.D.Bytes())

	return publicKey, privateKey, nil
}
