package push

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/chatjam/chatjam/internal/model"
)

// SubscriptionSource lists and prunes stored subscriptions.
type SubscriptionSource interface {
	ListByUser(userID string) ([]model.PushSubscription, error)
	DeleteByEndpoint(endpoint string) error
}

// Sender delivers new-message payloads to every stored subscription of a
// user. The delivery pipeline hands it messages whose recipient has no live
// connection.
type Sender struct {
	service *Service
	subs    SubscriptionSource
	timeout time.Duration
	logger  *slog.Logger
}

func NewSender(service *Service, subs SubscriptionSource, logger *slog.Logger) *Sender {
	return &Sender{
		service: service,
		subs:    subs,
		timeout: 30 * time.Second,
		logger:  logger,
	}
}

// NotifyNewMessage pushes {body, url} for one message to each of the user's
// subscriptions, pruning ones the push service reports as gone. Failures are
// logged, never propagated: push is best-effort and the message is already
// durable.
func (s *Sender) NotifyNewMessage(userID string, msg model.Message) {
	subs, err := s.subs.ListByUser(userID)
	if err != nil {
		s.logger.Error("list subscriptions", "user", userID, "error", err)
		return
	}

	payload := Payload{
		Body: msg.Text,
		URL:  "/chat/" + msg.RoomID,
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	for i := range subs {
		err := s.service.Send(ctx, &subs[i], payload)
		if errors.Is(err, ErrExpired) {
			if derr := s.subs.DeleteByEndpoint(subs[i].Endpoint); derr != nil {
				s.logger.Error("prune expired subscription", "endpoint", subs[i].Endpoint, "error", derr)
			}
			continue
		}
		if err != nil {
			s.logger.Error("send push", "user", userID, "error", err)
		}
	}
}
